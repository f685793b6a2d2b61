package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"mercator-hq/tabula/pkg/api"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/service"
	"mercator-hq/tabula/pkg/telemetry/logging"
)

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables := []manager.TableInfo{}
	if reg := s.service.Registry(); reg != nil {
		tables = append(tables, reg.List()...)
	}
	respondJSON(w, http.StatusOK, api.TableList{Tables: tables, Count: len(tables)})
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	reg := s.service.Registry()
	if reg == nil {
		respondError(w, http.StatusNotFound, api.NewNotFoundError("table not found: "+name))
		return
	}
	lease, err := reg.Acquire(name)
	if err != nil {
		status, body := api.FromError(err)
		respondError(w, status, body)
		return
	}
	defer lease.Release()

	table := lease.Table()
	detail := api.TableDetail{
		TableInfo: lease.Info(),
		RuleIDs:   make([]string, table.NumRules()),
	}
	for i := range detail.RuleIDs {
		detail.RuleIDs[i] = table.RuleID(i)
	}
	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleEvaluateTable(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.service.Evaluate(r.Context(), service.Request{
		Table:     chi.URLParam(r, "name"),
		Records:   req.Records,
		RequestID: logging.GetRequestID(r.Context()),
		Source:    service.SourceHTTP,
	})
	s.respondEvaluation(w, r, resp, err, req.Trace)
}

func (s *Server) handleEvaluateInline(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	var (
		resp *service.Response
		err  error
	)
	switch {
	case req.Schema != nil:
		resp, err = s.service.EvaluateInline(r.Context(), service.InlineRequest{
			Schema:    req.Schema,
			Records:   req.Records,
			RequestID: logging.GetRequestID(r.Context()),
			Source:    service.SourceHTTP,
		})
	case req.Table != "":
		resp, err = s.service.Evaluate(r.Context(), service.Request{
			Table:     req.Table,
			Records:   req.Records,
			RequestID: logging.GetRequestID(r.Context()),
			Source:    service.SourceHTTP,
		})
	default:
		respondError(w, http.StatusBadRequest, api.NewInvalidRequestError("schema or table is required", "schema", api.CodeMissingField))
		return
	}
	s.respondEvaluation(w, r, resp, err, req.Trace)
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (*api.EvaluateRequest, bool) {
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge,
				api.NewInvalidRequestError("request body too large", "", api.CodeRequestTooLarge))
			return nil, false
		}
		respondError(w, http.StatusBadRequest,
			api.NewInvalidRequestError("failed to read request body", "", api.CodeInvalidJSON))
		return nil, false
	}

	var req api.EvaluateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		respondError(w, http.StatusBadRequest,
			api.NewInvalidRequestError("invalid request body: "+err.Error(), "", api.CodeInvalidJSON))
		return nil, false
	}
	return &req, true
}

func (s *Server) respondEvaluation(w http.ResponseWriter, r *http.Request, resp *service.Response, err error, trace bool) {
	if err != nil {
		status, body := api.FromError(err)
		if status >= http.StatusInternalServerError {
			logging.FromContext(r.Context(), s.logger).Error("evaluation failed", "error", err)
		}
		respondError(w, status, body)
		return
	}
	respondJSON(w, http.StatusOK, api.NewEvaluateResponse(resp, trace))
}
