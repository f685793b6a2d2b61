// Package lambdatransport serves decision table evaluations behind an AWS
// API Gateway HTTP API (payload format 2.0).
//
// The event body is an api.EvaluateRequest: either an inline "schema" or a
// registered "table" name, plus "records". Responses match the HTTP server.
package lambdatransport

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"

	"mercator-hq/tabula/pkg/api"
	"mercator-hq/tabula/pkg/decision/service"
	"mercator-hq/tabula/pkg/telemetry/logging"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

// Evaluator is the part of service.Service the handler needs.
type Evaluator interface {
	Evaluate(ctx context.Context, req service.Request) (*service.Response, error)
	EvaluateInline(ctx context.Context, req service.InlineRequest) (*service.Response, error)
}

// Handler adapts API Gateway events to an Evaluator.
type Handler struct {
	svc    Evaluator
	logger *slog.Logger
}

// NewHandler creates a handler. A nil logger uses slog.Default().
func NewHandler(svc Evaluator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger.With("component", "lambda")}
}

// Evaluate handles one API Gateway request. Failures are reported as HTTP
// responses; the returned error is always nil so Lambda does not retry.
func (h *Handler) Evaluate(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	ctx = tracing.ExtractFromMap(ctx, req.Headers)
	requestID := req.RequestContext.RequestID
	if requestID != "" {
		ctx = logging.WithRequestID(ctx, requestID)
	}

	body, err := readBody(req)
	if err != nil {
		return jsonResp(http.StatusBadRequest,
			api.NewInvalidRequestError("invalid base64 body: "+err.Error(), "", api.CodeInvalidJSON)), nil
	}

	var in api.EvaluateRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return jsonResp(http.StatusBadRequest,
			api.NewInvalidRequestError("invalid request body: "+err.Error(), "", api.CodeInvalidJSON)), nil
	}

	var resp *service.Response
	switch {
	case in.Schema != nil:
		resp, err = h.svc.EvaluateInline(ctx, service.InlineRequest{
			Schema:    in.Schema,
			Records:   in.Records,
			RequestID: requestID,
			Source:    service.SourceLambda,
		})
	case in.Table != "":
		resp, err = h.svc.Evaluate(ctx, service.Request{
			Table:     in.Table,
			Records:   in.Records,
			RequestID: requestID,
			Source:    service.SourceLambda,
		})
	default:
		return jsonResp(http.StatusBadRequest,
			api.NewInvalidRequestError("schema or table is required", "schema", api.CodeMissingField)), nil
	}

	if err != nil {
		status, errBody := api.FromError(err)
		if status >= http.StatusInternalServerError {
			logging.FromContext(ctx, h.logger).Error("evaluation failed", "error", err)
		}
		return jsonResp(status, errBody), nil
	}
	return jsonResp(http.StatusOK, api.NewEvaluateResponse(resp, in.Trace)), nil
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	b, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":{"message":"failed to encode response","type":"server_error"}}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(b),
	}
}
