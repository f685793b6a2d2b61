package lambdatransport

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"

	"mercator-hq/tabula/pkg/api"
	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/schema"
	"mercator-hq/tabula/pkg/decision/service"
	"mercator-hq/tabula/pkg/telemetry/logging"
)

type svcStub struct {
	evaluateFn       func(ctx context.Context, req service.Request) (*service.Response, error)
	evaluateInlineFn func(ctx context.Context, req service.InlineRequest) (*service.Response, error)
}

func (s *svcStub) Evaluate(ctx context.Context, req service.Request) (*service.Response, error) {
	return s.evaluateFn(ctx, req)
}

func (s *svcStub) EvaluateInline(ctx context.Context, req service.InlineRequest) (*service.Response, error) {
	return s.evaluateInlineFn(ctx, req)
}

func matchedResponse(table string, n int) *service.Response {
	row := engine.NewOutputRow([]string{"ok"}, []any{true})
	resp := &service.Response{Table: table, Version: "v1", HitPolicy: schema.HitPolicyFirst, BatchID: "batch"}
	for i := 0; i < n; i++ {
		resp.Results = append(resp.Results, engine.Result{HitPolicy: schema.HitPolicyFirst, Row: &row, Fired: []int{0}})
	}
	return resp
}

func newStub() *svcStub {
	return &svcStub{
		evaluateFn: func(ctx context.Context, req service.Request) (*service.Response, error) {
			if req.Table != "known" {
				return nil, fmt.Errorf("acquire: %w", manager.ErrTableNotFound)
			}
			if req.Source != service.SourceLambda || req.RequestID != "aws-req" {
				return nil, fmt.Errorf("unexpected request %+v", req)
			}
			return matchedResponse(req.Table, len(req.Records)), nil
		},
		evaluateInlineFn: func(ctx context.Context, req service.InlineRequest) (*service.Response, error) {
			return matchedResponse(req.Schema.Name, len(req.Records)), nil
		},
	}
}

func TestHandler_Evaluate(t *testing.T) {
	inline := `{"schema":{"name":"inline","hitPolicy":"FIRST","inputs":[],"outputs":[],"rules":[]},"records":[{},{}],"trace":true}`

	tests := []struct {
		name       string
		req        events.APIGatewayV2HTTPRequest
		wantStatus int
		wantTable  string
		wantCode   string
	}{
		{name: "invalid json", req: events.APIGatewayV2HTTPRequest{Body: "{"}, wantStatus: http.StatusBadRequest, wantCode: api.CodeInvalidJSON},
		{name: "invalid base64", req: events.APIGatewayV2HTTPRequest{Body: "%%%", IsBase64Encoded: true}, wantStatus: http.StatusBadRequest, wantCode: api.CodeInvalidJSON},
		{name: "neither schema nor table", req: events.APIGatewayV2HTTPRequest{Body: `{"records":[{}]}`}, wantStatus: http.StatusBadRequest, wantCode: api.CodeMissingField},
		{name: "inline", req: events.APIGatewayV2HTTPRequest{Body: inline}, wantStatus: http.StatusOK, wantTable: "inline"},
		{
			name:       "inline base64",
			req:        events.APIGatewayV2HTTPRequest{Body: base64.StdEncoding.EncodeToString([]byte(inline)), IsBase64Encoded: true},
			wantStatus: http.StatusOK,
			wantTable:  "inline",
		},
		{name: "registered table", req: events.APIGatewayV2HTTPRequest{Body: `{"table":"known","records":[{}]}`}, wantStatus: http.StatusOK, wantTable: "known"},
		{name: "unknown table", req: events.APIGatewayV2HTTPRequest{Body: `{"table":"other","records":[{}]}`}, wantStatus: http.StatusNotFound, wantCode: api.CodeTableNotFound},
	}

	h := NewHandler(newStub(), logging.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.RequestContext.RequestID = "aws-req"
			resp, err := h.Evaluate(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", resp.StatusCode, tt.wantStatus, resp.Body)
			}
			if resp.Headers["content-type"] != "application/json" {
				t.Errorf("content-type = %q", resp.Headers["content-type"])
			}

			if tt.wantCode != "" {
				var body api.ErrorResponse
				if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
					t.Fatalf("Unmarshal() error = %v", err)
				}
				if body.Error.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
				}
				return
			}

			var out struct {
				Table   string `json:"table"`
				Results []struct {
					Fired []int `json:"fired"`
				} `json:"results"`
			}
			if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if out.Table != tt.wantTable {
				t.Errorf("table = %q, want %q", out.Table, tt.wantTable)
			}
		})
	}
}

func TestHandler_TraceFlag(t *testing.T) {
	h := NewHandler(newStub(), logging.Discard())

	for _, trace := range []bool{false, true} {
		body := fmt.Sprintf(`{"schema":{"name":"t","inputs":[],"outputs":[],"rules":[]},"records":[{}],"trace":%t}`, trace)
		resp, err := h.Evaluate(context.Background(), events.APIGatewayV2HTTPRequest{Body: body})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}

		var out struct {
			Results []struct {
				Fired []int `json:"fired"`
			} `json:"results"`
		}
		if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if got := out.Results[0].Fired != nil; got != trace {
			t.Errorf("trace=%t: fired present = %t", trace, got)
		}
	}
}
