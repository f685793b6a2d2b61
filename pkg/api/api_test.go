package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/schema"
	"mercator-hq/tabula/pkg/decision/service"
)

func TestNewEvaluateResponse(t *testing.T) {
	row := engine.NewOutputRow([]string{"rate"}, []any{0.2})

	tests := []struct {
		name  string
		resp  *service.Response
		trace bool
		want  string
	}{
		{
			name: "unique matched and ambiguous",
			resp: &service.Response{
				Table: "discount", Version: "v1", HitPolicy: schema.HitPolicyUnique, BatchID: "b1",
				Duration: 1500 * time.Microsecond,
				Results: []engine.Result{
					{HitPolicy: schema.HitPolicyUnique, Row: &row, Fired: []int{0}},
					{HitPolicy: schema.HitPolicyUnique, Fired: []int{0, 1}, Ambiguous: true},
				},
			},
			want: `{"table":"discount","version":"v1","hit_policy":"UNIQUE","batch_id":"b1","duration_ms":1.5,"results":[` +
				`{"index":0,"outcome":"matched","output":{"rate":0.2}},` +
				`{"index":1,"outcome":"ambiguous","ambiguous":true}]}`,
		},
		{
			name: "collect with trace",
			resp: &service.Response{
				Table: "labels", Version: "v2", HitPolicy: schema.HitPolicyCollect, BatchID: "b2",
				Results: []engine.Result{
					{HitPolicy: schema.HitPolicyCollect, Rows: []engine.OutputRow{row, row}, Fired: []int{0, 2}},
					{HitPolicy: schema.HitPolicyCollect},
				},
			},
			trace: true,
			want: `{"table":"labels","version":"v2","hit_policy":"COLLECT","batch_id":"b2","duration_ms":0,"results":[` +
				`{"index":0,"outcome":"matched","outputs":[{"rate":0.2},{"rate":0.2}],"fired":[0,2]},` +
				`{"index":1,"outcome":"no_match","outputs":[]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(NewEvaluateResponse(tt.resp, tt.trace))
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got  %s\nwant %s", data, tt.want)
			}
		})
	}
}

func TestEvaluateRequest_Decode(t *testing.T) {
	body := `{
		"schema": {
			"name": "inline",
			"hitPolicy": "FIRST",
			"inputs": [{"name": "n", "typeRef": "number"}],
			"outputs": [{"name": "s", "typeRef": "string"}],
			"rules": [{"inputs": ["< 10"], "outputs": ["\"small\""]}]
		},
		"records": [{"n": 3}, {"n": 30}],
		"trace": true
	}`

	var req EvaluateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if req.Schema == nil || req.Schema.HitPolicy != schema.HitPolicyFirst || len(req.Schema.Rules) != 1 {
		t.Fatalf("schema = %+v", req.Schema)
	}
	if len(req.Records) != 2 || !req.Trace {
		t.Errorf("request = %+v", req)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", &manager.RegistryError{Table: "x", Operation: "acquire", Err: manager.ErrTableNotFound}, http.StatusNotFound, CodeTableNotFound},
		{"missing table", service.ErrMissingTable, http.StatusBadRequest, CodeMissingField},
		{"no records", service.ErrNoRecords, http.StatusBadRequest, CodeMissingField},
		{"too large", fmt.Errorf("%w: 5 records", service.ErrBatchTooLarge), http.StatusBadRequest, CodeBatchTooLarge},
		{"compile", &service.CompileError{Table: "t", Err: schema.ErrUnsupportedHitPolicy}, http.StatusBadRequest, CodeCompileFailed},
		{"closed", manager.ErrRegistryClosed, http.StatusServiceUnavailable, CodeUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeDeadline},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := FromError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
			if tt.name == "other" && strings.Contains(body.Error.Message, "boom") {
				t.Error("internal error details leaked")
			}
		})
	}
}
