package api

import (
	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/schema"
	"mercator-hq/tabula/pkg/decision/service"
)

// EvaluateRequest is an evaluation request body.
//
// Table names a registered table and Schema carries an inline one. The
// table-scoped route takes the name from the path and ignores both.
type EvaluateRequest struct {
	Table   string          `json:"table,omitempty"`
	Schema  *schema.Table   `json:"schema,omitempty"`
	Records []engine.Record `json:"records"`

	// Trace adds the fired rule indices to every result.
	Trace bool `json:"trace,omitempty"`
}

// EvaluateResponse is the body of a successful evaluation.
type EvaluateResponse struct {
	Table      string           `json:"table"`
	Version    string           `json:"version"`
	HitPolicy  schema.HitPolicy `json:"hit_policy"`
	BatchID    string           `json:"batch_id"`
	DurationMS float64          `json:"duration_ms"`
	Results    []Result         `json:"results"`
}

// Result is the outcome of one record.
type Result struct {
	Index     int                 `json:"index"`
	Outcome   engine.Outcome      `json:"outcome"`
	Output    *engine.OutputRow   `json:"output,omitempty"`
	Outputs   *[]engine.OutputRow `json:"outputs,omitempty"`
	Fired     []int               `json:"fired,omitempty"`
	Ambiguous bool                `json:"ambiguous,omitempty"`
}

// NewEvaluateResponse converts a service response. With trace set, every
// result lists its fired rules.
func NewEvaluateResponse(resp *service.Response, trace bool) *EvaluateResponse {
	out := &EvaluateResponse{
		Table:      resp.Table,
		Version:    resp.Version,
		HitPolicy:  resp.HitPolicy,
		BatchID:    resp.BatchID,
		DurationMS: float64(resp.Duration.Microseconds()) / 1000,
		Results:    make([]Result, len(resp.Results)),
	}
	for i, r := range resp.Results {
		res := Result{
			Index:     i,
			Outcome:   r.Outcome(),
			Ambiguous: r.Ambiguous,
		}
		if r.HitPolicy == schema.HitPolicyCollect {
			rows := r.Rows
			if rows == nil {
				rows = []engine.OutputRow{}
			}
			res.Outputs = &rows
		} else {
			res.Output = r.Row
		}
		if trace {
			res.Fired = append([]int{}, r.Fired...)
		}
		out.Results[i] = res
	}
	return out
}

// TableList is the body of GET /api/v1/tables.
type TableList struct {
	Tables []manager.TableInfo `json:"tables"`
	Count  int                 `json:"count"`
}

// TableDetail is the body of GET /api/v1/tables/{name}.
type TableDetail struct {
	manager.TableInfo

	// RuleIDs lists rule identifiers in declaration order.
	RuleIDs []string `json:"rule_ids"`
}
