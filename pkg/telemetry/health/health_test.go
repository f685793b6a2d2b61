package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"mercator-hq/tabula/pkg/evidence"
	"mercator-hq/tabula/pkg/evidence/storage"
)

func TestChecker_Registration(t *testing.T) {
	c := New(0)
	if c.timeout != DefaultCheckTimeout {
		t.Errorf("default timeout = %v, want %v", c.timeout, DefaultCheckTimeout)
	}

	c.RegisterCheck("tables", func(ctx context.Context) error { return nil })
	c.RegisterCheck("evidence", func(ctx context.Context) error { return nil })
	c.RegisterCheck("tables", func(ctx context.Context) error { return nil })

	if c.CheckCount() != 2 {
		t.Errorf("CheckCount() = %d, want 2", c.CheckCount())
	}
	names := c.ListChecks()
	if len(names) != 2 || names[0] != "evidence" || names[1] != "tables" {
		t.Errorf("ListChecks() = %v, want sorted [evidence tables]", names)
	}

	c.UnregisterCheck("tables")
	if c.CheckCount() != 1 {
		t.Errorf("CheckCount() after unregister = %d, want 1", c.CheckCount())
	}
}

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{name: "no checks", want: StatusReady},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"a": func(ctx context.Context) error { return nil },
				"b": func(ctx context.Context) error { return nil },
			},
			want: StatusReady,
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"a": func(ctx context.Context) error { return nil },
				"b": func(ctx context.Context) error { return errors.New("down") },
			},
			want: StatusDegraded,
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			want: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(50 * time.Millisecond)
			for name, fn := range tt.checks {
				c.RegisterCheck(name, fn)
			}
			status := c.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("Status = %q, want %q (checks %+v)", status.Status, tt.want, status.Checks)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, want %d", len(status.Checks), len(tt.checks))
			}
		})
	}
}

func TestTablesLoaded(t *testing.T) {
	n := 0
	check := TablesLoaded(func() int { return n }, 1)
	if err := check(context.Background()); err == nil {
		t.Error("TablesLoaded() passed with no tables")
	}
	n = 2
	if err := check(context.Background()); err != nil {
		t.Errorf("TablesLoaded() error = %v", err)
	}
}

type failingStorage struct{ evidence.Storage }

func (failingStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestStorageReachable(t *testing.T) {
	if err := StorageReachable(storage.NewMemoryStorage())(context.Background()); err != nil {
		t.Errorf("memory storage unreachable: %v", err)
	}
	if err := StorageReachable(failingStorage{})(context.Background()); err == nil {
		t.Error("failing storage reported reachable")
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	healthy := true
	c.RegisterCheck("tables", func(ctx context.Context) error {
		if !healthy {
			return errors.New("no tables")
		}
		return nil
	})

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		method   string
		healthy  bool
		wantCode int
		wantBody string
	}{
		{name: "liveness", handler: c.LivenessHandler(), method: http.MethodGet, healthy: false, wantCode: http.StatusOK, wantBody: StatusOK},
		{name: "liveness head", handler: c.LivenessHandler(), method: http.MethodHead, wantCode: http.StatusOK},
		{name: "liveness post", handler: c.LivenessHandler(), method: http.MethodPost, wantCode: http.StatusMethodNotAllowed},
		{name: "ready", handler: c.ReadinessHandler(), method: http.MethodGet, healthy: true, wantCode: http.StatusOK, wantBody: StatusReady},
		{name: "not ready", handler: c.ReadinessHandler(), method: http.MethodGet, healthy: false, wantCode: http.StatusServiceUnavailable, wantBody: StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			healthy = tt.healthy
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(tt.method, "/", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody == "" {
				return
			}
			var got HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if got.Status != tt.wantBody {
				t.Errorf("body status = %q, want %q", got.Status, tt.wantBody)
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc", "2025-01-01")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc" || info.GoVersion == "" {
		t.Errorf("VersionInfo = %+v", info)
	}
}
