package health

import (
	"net/http"
	"runtime"

	"github.com/goccy/go-json"
)

// VersionInfo is the body of /version.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// LivenessHandler serves /health. It answers 200 while the process runs.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return probe(func(r *http.Request) (int, any) {
		return http.StatusOK, c.CheckLiveness(r.Context())
	})
}

// ReadinessHandler serves /ready: 200 when every check passes, 503 with the
// failing checks otherwise, e.g.
//
//	{"status":"degraded","checks":{"tables":{"status":"unhealthy",
//	 "message":"0 tables loaded, need at least 1","duration_ms":0.01}}, ...}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return probe(func(r *http.Request) (int, any) {
		status := c.CheckReadiness(r.Context())
		if status.Status != StatusReady {
			return http.StatusServiceUnavailable, status
		}
		return http.StatusOK, status
	})
}

// VersionHandler serves build information.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
	return probe(func(*http.Request) (int, any) { return http.StatusOK, info })
}

// probe adapts a body function to a GET/HEAD JSON handler.
func probe(body func(r *http.Request) (int, any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code, v := body(r)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		if r.Method == http.MethodHead {
			return
		}
		_ = json.NewEncoder(w).Encode(v)
	}
}
