// Package health provides liveness and readiness probes for Tabula.
//
// # Endpoints
//
//   - /health: Liveness probe, 200 while the process runs
//   - /ready: Readiness probe, 200 once every registered check passes
//   - /version: Build information
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("tables", health.TablesLoaded(registry.Len, 1))
//	checker.RegisterCheck("evidence", health.StorageReachable(store))
//
//	router.Get("/health", checker.LivenessHandler())
//	router.Get("/ready", checker.ReadinessHandler())
//
// Checks run concurrently, each bounded by the checker timeout. A check
// that errors or times out marks the system "degraded" and /ready
// answers 503.
package health
