// Package health serves liveness, readiness and version endpoints for the
// custodian scheduler.
//
//   - /health: the process is up
//   - /ready: the audit store answers and the scheduler is running
//   - /version: build information
//
// The endpoints share the metrics listener:
//
//	checker := health.New(5 * time.Second)
//	checker.Register("store", health.StoreCheck(store))
//	checker.Register("scheduler", health.RunningCheck("scheduler", sched.IsRunning))
//	checker.Mount(mux, version, commit, buildDate)
package health
