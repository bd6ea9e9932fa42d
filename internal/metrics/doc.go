// Package metrics provides observability hooks for patch application and the
// collaborator session.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never needs nil checks:
//
//	c := coordinator.New(cfg, deps) // NoopRecorder unless deps.Metrics is set
//
// When metrics are enabled the daemon builds a PrometheusRecorder on its own
// registry and serves it through HTTPHandler at /metrics.
package metrics
