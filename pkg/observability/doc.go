/*
Package observability turns the protocol's lifecycle hooks into Prometheus
metrics and structured log records.

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	page := framesync.New(app, framesync.WithLifecycleHooks(metrics.Hooks()))
*/
package observability
