/*
Package monitoring provides Prometheus-based metrics collection.

Each collector owns its own registry, so tests can create collectors
freely without duplicate-registration panics.

Tracked concerns:

- HTTP request metrics (latency, throughput, status)
- Advisor call metrics (duration, status)
- Reveal stream lifecycle (started, cancelled, completed)
- Store failures and snapshot writes
- WebSocket connections and message counts
- Uptime

Usage:

	metrics := monitoring.NewMetrics()
	defer metrics.Close()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
