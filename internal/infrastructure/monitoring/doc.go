/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the
supervisor, tracking stage transitions, readiness latency, failures, and
status-server traffic.

# Features

- Stage lifecycle metrics (transitions, ready latency, failures by class)
- Managed process gauge and whole-stack readiness gauge
- HTTP request metrics for the status server
- WebSocket event stream metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record stage activity
	metrics.RecordTransition("display", "ready")
	metrics.RecordFailure("bridge", "launch_failure")
	metrics.RecordReady("desktop", time.Since(started))

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
