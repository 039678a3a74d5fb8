/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the launcher,
tracking control API requests, lifecycle requests, networked store calls and
activation ticket redemption.

# Features

- HTTP request metrics (latency, throughput)
- Lifecycle request metrics (op, outcome, duration)
- Networked store call metrics (duration, errors)
- Activation and ticket redemption metrics
- Uptime

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record lifecycle metrics
	metrics.SetLocalApps(5)
	metrics.RecordLifecycle("add", monitoring.Outcome(err), time.Since(start))

	// Time store operations
	timer := monitoring.NewTimer(metrics, "read_file")
	data, err := store.ReadFile(ctx, file)
	timer.Stop(err)

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
