// Package metrics provides Prometheus collectors for the visualization pipeline.
package metrics

import "time"

// ShutdownTimeout bounds the graceful shutdown of the metrics HTTP server.
const ShutdownTimeout = 5 * time.Second

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)
