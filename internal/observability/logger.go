// Package observability exposes audioviz metrics over a Prometheus endpoint.
package observability

import "github.com/tphakala/audioviz/internal/logger"

// Package-level cached logger instance for efficiency.
// All logging in this package should use this variable.
var log = logger.Global().Module("telemetry")
