package analysis

import "github.com/tphakala/audioviz/internal/logger"

var log = logger.Global().Module("analysis")
