package processors

import "github.com/tphakala/audioviz/internal/logger"

var log = logger.Global().Module("audiocore").Module("processors")
