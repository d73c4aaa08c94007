package visualizer

import "github.com/tphakala/audioviz/internal/logger"

const componentVisualizer = "visualizer"

var log = logger.Global().Module(componentVisualizer)
