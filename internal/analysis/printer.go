package analysis

import (
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/logger"
)

// Output formats for printed frames
const (
	FormatBars   = "bars"
	FormatValues = "values"
)

var levels = []rune(" ▁▂▃▄▅▆▇█")

// framePrinter renders visualization frames to a terminal, one line per frame.
type framePrinter struct {
	mu     sync.Mutex
	out    io.Writer
	format string
	line   strings.Builder
	failed bool
}

func newFramePrinter(out io.Writer, format string) (*framePrinter, error) {
	switch format {
	case "", FormatBars:
		format = FormatBars
	case FormatValues:
	default:
		return nil, audiocore.InvalidConfig("analysis", "unknown output format "+format)
	}
	return &framePrinter{out: out, format: format}, nil
}

// render is registered as an engine subscriber
func (p *framePrinter) render(frame audiocore.VisualizationFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failed {
		return
	}

	p.line.Reset()
	switch p.format {
	case FormatValues:
		p.line.WriteString(strconv.FormatUint(frame.Sequence, 10))
		for _, v := range frame.Values {
			p.line.WriteByte(',')
			p.line.WriteString(strconv.FormatFloat(v, 'f', 3, 64))
		}
	default:
		p.line.WriteByte('|')
		for _, v := range frame.Values {
			p.line.WriteRune(barRune(v))
		}
		p.line.WriteByte('|')
	}
	p.line.WriteByte('\n')

	if _, err := io.WriteString(p.out, p.line.String()); err != nil {
		// Stop writing after the first failure, e.g. a closed pipe
		p.failed = true
		log.Warn("frame output failed, printing disabled", logger.Error(err))
	}
}

// barRune maps a normalized value to one of nine block heights.
func barRune(v float64) rune {
	switch {
	case v <= 0:
		return levels[0]
	case v >= 1:
		return levels[len(levels)-1]
	}
	return levels[int(v*float64(len(levels)-1)+0.5)]
}
