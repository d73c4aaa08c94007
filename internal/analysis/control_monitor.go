package analysis

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/tphakala/audioviz/internal/logger"
	"github.com/tphakala/audioviz/internal/visualizer"
)

// controllable is the part of the engine driven by control commands
type controllable interface {
	SetSensitivity(v float64) error
	State() visualizer.SessionState
	Stats() visualizer.Stats
}

// ControlMonitor reads line commands and applies them to a running engine.
//
//	sensitivity <0..1>   (alias s)
//	status
//	stats
//	quit                 (alias q)
type ControlMonitor struct {
	wg          *sync.WaitGroup
	engine      controllable
	controlChan chan string
	quitChan    <-chan struct{}
	requestQuit func()
	out         io.Writer
}

// NewControlMonitor creates a monitor. requestQuit is called for the quit
// command and must be safe to call more than once.
func NewControlMonitor(wg *sync.WaitGroup, engine controllable, quitChan <-chan struct{}, requestQuit func(), out io.Writer) *ControlMonitor {
	return &ControlMonitor{
		wg:          wg,
		engine:      engine,
		controlChan: make(chan string),
		quitChan:    quitChan,
		requestQuit: requestQuit,
		out:         out,
	}
}

// Start reads commands from in until EOF and handles them until quitChan closes.
// The reader goroutine is not tracked by wg since a terminal read cannot be
// interrupted.
func (cm *ControlMonitor) Start(in io.Reader) {
	go cm.scan(in)
	cm.wg.Go(cm.monitor)
}

func (cm *ControlMonitor) scan(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case cm.controlChan <- line:
		case <-cm.quitChan:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debug("control input closed", logger.Error(err))
	}
}

func (cm *ControlMonitor) monitor() {
	for {
		select {
		case <-cm.quitChan:
			return
		case line := <-cm.controlChan:
			cm.handle(line)
		}
	}
}

func (cm *ControlMonitor) handle(line string) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "sensitivity", "s":
		cm.handleSensitivity(fields[1:])
	case "status":
		st := cm.engine.State()
		cm.reply("state=%s session=%s sensitivity=%.2f", st.State, st.ID, st.Sensitivity)
	case "stats":
		s := cm.engine.Stats()
		cm.reply("analyzed=%d emitted=%d coalesced=%d dropped=%d reconnects=%d panics=%d subscribers=%d",
			s.FramesAnalyzed, s.FramesEmitted, s.FramesCoalesced, s.SamplesDropped, s.Reconnects, s.CallbackPanics, s.Subscribers)
	case "quit", "q":
		log.Info("quit requested from control input")
		cm.requestQuit()
	default:
		cm.reply("unknown command %q", fields[0])
	}
}

func (cm *ControlMonitor) handleSensitivity(args []string) {
	if len(args) != 1 {
		cm.reply("usage: sensitivity <0..1>")
		return
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		cm.reply("invalid sensitivity %q", args[0])
		return
	}
	if err := cm.engine.SetSensitivity(v); err != nil {
		cm.reply("sensitivity rejected: %v", err)
		return
	}
	log.Info("sensitivity changed", logger.Float64("sensitivity", v))
	cm.reply("sensitivity=%.2f", v)
}

func (cm *ControlMonitor) reply(format string, args ...any) {
	if _, err := fmt.Fprintf(cm.out, format+"\n", args...); err != nil {
		log.Debug("control reply failed", logger.Error(err))
	}
}
