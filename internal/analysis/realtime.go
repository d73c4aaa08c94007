// Package analysis runs a visualization session from the command line: it
// wires settings into an engine, prints frames and handles shutdown.
package analysis

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/conf"
	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/events"
	"github.com/tphakala/audioviz/internal/logger"
	"github.com/tphakala/audioviz/internal/observability"
	"github.com/tphakala/audioviz/internal/visualizer"
)

const busShutdownTimeout = 2 * time.Second

// Options controls what a run writes to the terminal.
type Options struct {
	Print   bool      // print every frame
	Format  string    // FormatBars or FormatValues
	Out     io.Writer // frame and control output, os.Stdout when nil
	Control io.Reader // line commands, nil disables the control monitor
	Events  []string  // lifecycle event names to log, all when empty
}

// RealtimeAnalysis captures from the configured source until SIGINT or
// SIGTERM, or until the input ends.
func RealtimeAnalysis(settings *conf.Settings, opts Options) error {
	quitChan := make(chan struct{})
	monitorSignals(quitChan)
	return Run(settings, opts, quitChan)
}

// Run drives one session until quitChan closes, the control monitor asks to
// quit or the session ends on its own. It returns the session's terminal error.
func Run(settings *conf.Settings, opts Options, quitChan <-chan struct{}) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	var wg sync.WaitGroup
	stopChan := make(chan struct{})
	var stopOnce sync.Once
	requestStop := func() { stopOnce.Do(func() { close(stopChan) }) }
	defer func() {
		requestStop()
		wg.Wait()
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	audiocore.InitMetrics(metrics.Visualizer)
	if err := startTelemetryEndpoint(&wg, settings, metrics, stopChan); err != nil {
		return err
	}

	bus := events.NewBus(events.DefaultConfig(), log)
	defer func() {
		if err := bus.Shutdown(busShutdownTimeout); err != nil {
			log.Warn("event bus shutdown incomplete", logger.Error(err))
		}
	}()
	consumer, err := events.Filter(lifecycleLogger(), opts.Events...)
	if err != nil {
		return err
	}
	if err := bus.Register(consumer); err != nil {
		return err
	}

	engine, err := visualizer.NewFromSettings(settings, bus)
	if err != nil {
		return err
	}

	if opts.Print {
		printer, err := newFramePrinter(opts.Out, opts.Format)
		if err != nil {
			return err
		}
		engine.Subscribe(printer.render)
	}

	if err := engine.Start(context.Background()); err != nil {
		return err
	}

	if opts.Control != nil {
		NewControlMonitor(&wg, engine, stopChan, requestStop, opts.Out).Start(opts.Control)
	}

	done := make(chan error, 1)
	go func() { done <- engine.Wait() }()

	select {
	case err := <-done:
		logRunStats(engine.Stats())
		return err
	case <-quitChan:
	case <-stopChan:
	}

	if err := engine.Stop(); err != nil && !errors.Is(err, audiocore.ErrNotListening) {
		return err
	}
	err = <-done
	logRunStats(engine.Stats())
	return err
}

// lifecycleLogger logs session lifecycle events from the bus
func lifecycleLogger() events.Consumer {
	return events.ConsumerFunc{
		ID: "lifecycle-log",
		Fn: func(event events.Event) error {
			fields := []logger.Field{
				logger.String("event", string(event.Kind)),
				logger.String("session_id", event.SessionID),
			}
			if event.Err != nil {
				log.Warn("session event", append(fields, logger.Error(event.Err))...)
				return nil
			}
			log.Info("session event", fields...)
			return nil
		},
	}
}

func logRunStats(s visualizer.Stats) {
	log.Info("run finished",
		logger.Uint64("frames_analyzed", s.FramesAnalyzed),
		logger.Uint64("frames_emitted", s.FramesEmitted),
		logger.Uint64("frames_coalesced", s.FramesCoalesced),
		logger.Uint64("samples_dropped", s.SamplesDropped),
		logger.Uint64("reconnects", s.Reconnects),
		logger.Uint64("callback_panics", s.CallbackPanics))
}

// startTelemetryEndpoint serves Prometheus metrics when telemetry is enabled.
func startTelemetryEndpoint(wg *sync.WaitGroup, settings *conf.Settings, metrics *observability.Metrics, quitChan <-chan struct{}) error {
	if !settings.Telemetry.Enabled {
		return nil
	}

	endpoint, err := observability.NewEndpoint(settings, metrics)
	if err != nil {
		return err
	}
	return endpoint.Start(wg, quitChan)
}

// monitorSignals closes quitChan on the first SIGINT or SIGTERM.
func monitorSignals(quitChan chan struct{}) {
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		log.Info("received signal, shutting down", logger.String("signal", sig.String()))
		close(quitChan)
	}()
}
