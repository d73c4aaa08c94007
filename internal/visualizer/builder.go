package visualizer

import (
	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/audiocore/analyzers"
	"github.com/tphakala/audioviz/internal/audiocore/analyzers/amplitude"
	"github.com/tphakala/audioviz/internal/audiocore/analyzers/spectrum"
	"github.com/tphakala/audioviz/internal/audiocore/sources"
	"github.com/tphakala/audioviz/internal/audiocore/sources/malgo"
	"github.com/tphakala/audioviz/internal/audiocore/sources/wavfile"
	"github.com/tphakala/audioviz/internal/conf"
	"github.com/tphakala/audioviz/internal/events"
	"github.com/tphakala/audioviz/internal/logger"
)

// NewAnalyzer builds the analyzer selected by a.Mode for audio at sampleRate.
func NewAnalyzer(a conf.AnalysisSettings, sampleRate int) (audiocore.Analyzer, error) {
	switch a.Mode {
	case conf.ModeSpectrum, "":
		agg, err := analyzers.ParseAggregation(a.Aggregation)
		if err != nil {
			return nil, err
		}
		return spectrum.New(spectrum.Config{
			SampleRate:   sampleRate,
			WindowSize:   a.WindowSize,
			Bands:        a.Bands,
			MinFrequency: a.MinFrequency,
			MaxFrequency: a.MaxFrequency,
			Aggregation:  agg,
			Decay:        a.Decay,
			Floor:        a.Floor,
		})
	case conf.ModeAmplitude:
		return amplitude.New(amplitude.Config{
			WindowSize: a.WindowSize,
			Bands:      a.Bands,
			Decay:      a.Decay,
			Floor:      a.Floor,
		})
	default:
		return nil, audiocore.InvalidConfig(componentVisualizer, "unknown analysis mode "+a.Mode)
	}
}

// NewFromSettings wires an engine from loaded settings. bus may be nil.
func NewFromSettings(settings *conf.Settings, bus *events.Bus) (*Engine, error) {
	if settings == nil {
		return nil, audiocore.InvalidConfig(componentVisualizer, "settings are nil")
	}

	source, err := sources.New(settings)
	if err != nil {
		return nil, err
	}

	// File input is analyzed at the file's own rate
	sampleRate := settings.Audio.SampleRate
	if settings.Audio.Source == conf.SourceWAV {
		format, err := wavfile.Probe(settings.Audio.File)
		if err != nil {
			return nil, err
		}
		sampleRate = format.SampleRate
	}

	analyzer, err := NewAnalyzer(settings.Analysis, sampleRate)
	if err != nil {
		return nil, err
	}

	var permission PermissionChecker = StaticPermission(true)
	if settings.Audio.Source == conf.SourceMalgo || settings.Audio.Source == "" {
		permission = PermissionFunc(malgo.ProbePermission)
	}

	log.Debug("engine configured",
		logger.String("source", source.ID()),
		logger.String("mode", settings.Analysis.Mode),
		logger.Int("sample_rate", sampleRate))

	return New(Config{
		Source:      source,
		Analyzer:    analyzer,
		Sensitivity: settings.Sensitivity.Value,
		Gain:        settings.Sensitivity.Gain,
		MaxRate:     settings.Dispatch.MaxRate,
		Overlap:     settings.Analysis.Overlap,
		ReadSize:    settings.Audio.BufferFrames,
		Retry: RetryConfig{
			MaxAttempts:     settings.Audio.Retry.MaxAttempts,
			InitialInterval: settings.Audio.Retry.InitialInterval,
			MaxInterval:     settings.Audio.Retry.MaxInterval,
		},
		Permission: permission,
		Events:     bus,
	})
}
