package analysis

import (
	"github.com/tphakala/audioviz/internal/conf"
	"github.com/tphakala/audioviz/internal/logger"
)

// FileAnalysis replays a WAV file through the engine. With realtime set the
// file is paced at its own sample rate, otherwise it is read as fast as
// analysis allows. It returns when the file ends or on SIGINT.
func FileAnalysis(settings *conf.Settings, path string, opts Options) error {
	settings.Audio.Source = conf.SourceWAV
	settings.Audio.File = path

	log.Info("replaying file",
		logger.String("path", path),
		logger.Bool("realtime", settings.Audio.Realtime))

	quitChan := make(chan struct{})
	monitorSignals(quitChan)
	return Run(settings, opts, quitChan)
}
