package file

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/audioviz/internal/analysis"
	"github.com/tphakala/audioviz/internal/conf"
)

// Command creates the command for replaying a WAV file through the engine.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &analysis.Options{}

	cmd := &cobra.Command{
		Use:   "file [input.wav]",
		Short: "Visualize an audio file",
		Long:  "Replay a WAV file through the analysis pipeline and print its visualization frames.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Out = cmd.OutOrStdout()
			return analysis.FileAnalysis(settings, args[0], *opts)
		},
	}

	setupFlags(cmd, settings, opts)

	return cmd
}

// setupFlags configures flags specific to the file command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings, opts *analysis.Options) {
	cmd.Flags().BoolVar(&settings.Audio.Realtime, "realtime", viper.GetBool("audio.realtime"), "Replay at the file's own speed")
	cmd.Flags().BoolVarP(&opts.Print, "print", "p", true, "Print visualization frames")
	cmd.Flags().StringVar(&opts.Format, "format", analysis.FormatBars, "Frame output format: bars or values")
}
