package listen

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/audioviz/internal/analysis"
	"github.com/tphakala/audioviz/internal/conf"
)

// Command creates the command for live visualization of a capture device or
// the synthetic tone source.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &analysis.Options{}
	var interactive bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Visualize live audio",
		Long:  "Capture audio from the configured source and emit visualization frames until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Out = cmd.OutOrStdout()
			if interactive {
				opts.Control = os.Stdin
			}
			return analysis.RealtimeAnalysis(settings, *opts)
		},
	}

	if err := setupFlags(cmd, settings, opts, &interactive); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the listen command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings, opts *analysis.Options, interactive *bool) error {
	cmd.Flags().StringVar(&settings.Audio.Source, "source", viper.GetString("audio.source"), "Audio source: malgo or tone")
	cmd.Flags().StringVar(&settings.Audio.Device, "device", viper.GetString("audio.device"), "Capture device name or ID, \"default\" for the system default")
	cmd.Flags().IntVar(&settings.Audio.SampleRate, "samplerate", viper.GetInt("audio.samplerate"), "Capture sample rate in Hz")
	cmd.Flags().Float64Var(&settings.Audio.Tone.Frequency, "tone", viper.GetFloat64("audio.tone.frequency"), "Tone source frequency in Hz")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")
	cmd.Flags().BoolVarP(&opts.Print, "print", "p", true, "Print visualization frames")
	cmd.Flags().StringVar(&opts.Format, "format", analysis.FormatBars, "Frame output format: bars or values")
	cmd.Flags().BoolVarP(interactive, "interactive", "i", false, "Read control commands from stdin")
	cmd.Flags().StringSliceVar(&opts.Events, "events", nil, "Lifecycle events to log: audio_started, audio_stopped")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
