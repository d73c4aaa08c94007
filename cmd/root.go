package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/audioviz/cmd/config"
	"github.com/tphakala/audioviz/cmd/devices"
	"github.com/tphakala/audioviz/cmd/file"
	"github.com/tphakala/audioviz/cmd/listen"
	"github.com/tphakala/audioviz/internal/conf"
	"github.com/tphakala/audioviz/internal/logger"
	"github.com/tphakala/audioviz/internal/observability"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "audioviz",
		Short:         "Real-time audio visualization engine",
		Version:       fmt.Sprintf("%s (built %s)", settings.Version, settings.BuildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	configCmd := config.Command(settings)

	rootCmd.AddCommand(
		listen.Command(settings),
		file.Command(settings),
		devices.Command(),
		configCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// config default must work even with an invalid configuration
		if cmd.Parent() == configCmd && cmd.Name() == "default" {
			return nil
		}
		return initialize(settings)
	}

	return rootCmd
}

// initialize validates settings after flags are applied and sets up logging
// and error reporting.
func initialize(settings *conf.Settings) error {
	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}

	centralLogger, err := logger.NewCentralLogger(settings.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(centralLogger)

	if err := observability.InitSentry(settings); err != nil {
		logger.Global().Module("main").Warn("error reporting disabled", logger.Error(err))
	}

	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Log.Level, "loglevel", viper.GetString("log.level"), "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().Float64VarP(&settings.Sensitivity.Value, "sensitivity", "s", viper.GetFloat64("sensitivity.value"), "Initial sensitivity between 0.0 and 1.0")
	rootCmd.PersistentFlags().StringVar(&settings.Analysis.Mode, "mode", viper.GetString("analysis.mode"), "Analysis mode: spectrum or amplitude")
	rootCmd.PersistentFlags().IntVar(&settings.Analysis.Bands, "bands", viper.GetInt("analysis.bands"), "Number of values in each visualization frame")
	rootCmd.PersistentFlags().IntVar(&settings.Analysis.WindowSize, "window", viper.GetInt("analysis.windowsize"), "Analysis window in samples, a power of two")
	rootCmd.PersistentFlags().Float64Var(&settings.Dispatch.MaxRate, "rate", viper.GetFloat64("dispatch.maxrate"), "Maximum frames per second delivered to subscribers")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
