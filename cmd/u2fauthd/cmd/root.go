package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"

	"github.com/solokeys-go/u2fauth/internal/config"
)

var logLevel slog.LevelVar

var rootCmd = &cobra.Command{
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Use:   "u2fauthd",
	Short: "FIDO U2F authenticator core, run as a local test harness",
	Long: `u2fauthd wraps the u2f package's Dispatcher in a small TCP test
harness so raw U2F APDUs can be exercised without real HID/NFC transport.
It is a development and interoperability tool, not a replacement for a
real authenticator's transport stack.`,
}

// Execute runs the root command (child commands register themselves in
// their own init functions) and exits with status 1 on error. Called once
// by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{
		Level: &logLevel,
	})))

	rootCmd.PersistentFlags().String("config", "", "Pathname of the configuration file")
	rootCmd.PersistentFlags().String("db", "", "sqlite DSN for the counter/key-material store")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
}

// loadConfig binds cmd's flags onto viper, reads a config file if one was
// given, then decodes and validates the merged result (internal/config).
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.GetViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	if err := v.BindPFlag("store.dsn", cmd.Flags().Lookup("db")); err != nil {
		return config.Config{}, err
	}
	if err := v.BindPFlag("log.level", cmd.Flags().Lookup("log-level")); err != nil {
		return config.Config{}, err
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}

	switch cfg.Log.Level {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}

	return cfg, nil
}
