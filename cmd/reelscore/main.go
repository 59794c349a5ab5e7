// Package main is the entry point for the reelscore CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/use-agent/reelscore/config"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the reelscore CLI.
var rootCmd = &cobra.Command{
	Use:   "reelscore",
	Short: "Collect IMDb and Rotten Tomatoes ratings for a list of movies",
	Long: `reelscore looks every title of a list up on IMDb and Rotten Tomatoes,
merges rating, description and genres, and writes one report.

Configuration comes from defaults, an optional YAML file (--config),
REELSCORE_* environment variables and command flags, in increasing order
of precedence.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

// loadConfig reads the configuration for cmd. bindings maps config keys
// to the command's flag names; only flags the user set override lower
// layers.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	v, err := config.New(cfgFile)
	if err != nil {
		return nil, err
	}

	bindings["log.level"] = "log-level"
	if err := bindFlags(v, cmd.Flags(), bindings); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	initLogger(cfg.Log)
	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("using config file", "path", used)
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// a report written to stdout stays clean.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
