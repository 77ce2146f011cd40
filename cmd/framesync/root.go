package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/framesync/internal/config"
	"github.com/aretw0/framesync/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// settings is shared by every command; flags are bound to it in init.
var settings = config.New()

var rootCmd = &cobra.Command{
	Use:   "framesync",
	Short: "framesync keeps a host page's URL hash and an embedded mini-app in sync",
	Long: `framesync runs a host page and an embedded mini-app that exchange
navigate/routeChanged/ready messages, so the address bar hash, the browser
history and the mini-app's route always agree.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./framesync.yaml, or $FRAMESYNC_CONFIG)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().String("manifest", "", "Mini-app manifest (YAML or JSON); the demo app when empty")

	mustBind(settings, "log.debug", rootCmd.PersistentFlags().Lookup("debug"))
	mustBind(settings, "app.manifest", rootCmd.PersistentFlags().Lookup("manifest"))
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// loadConfig resolves the configuration for cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(settings, path)
}

// newLogger builds the service logger from the configuration.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Log.Debug {
		level = slog.LevelDebug
	}
	return logging.NewWithWriter(os.Stderr, level, logging.Format(cfg.Log.Format))
}
