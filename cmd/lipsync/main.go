// Package main is the entry point for the lipsync CLI.
// lipsync drives an avatar mouth from speech: it turns text, audio and host
// TTS timing into per-frame loudness and mouth shapes.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/normanking/cortexlipsync/internal/config"
	"github.com/normanking/cortexlipsync/internal/logging"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool

	cfg     *config.Config
	manager *config.Manager
	log     *logging.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lipsync",
		Short: "lipsync - audio-driven viseme synthesis and timing",
		Long: `lipsync turns an utterance into a stream of mouth frames.

Run an utterance offline:   lipsync simulate "こんにちは"
Print a viseme timeline:    lipsync timeline "Hello world." --format yaml
Stream frames to clients:   lipsync serve`,
		PersistentPreRunE: initConfig,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				log.Close()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.cortexlipsync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lipsync v%s\n", version)
		},
	})

	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(timelineCmd())
	rootCmd.AddCommand(serveCmd())

	return rootCmd
}

// initConfig loads configuration and sets up logging. Offline commands only
// read a config file when --config is given and log to the console.
func initConfig(cmd *cobra.Command, args []string) error {
	offline := cmd.Name() != "serve"

	if offline && cfgPath == "" {
		cfg = config.DefaultConfig()
	} else {
		manager = config.NewManager(cfgPath, bootstrapLogger())
		loaded, err := manager.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	logCfg := cfg.Log
	if offline {
		logCfg = logging.Config{Level: logging.LevelWarn, Console: true, MaxHistory: 100}
	}
	if verbose {
		logCfg.Level = logging.LevelDebug
	}

	l, err := logging.New(&logCfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log = l
	return nil
}

// bootstrapLogger reports config problems before the configured logger
// exists.
func bootstrapLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().
		Timestamp().
		Str("component", "config").
		Logger()
}
