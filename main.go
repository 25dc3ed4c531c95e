package main

import (
	"fmt"
	"os"

	"logreplay/config"
	"logreplay/share"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "logreplay",
		Short:         "Normalize, link and attribute combat log events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ProfileDir, "profiles", cfg.ProfileDir, "profile directory")
	rootCmd.PersistentFlags().StringVar(&cfg.AbilityFile, "abilities", cfg.AbilityFile, "ability catalog (csv)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&cfg.Strict, "strict", cfg.Strict, "check ordering after every normalizer pass")

	rootCmd.AddCommand(
		serveCommand(&cfg),
		analyzeCommand(&cfg),
		validateCommand(&cfg),
	)

	if err := share.InitSentry(cfg.SentryDSN); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	}
	defer share.FlushSentry()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		share.FlushSentry()
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}

	var zc zap.Config
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}
