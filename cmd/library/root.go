package main

import (
	"context"
	"fmt"
	"libraloan/internal/config"
	"libraloan/internal/logging"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "library",
	Short: "Library loan service",
	Long: `library lends a finite pool of book copies to members, tracks every
loan from borrow to return, and reports loans that are past due.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute(v string) {
	rootCmd.Version = v

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./libraloan.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd, seedCmd, overdueCmd, auditCmd)
}

func setup(*cobra.Command, []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err = logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	if cfg.ConfigFile != "" {
		log.Debug("config loaded", zap.String("file", cfg.ConfigFile))
	}
	return nil
}
