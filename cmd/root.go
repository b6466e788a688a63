package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	gopsagent "github.com/google/gops/agent"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriTable/internal/app"
	"github.com/Rorical/RoriTable/internal/config"
	"github.com/Rorical/RoriTable/internal/logging"
)

var diagnostics bool

var rootCmd = &cobra.Command{
	Use:   "roritable",
	Short: "Create SmartSuite records by describing them",
	Long: `RoriTable is a terminal assistant that turns plain-language requests into
SmartSuite records. It reads table structure, resolves members and returns a
link to every record it creates.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !diagnostics {
			return nil
		}
		if err := gopsagent.Listen(gopsagent.Options{}); err != nil {
			return fmt.Errorf("start diagnostics agent: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if diagnostics {
			gopsagent.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		return runChat(cfg)
	},
}

// runChat starts the terminal UI. Logs go to a file because the UI owns the terminal.
func runChat(cfg *config.Config) error {
	logger, closer, err := fileLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	application := app.NewApplication(cfg, logger)
	defer application.Stop()

	logger.Info("starting chat", "profile", cfg.ActiveProfile, "model", cfg.GetModel())
	if err := application.Start(); err != nil {
		return fmt.Errorf("application error: %w", err)
	}
	return nil
}

func fileLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		return nil, nil, err
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return logging.NewFile(filepath.Join(dir, "roritable.log"), level)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&diagnostics, "diagnostics", false, "start a gops agent for runtime inspection")
	rootCmd.AddCommand(profileCmd)
}
