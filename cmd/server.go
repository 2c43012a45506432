/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/server"
)

const shutdownTimeout = 15 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the portal API server",
	Long: `Starts the portal API server. Usage:

	samaj server
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
