/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/db"
	"github.com/samajportal/apiserver/internal/metrics"
	"github.com/samajportal/apiserver/internal/mq"
	"github.com/samajportal/apiserver/internal/notify"
	"github.com/samajportal/apiserver/internal/store"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Stores queued member notifications",
	Long: `Consumes the notification channel of the configured message queue and
writes each notification to the database. Not needed when MQ_BACKEND=none.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ, logger)
		if errors.Is(err, mq.ErrDisabled) {
			return errors.New("MQ_BACKEND is none; notifications are stored by the server")
		}
		if err != nil {
			return err
		}
		defer func() { _ = queue.Close() }()

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() { _ = dbConn.Close() }()

		w := notify.NewWorker(queue, cfg.MQ.NotifyChannel, store.NewNotificationRepository(dbConn), logger, metrics.New())
		if err := w.Run(ctx); err != nil {
			logger.Error("notification worker stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
