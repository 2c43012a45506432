/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/config"
	"github.com/samajportal/apiserver/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "samaj",
	Short: "Community membership portal backend",
	Long: `samaj runs the membership portal API: member sign-up and lineage
verification, the pandit directory, events, donations and the gallery.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadRuntime reads the environment and builds the process logger.
func loadRuntime() (config.Config, *zap.Logger, error) {
	cfg := config.LoadConfig()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
