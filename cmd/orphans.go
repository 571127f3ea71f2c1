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
	"github.com/storefront/apiserver/internal/mq"
	"github.com/storefront/apiserver/internal/orphans"
	"github.com/storefront/apiserver/internal/storage"
)

// orphansCmd groups the orphaned object maintenance commands.
var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Manage blob store objects no product references",
}

var orphansSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Consume orphan reports and delete the objects they name",
	Long: `Subscribes to the orphan channel (MQ_ORPHAN_CHANNEL) and deletes each
reported object from the bucket. Failed deletions are redelivered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("init mq: %w", err)
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is required to sweep orphans")
		}
		defer func() {
			_ = queue.Close()
		}()

		blobs, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		defer func() {
			_ = blobs.Close()
		}()

		return orphans.NewSweeper(log, blobs).Run(ctx, queue, cfg.MQ.OrphanChannel)
	},
}

func init() {
	rootCmd.AddCommand(orphansCmd)
	orphansCmd.AddCommand(orphansSweepCmd)
}
