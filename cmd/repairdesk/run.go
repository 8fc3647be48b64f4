package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vodchyts/repairdesk/internal/backend"
	"github.com/vodchyts/repairdesk/internal/bot"
	"github.com/vodchyts/repairdesk/internal/chat/telegram"
	"github.com/vodchyts/repairdesk/internal/config"
	"github.com/vodchyts/repairdesk/internal/notify"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot and the notify endpoint",
		Long:  "Connects to Telegram, serves the conversation flows, and exposes the HTTP notification endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "repairdesk.yaml", "path to config file")
	return cmd
}

func runDaemon(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := backend.NewClient(backend.ClientOpts{
		BaseURL: cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
	})
	if err != nil {
		return err
	}

	adapter, err := telegram.New(telegram.AdapterOpts{Token: cfg.Telegram.Token})
	if err != nil {
		return err
	}

	engine, err := bot.New(bot.Opts{
		API:     client,
		Gateway: adapter,
		Out:     cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go func() {
		if err := notify.Start(ctx, notify.StartOpts{
			Gateway: adapter,
			Port:    cfg.Notify.Port,
			Out:     cmd.OutOrStdout(),
		}); err != nil {
			log.Printf("main: notify server: %v", err)
			cancel()
		}
	}()

	if cfg.Sessions.SweepCron != "" {
		ttl := time.Duration(cfg.Sessions.IdleTTLMin) * time.Minute
		go func() {
			if err := engine.SweepIdleSessions(ctx, cfg.Sessions.SweepCron, ttl); err != nil {
				log.Printf("main: session sweeper: %v", err)
			}
		}()
	}

	return engine.Run(ctx, adapter)
}
