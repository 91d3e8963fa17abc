package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"glucose-bot/internal/adapters/telegram"
	"glucose-bot/internal/domain/iob"
	"glucose-bot/internal/platform/config"
)

// newUpdatesCmd lista los updates pendientes (chat_id y texto): sirve para
// descubrir los ids de AUTHORIZED_USERS. No confirma el offset.
func newUpdatesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "updates",
		Short: "Print pending Telegram updates as `chat_id text`",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			tg, err := telegram.NewClient(telegram.Config{Token: cfg.TelegramToken, PollTimeout: time.Second})
			if err != nil {
				return err
			}

			updates, err := tg.GetUpdates(cmd.Context(), 0)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range updates {
				if u.Message == nil {
					continue
				}
				_, _ = fmt.Fprintln(out, u.Message.Chat.ID, u.Message.Text)
			}
			return nil
		},
	}
}

func newIOBCmd(configPath *string) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "iob",
		Short: "Print insulin on board from the configured ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateLedger(); err != nil {
				return err
			}

			when := time.Now()
			if s := strings.TrimSpace(at); s != "" {
				when, err = time.Parse(time.RFC3339, s)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			v, err := activeInsulin(cmd.Context(), cfg, when)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(v, 'f', 2, 64))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 instant (default now)")
	return cmd
}

func activeInsulin(ctx context.Context, cfg config.Config, at time.Time) (float64, error) {
	repo, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer func() { _ = closeLedger() }()

	return iob.NewService(repo, cfg.ActionWindow()).ActiveAt(ctx, at)
}
