package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"glucose-bot/internal/adapters/auth/allowlist"
	"glucose-bot/internal/adapters/nightscout"
	"glucose-bot/internal/adapters/telegram"
	"glucose-bot/internal/bot"
	"glucose-bot/internal/domain/bolus"
	"glucose-bot/internal/domain/glucose"
	"glucose-bot/internal/domain/iob"
	"glucose-bot/internal/platform/config"
	"glucose-bot/internal/platform/i18n"
	"glucose-bot/internal/platform/logger"
	"glucose-bot/internal/platform/telemetry"
	"glucose-bot/internal/router"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (long polling or webhook, per TELEGRAM_MODE)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config:\n%w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, newLogger(cfg))
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log logger.Logger) error {
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.AppName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			log.Warn("telemetry shutdown", map[string]any{"err": err})
		}
	}()

	repo, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLedger(); err != nil {
			log.Warn("ledger close", map[string]any{"err": err})
		}
	}()

	tg, err := telegram.NewClient(telegram.Config{
		Token:       cfg.TelegramToken,
		PollTimeout: cfg.PollTimeout,
	})
	if err != nil {
		return err
	}
	ns, err := nightscout.NewClient(nightscout.Config{
		BaseURL:    cfg.NightscoutURL,
		SecretHash: cfg.NightscoutSecretHash(),
		Timeout:    cfg.NightscoutTimeout,
	})
	if err != nil {
		return err
	}

	tr := i18n.New(cfg.Locale)
	loc := cfg.Location()
	iobSvc := iob.NewService(repo, cfg.ActionWindow())

	b := bot.New(bot.Deps{
		Sender:     tg,
		Auth:       allowlist.New(cfg.AuthorizedUsers),
		Glucose:    glucose.NewService(ns),
		IOB:        iobSvc,
		Bolus:      bolus.NewService(ns, iobSvc, bot.NewNotifier(tg, cfg.NotifyChatID, tr, loc)),
		Translator: tr,
		Location:   loc,
		Log:        log,
		Metrics:    tel.Metrics,
	})

	// En polling no hay webhook; /iob sólo se monta si hay WEBHOOK_SECRET.
	var webhookHandler telegram.UpdateHandler
	if cfg.TelegramMode == config.ModeWebhook {
		webhookHandler = b
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: router.NewRouter(router.Options{
			Bot:           webhookHandler,
			IOB:           iobSvc,
			WebhookSecret: cfg.WebhookSecret,
			Log:           log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// un update puede esperar a Nightscout + Telegram
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	fields := map[string]any{
		"addr":     cfg.HTTPAddr,
		"mode":     string(cfg.TelegramMode),
		"ledger":   string(cfg.LedgerBackend),
		"window_h": cfg.IOBActionHours,
		"locale":   tr.Language().String(),
	}

	switch cfg.TelegramMode {
	case config.ModeWebhook:
		if err := tg.SetWebhook(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			_ = srv.Close()
			return err
		}
		log.Info("glucobot started", fields)

	default:
		// getUpdates falla con 409 si quedó un webhook registrado
		if err := tg.DeleteWebhook(ctx); err != nil {
			log.Warn("deleteWebhook failed", map[string]any{"err": err})
		}
		log.Info("glucobot started", fields)
		go func() {
			errCh <- telegram.NewPoller(tg, b, log).Run(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", map[string]any{"err": err})
	}
	log.Info("glucobot stopped", nil)
	return runErr
}
