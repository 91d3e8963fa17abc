package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glucose-bot/internal/platform/logger"
)

// UpdateHandler procesa un update hasta el final antes del siguiente.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u Update)
}

type UpdatesSource interface {
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
}

// Poller corre el loop de getUpdates. Secuencial: un update a la vez.
type Poller struct {
	src     UpdatesSource
	handler UpdateHandler
	log     logger.Logger

	// Backoff tras un error de getUpdates.
	Backoff time.Duration
}

func NewPoller(src UpdatesSource, handler UpdateHandler, log logger.Logger) *Poller {
	return &Poller{
		src:     src,
		handler: handler,
		log:     log,
		Backoff: 3 * time.Second,
	}
}

// Run bloquea hasta que ctx se cancela.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		updates, err := p.src.GetUpdates(ctx, offset)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			p.log.Warn("telegram getUpdates failed", map[string]any{"err": err})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.Backoff):
			}
			continue
		}

		for _, u := range updates {
			p.handle(ctx, u)
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
		}
	}
}

// handle aísla cada update: un panic se loguea y el offset avanza igual, si
// no Telegram reentregaría el mismo update para siempre.
func (p *Poller) handle(ctx context.Context, u Update) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("telegram update handler panicked", map[string]any{
				"update_id": u.UpdateID,
				"panic":     fmt.Sprint(r),
			})
		}
	}()
	p.handler.HandleUpdate(ctx, u)
}
