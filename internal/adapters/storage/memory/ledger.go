package memory

import (
	"context"
	"errors"
	"sync"

	"glucose-bot/internal/domain/iob"
)

type doseLedger struct {
	mu     sync.RWMutex
	events []iob.DoseEvent
}

// NewDoseLedger es el ledger en memoria (modo dev / tests). Se pierde al reiniciar.
func NewDoseLedger() iob.Repository {
	return &doseLedger{}
}

func (r *doseLedger) Append(ctx context.Context, e iob.DoseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Dose <= 0 {
		return errors.New("dose must be positive")
	}
	r.events = append(r.events, e)
	return nil
}

func (r *doseLedger) List(ctx context.Context) ([]iob.DoseEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.events) == 0 {
		return nil, nil
	}
	out := make([]iob.DoseEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}
