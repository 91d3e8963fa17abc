package iob

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidDose = errors.New("dose must be a positive number")

	// ErrStorage envuelve fallas de lectura/escritura del ledger.
	// Un ledger ausente NO es ErrStorage (ver Repository.List).
	ErrStorage = errors.New("iob ledger storage error")
)

type Service struct {
	repo   Repository
	window time.Duration
	now    func() time.Time
	newID  func() string
}

func NewService(repo Repository, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultActionWindow
	}
	return &Service{
		repo:   repo,
		window: window,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Service) Window() time.Duration {
	return s.window
}

// Record agrega un bolo al ledger. `at` no se valida contra el reloj.
func (s *Service) Record(ctx context.Context, dose float64, at time.Time) (DoseEvent, error) {
	if math.IsNaN(dose) || math.IsInf(dose, 0) || dose <= 0 {
		return DoseEvent{}, ErrInvalidDose
	}

	e := DoseEvent{
		ID:        s.newID(),
		Timestamp: at.Unix(),
		Dose:      dose,
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return DoseEvent{}, fmt.Errorf("%w: append: %v", ErrStorage, err)
	}
	return e, nil
}

// Current es ActiveAt(now).
func (s *Service) Current(ctx context.Context) (float64, error) {
	return s.ActiveAt(ctx, s.now())
}

// ActiveAt calcula la insulina activa en `at` con la ventana configurada.
// Ledger vacío o ausente => 0, nil. Ledger ilegible => 0, ErrStorage.
func (s *Service) ActiveAt(ctx context.Context, at time.Time) (float64, error) {
	events, err := s.History(ctx)
	if err != nil {
		return 0, err
	}
	return ActiveInsulin(events, at.Unix(), s.window), nil
}

// History devuelve el ledger completo en orden de inserción.
func (s *Service) History(ctx context.Context) ([]DoseEvent, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStorage, err)
	}
	return events, nil
}
