package bolus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"glucose-bot/internal/domain/iob"
)

var (
	ErrInvalidDose = errors.New("dose is not on the menu")

	// ErrLedgerWrite: Nightscout aceptó el bolo pero el ledger local falló.
	// El usuario no debe reintentar (duplicaría el tratamiento).
	ErrLedgerWrite = errors.New("treatment sent but not tracked locally")
)

// TreatmentsSink es el servicio remoto de tratamientos (Nightscout).
type TreatmentsSink interface {
	PostBolus(ctx context.Context, dose float64, at time.Time) error
}

// Notifier avisa al chat de operadores. Puede ser nil.
type Notifier interface {
	NotifyBolus(ctx context.Context, n Notification) error
}

type Notification struct {
	Dose     float64
	At       time.Time
	Username string
}

type Service struct {
	sink     TreatmentsSink
	ledger   *iob.Service
	notifier Notifier
}

func NewService(sink TreatmentsSink, ledger *iob.Service, notifier Notifier) *Service {
	return &Service{
		sink:     sink,
		ledger:   ledger,
		notifier: notifier,
	}
}

type LogInput struct {
	Dose     float64
	At       time.Time
	Username string
}

type LogResult struct {
	Event iob.DoseEvent

	// NotifyErr no hace fallar la operación; el caller sólo lo loguea.
	NotifyErr error
}

// Log registra un bolo: primero Nightscout (fallo = nada se guarda),
// después el ledger local, después la notificación.
func (s *Service) Log(ctx context.Context, in LogInput) (LogResult, error) {
	if !Valid(in.Dose) {
		return LogResult{}, ErrInvalidDose
	}
	if in.At.IsZero() {
		return LogResult{}, fmt.Errorf("%w: missing time", ErrInvalidDose)
	}

	if err := s.sink.PostBolus(ctx, in.Dose, in.At); err != nil {
		return LogResult{}, err
	}

	e, err := s.ledger.Record(ctx, in.Dose, in.At)
	if err != nil {
		return LogResult{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	res := LogResult{Event: e}
	if s.notifier != nil {
		res.NotifyErr = s.notifier.NotifyBolus(ctx, Notification{
			Dose:     in.Dose,
			At:       in.At,
			Username: strings.TrimSpace(in.Username),
		})
	}
	return res, nil
}
