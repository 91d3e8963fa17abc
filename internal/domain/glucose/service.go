package glucose

import (
	"context"
	"errors"
)

// DefaultHistorySize es la cantidad de lecturas del comando historial.
const DefaultHistorySize = 10

var (
	ErrNoData       = errors.New("no glucose entries")
	ErrInvalidInput = errors.New("invalid input")
)

// EntriesSource es el servicio remoto de lecturas (Nightscout).
// Devuelve las últimas `count` lecturas, la más reciente primero.
type EntriesSource interface {
	LatestEntries(ctx context.Context, count int) ([]Entry, error)
}

type Service struct {
	src EntriesSource
}

func NewService(src EntriesSource) *Service {
	return &Service{src: src}
}

// Current devuelve la última lectura.
func (s *Service) Current(ctx context.Context) (Entry, error) {
	items, err := s.src.LatestEntries(ctx, 1)
	if err != nil {
		return Entry{}, err
	}
	if len(items) == 0 {
		return Entry{}, ErrNoData
	}
	return items[0], nil
}

// History devuelve hasta n lecturas (n<=0 => DefaultHistorySize).
func (s *Service) History(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = DefaultHistorySize
	}
	if n > 1000 {
		return nil, ErrInvalidInput
	}
	items, err := s.src.LatestEntries(ctx, n)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoData
	}
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}
