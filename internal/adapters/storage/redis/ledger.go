package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"glucose-bot/internal/domain/iob"
)

// DoseLedger guarda cada dosis como un elemento JSON de una lista Redis.
// RPUSH es atómico: no hay read-modify-write ni riesgo de perder updates.
type DoseLedger struct {
	rdb goredis.UniversalClient
	key string
}

func NewDoseLedger(rdb goredis.UniversalClient, key string) *DoseLedger {
	return &DoseLedger{rdb: rdb, key: key}
}

// Dial crea el cliente y verifica la conexión.
func Dial(ctx context.Context, addr, key string) (*DoseLedger, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewDoseLedger(rdb, key), nil
}

func (l *DoseLedger) Close() error {
	return l.rdb.Close()
}

func (l *DoseLedger) Append(ctx context.Context, e iob.DoseEvent) error {
	b, err := encode(e)
	if err != nil {
		return err
	}
	return l.rdb.RPush(ctx, l.key, b).Err()
}

func (l *DoseLedger) List(ctx context.Context) ([]iob.DoseEvent, error) {
	items, err := l.rdb.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return decodeAll(items)
}

type record struct {
	Timestamp int64   `json:"timestamp"`
	Dose      float64 `json:"dose"`
	ID        string  `json:"id,omitempty"`
}

func encode(e iob.DoseEvent) ([]byte, error) {
	if e.Dose <= 0 {
		return nil, errors.New("dose must be positive")
	}
	return json.Marshal(record{Timestamp: e.Timestamp, Dose: e.Dose, ID: e.ID})
}

func decodeAll(items []string) ([]iob.DoseEvent, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]iob.DoseEvent, 0, len(items))
	for i, raw := range items {
		var r record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode dose #%d: %w", i, err)
		}
		out = append(out, iob.DoseEvent{ID: r.ID, Timestamp: r.Timestamp, Dose: r.Dose})
	}
	return out, nil
}
