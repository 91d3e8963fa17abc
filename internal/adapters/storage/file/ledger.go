package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"glucose-bot/internal/domain/iob"
)

// record es el formato persistido: [{"timestamp":..,"dose":..,"id":..}, ...]
type record struct {
	Timestamp int64   `json:"timestamp"`
	Dose      float64 `json:"dose"`
	ID        string  `json:"id,omitempty"`
}

// DoseLedger guarda el ledger completo en un único documento JSON.
// Cada Append lee todo, agrega y reescribe todo (tmp + rename), bajo mutex.
type DoseLedger struct {
	path string
	mu   sync.Mutex
}

func NewDoseLedger(path string) *DoseLedger {
	return &DoseLedger{path: path}
}

func (l *DoseLedger) Path() string {
	return l.path
}

func (l *DoseLedger) Append(ctx context.Context, e iob.DoseEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Dose <= 0 {
		return errors.New("dose must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	recs, err := l.read()
	if err != nil {
		return err
	}
	recs = append(recs, record{Timestamp: e.Timestamp, Dose: e.Dose, ID: e.ID})
	return l.write(recs)
}

func (l *DoseLedger) List(ctx context.Context) ([]iob.DoseEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	recs, err := l.read()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	out := make([]iob.DoseEvent, 0, len(recs))
	for _, r := range recs {
		out = append(out, iob.DoseEvent{ID: r.ID, Timestamp: r.Timestamp, Dose: r.Dose})
	}
	return out, nil
}

// read: archivo ausente => sin historial (nil, nil). JSON inválido => error.
func (l *DoseLedger) read() ([]record, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", l.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", l.path, err)
	}
	return recs, nil
}

func (l *DoseLedger) write(recs []record) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op después del rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
