package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"glucose-bot/internal/domain/iob"
)

const schema = `
CREATE TABLE IF NOT EXISTS insulin_doses (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	id   TEXT UNIQUE,
	ts   INTEGER NOT NULL,
	dose REAL NOT NULL CHECK (dose > 0)
);`

// DoseLedger es el ledger embebido: un INSERT por dosis, sin reescribir
// el historial completo como hace el backend de archivo.
type DoseLedger struct {
	db *sql.DB
}

// Open abre (o crea) la base en path y aplica el schema.
func Open(ctx context.Context, path string) (*DoseLedger, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// un solo writer; evita SQLITE_BUSY entre goroutines
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &DoseLedger{db: db}, nil
}

func (l *DoseLedger) Close() error {
	return l.db.Close()
}

func (l *DoseLedger) Append(ctx context.Context, e iob.DoseEvent) error {
	if e.Dose <= 0 {
		return errors.New("dose must be positive")
	}

	var id any
	if s := strings.TrimSpace(e.ID); s != "" {
		id = s
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO insulin_doses (id, ts, dose) VALUES (?, ?, ?)`,
		id, e.Timestamp, e.Dose,
	)
	return err
}

func (l *DoseLedger) List(ctx context.Context) ([]iob.DoseEvent, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id, ts, dose FROM insulin_doses ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []iob.DoseEvent
	for rows.Next() {
		var (
			e  iob.DoseEvent
			id sql.NullString
		)
		if err := rows.Scan(&id, &e.Timestamp, &e.Dose); err != nil {
			return nil, err
		}
		e.ID = id.String
		out = append(out, e)
	}
	return out, rows.Err()
}
