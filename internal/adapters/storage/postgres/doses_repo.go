package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"glucose-bot/internal/domain/iob"
)

const dosesSchema = `
CREATE TABLE IF NOT EXISTS insulin_doses (
	seq         BIGSERIAL PRIMARY KEY,
	id          TEXT UNIQUE,
	ts          BIGINT NOT NULL,
	dose        DOUBLE PRECISION NOT NULL CHECK (dose > 0),
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DosesRepo implementa iob.Repository. El orden de inserción lo da `seq`.
type DosesRepo struct {
	db *sql.DB
}

func NewDosesRepo(db *sql.DB) *DosesRepo {
	return &DosesRepo{db: db}
}

// EnsureSchema crea la tabla si no existe.
func (r *DosesRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, dosesSchema)
	return err
}

func (r *DosesRepo) Append(ctx context.Context, e iob.DoseEvent) error {
	if e.Dose <= 0 {
		return errors.New("dose must be positive")
	}

	var id sql.NullString
	if s := strings.TrimSpace(e.ID); s != "" {
		id = sql.NullString{String: s, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO insulin_doses (id, ts, dose)
		VALUES ($1, $2, $3)
	`, id, e.Timestamp, e.Dose)
	return err
}

func (r *DosesRepo) List(ctx context.Context) ([]iob.DoseEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ts, dose
		FROM insulin_doses
		ORDER BY seq ASC
	`)
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
