package iob

import "time"

// DoseEvent es un bolo registrado en el ledger.
// Una vez agregado no se modifica ni se borra.
type DoseEvent struct {
	ID string

	// Timestamp en segundos epoch (UTC), momento de la aplicación.
	Timestamp int64

	// Dose en unidades de insulina (> 0).
	Dose float64
}

func (e DoseEvent) Time() time.Time {
	return time.Unix(e.Timestamp, 0).UTC()
}
