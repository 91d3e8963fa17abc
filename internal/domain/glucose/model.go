package glucose

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MgdlPerMmol es el factor de conversión usado para mostrar mmol/L.
const MgdlPerMmol = 18.0

// Entry es una lectura del sensor (CGM).
type Entry struct {
	SGV        int    // mg/dL
	Direction  string // Flat, FortyFiveUp, SingleDown, ...
	DateString string // tal como vino de Nightscout
	Time       time.Time
}

// MMOL convierte a mmol/L redondeado a 1 decimal.
func (e Entry) MMOL() float64 {
	return decimal.NewFromInt(int64(e.SGV)).
		Div(decimal.NewFromFloat(MgdlPerMmol)).
		Round(1).
		InexactFloat64()
}

// LocalClock devuelve la hora HH:MM en la zona indicada.
func (e Entry) LocalClock(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return e.Time.In(loc).Format("15:04")
}

// ParseDateString parsea el dateString de Nightscout
// (YYYY-MM-DDTHH:MM:SS.ffffffZ, fracción opcional y de cualquier largo).
func ParseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty dateString")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
