package iob

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultActionWindow modela un análogo de acción rápida.
const DefaultActionWindow = 4*time.Hour + 30*time.Minute

// ActiveInsulin suma la insulina activa en `now` (segundos epoch) con
// decaimiento lineal: dosis completa en elapsed=0, cero en elapsed=window.
// Eventos futuros o fuera de la ventana aportan 0.
//
// El resultado se redondea a 2 decimales; la acumulación es a precisión completa.
func ActiveInsulin(events []DoseEvent, now int64, window time.Duration) float64 {
	return Round2(ActiveInsulinExact(events, now, window))
}

// ActiveInsulinExact es ActiveInsulin sin redondear.
func ActiveInsulinExact(events []DoseEvent, now int64, window time.Duration) float64 {
	windowSec := window.Seconds()
	if windowSec <= 0 {
		return 0
	}

	var total float64
	for _, e := range events {
		total += contribution(e, now, windowSec)
	}
	return total
}

func contribution(e DoseEvent, now int64, windowSec float64) float64 {
	elapsed := float64(now - e.Timestamp)
	if elapsed < 0 || elapsed >= windowSec {
		return 0
	}
	return e.Dose * (1 - elapsed/windowSec)
}

// Round2 redondea half-away-from-zero a 2 decimales.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
