package bolus

// Doses es el menú fijo de bolos que ofrece el chat.
var doses = []float64{0.5, 1.0, 1.5}

func Doses() []float64 {
	out := make([]float64, len(doses))
	copy(out, doses)
	return out
}

// Valid indica si d es una de las dosis del menú.
func Valid(d float64) bool {
	for _, x := range doses {
		if x == d {
			return true
		}
	}
	return false
}
