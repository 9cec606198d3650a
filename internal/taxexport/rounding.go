package taxexport

import "math"

// Rounding parameters recorded on every package. Downstream renderers must
// not re-round; every monetary field has already passed through RoundCents
// exactly once.
const (
	RoundingMode      = "half-away-from-zero"
	RoundingPrecision = 2
)

// RoundCents rounds a currency amount to the minor unit (cents), half away
// from zero. Idempotent: RoundCents(RoundCents(x)) == RoundCents(x) for any
// finite x.
func RoundCents(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return math.Round(amount*100) / 100
}
