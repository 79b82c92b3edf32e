package rules

import (
	"fmt"
	"math"
)

// Money is an amount in paise. Keeping currency arithmetic in the smallest
// unit avoids rounding drift across repeated EMI computations.
type Money int64

func FromRupees(r float64) Money {
	return Money(math.Round(r * 100))
}

func (m Money) Rupees() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	return fmt.Sprintf("₹%.0f", m.Rupees())
}
