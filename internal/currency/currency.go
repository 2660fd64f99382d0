package currency

import (
	"math"

	"github.com/rafaelsava/S2Market/internal/domain"
)

// Code is an ISO 4217 currency code. Prices are stored in COP.
type Code string

const (
	COP Code = "COP"
	USD Code = "USD"
	EUR Code = "EUR"
	MXN Code = "MXN"
)

var supported = []Code{COP, USD, EUR, MXN}

// Parse accepts the display currencies offered to buyers. An empty value
// means COP.
func Parse(s string) (Code, error) {
	if s == "" {
		return COP, nil
	}
	for _, c := range supported {
		if string(c) == s {
			return c, nil
		}
	}
	return "", &domain.DecodeError{Field: "currency", Value: s}
}

// Convert applies rate to a COP amount and rounds to cents.
func Convert(amountCOP int64, rate float64) float64 {
	return math.Round(float64(amountCOP)*rate*100) / 100
}
