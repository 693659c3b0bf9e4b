package service

import (
	"math"
	"strings"

	"holder-risk-engine/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// ParseFraction converts a raw supply share into a fraction.
// The boolean is false when the value is empty, not a finite decimal, or
// negative; the fraction is 0 in that case.
func ParseFraction(raw entity.RawPercentage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if d.IsNegative() {
		return 0, false
	}

	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// NormalizeHolders turns raw holder records into holders. Records whose
// percentage cannot be parsed keep their address with a fraction of 0.
// The number of such malformed records is returned for logging.
func NormalizeHolders(raw []entity.RawHolder) ([]entity.Holder, int) {
	holders := make([]entity.Holder, 0, len(raw))
	malformed := 0

	for _, r := range raw {
		fraction, ok := ParseFraction(r.AmountPercentage)
		if !ok {
			malformed++
		}
		holders = append(holders, entity.Holder{
			Address:  r.Address,
			Fraction: fraction,
		})
	}

	return holders, malformed
}

// HoldingsMap maps each address to its fraction. A later record for the
// same address overwrites an earlier one.
func HoldingsMap(holders []entity.Holder) map[string]float64 {
	holdings := make(map[string]float64, len(holders))
	for _, h := range holders {
		fraction := h.Fraction
		if fraction < 0 {
			fraction = 0
		}
		holdings[h.Address] = fraction
	}
	return holdings
}
