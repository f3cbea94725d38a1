// Package footprint holds the pure emission calculations: CO2e conversion, aggregation over
// activity lists, regional comparison and flight distance classification.
//
// Every function is stateless and never mutates its inputs.
package footprint

import "example.com/footprint/internal/domain"

// CalculateCO2e converts an activity quantity into kg CO2e using factor, rounded to two
// decimals half-to-even.
func CalculateCO2e(value float64, factor domain.EmissionFactor) (float64, error) {
	if value < 0 {
		return 0, domain.NewValidationError("value", "must be non-negative, got %v", value)
	}
	return domain.Round(value*factor.Factor, 2), nil
}
