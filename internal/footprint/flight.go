package footprint

import (
	"math"
	"strings"

	"example.com/footprint/internal/domain"
)

const earthRadiusKm = 6371.0

// Haul thresholds in km.
const (
	shortHaulMaxKm  = 1500
	mediumHaulMaxKm = 4000
)

// CalculateDistanceKm returns the haversine great-circle distance between two airports,
// rounded to the nearest kilometre.
func CalculateDistanceKm(origin, destination domain.Airport) float64 {
	lat1 := toRadians(origin.Latitude)
	lat2 := toRadians(destination.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(destination.Longitude) - toRadians(origin.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return domain.Round(earthRadiusKm*c, 0)
}

// DetermineFlightType returns flight_{domestic|international}_{short|medium|long}.
func DetermineFlightType(origin, destination domain.Airport, distanceKm float64) string {
	scope := "international"
	if origin.CountryCode == destination.CountryCode {
		scope = "domestic"
	}

	haul := "long"
	switch {
	case distanceKm < shortHaulMaxKm:
		haul = "short"
	case distanceKm <= mediumHaulMaxKm:
		haul = "medium"
	}
	return "flight_" + scope + "_" + haul
}

// ExtractHaulType returns the last underscore-separated token of a flight type.
func ExtractHaulType(flightType string) string {
	if i := strings.LastIndex(flightType, "_"); i >= 0 {
		return flightType[i+1:]
	}
	return flightType
}

// IsDomestic reports whether the flight type names a domestic flight.
func IsDomestic(flightType string) bool {
	return strings.Contains(flightType, "domestic")
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
