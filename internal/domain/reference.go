package domain

import (
	"strings"
	"time"
)

// EmissionFactor converts an activity quantity into kg CO2e.
type EmissionFactor struct {
	ID        int
	Category  string
	Type      string
	Factor    float64
	Unit      string
	Source    string
	Notes     string
	CreatedAt time.Time
}

// NewEmissionFactor validates and returns an EmissionFactor.
func NewEmissionFactor(f EmissionFactor) (EmissionFactor, error) {
	if strings.TrimSpace(f.Type) == "" {
		return EmissionFactor{}, NewValidationError("activity_type", "is required")
	}
	if strings.TrimSpace(f.Category) == "" {
		return EmissionFactor{}, NewValidationError("category", "is required")
	}
	if f.Factor < 0 {
		return EmissionFactor{}, NewValidationError("co2e_factor", "must be non-negative, got %v", f.Factor)
	}
	return f, nil
}

// Airport is an entry in the static airport dataset.
type Airport struct {
	IATACode    string
	ICAOCode    string
	Name        string
	City        string
	Country     string
	CountryCode string
	Latitude    float64
	Longitude   float64
}

// NewAirport validates and returns an Airport.
func NewAirport(a Airport) (Airport, error) {
	if len(a.IATACode) != 3 {
		return Airport{}, NewValidationError("iata_code", "must be exactly 3 characters, got %q", a.IATACode)
	}
	if a.CountryCode != "" && len(a.CountryCode) != 2 {
		return Airport{}, NewValidationError("country_code", "must be exactly 2 characters, got %q", a.CountryCode)
	}
	if a.Latitude < -90 || a.Latitude > 90 {
		return Airport{}, NewValidationError("latitude", "must be between -90 and 90, got %v", a.Latitude)
	}
	if a.Longitude < -180 || a.Longitude > 180 {
		return Airport{}, NewValidationError("longitude", "must be between -180 and 180, got %v", a.Longitude)
	}
	return a, nil
}

// RegionalAverage is a benchmark annual footprint for a country or region.
type RegionalAverage struct {
	Code                string
	Name                string
	AverageAnnualCO2eKg float64
	Breakdown           map[string]float64
	Source              string
}

// User is an authenticated account.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// NewUser validates and returns a User.
func NewUser(u User) (User, error) {
	if strings.TrimSpace(u.ID) == "" {
		return User{}, NewValidationError("id", "is required")
	}
	if !strings.Contains(u.Email, "@") {
		return User{}, NewValidationError("email", "invalid email: %q", u.Email)
	}
	return u, nil
}

// Period is an inclusive calendar date range.
type Period struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days in the period, counting both ends.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// Previous returns the period of equal length that ends the day before p starts.
func (p Period) Previous() Period {
	length := p.Days()
	return Period{
		Start: p.Start.AddDate(0, 0, -length),
		End:   p.Start.AddDate(0, 0, -1),
	}
}
