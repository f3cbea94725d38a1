package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validParams() ActivityParams {
	return ActivityParams{
		ID:        "act-1",
		Category:  CategoryTransport,
		Type:      "car_petrol",
		Value:     10,
		CO2eKg:    1.71,
		Date:      NewDate(2026, time.March, 4),
		Metadata:  map[string]any{"trip": "commute"},
		Owner:     Owner{SessionID: "sess-1"},
		CreatedAt: time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC),
	}
}

func TestNewActivityRejectsInvalidInput(t *testing.T) {
	cases := map[string]func(*ActivityParams){
		"negative value":   func(p *ActivityParams) { p.Value = -1 },
		"negative co2e":    func(p *ActivityParams) { p.CO2eKg = -0.01 },
		"no owner":         func(p *ActivityParams) { p.Owner = Owner{} },
		"both owners":      func(p *ActivityParams) { p.Owner = Owner{UserID: "u", SessionID: "s"} },
		"missing type":     func(p *ActivityParams) { p.Type = "" },
		"missing date":     func(p *ActivityParams) { p.Date = time.Time{} },
		"missing category": func(p *ActivityParams) { p.Category = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validParams()
			mutate(&p)
			_, err := NewActivity(p)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestWithRecalculationPreservesIdentity(t *testing.T) {
	original, err := NewActivity(validParams())
	require.NoError(t, err)

	updated, err := original.WithRecalculation(Recalculation{
		Type:   "bus",
		Value:  30,
		CO2eKg: 2.67,
		Date:   NewDate(2026, time.March, 5),
		Notes:  "changed",
	})
	require.NoError(t, err)

	require.Equal(t, original.ID, updated.ID)
	require.Equal(t, original.Category, updated.Category)
	require.Equal(t, original.CreatedAt, updated.CreatedAt)
	require.Equal(t, original.Owner(), updated.Owner())
	require.Equal(t, "commute", updated.Metadata["trip"])
	require.Equal(t, "car_petrol", original.Type)
	require.Equal(t, 2.67, updated.CO2eKg)
}

func TestActivityOwnedBy(t *testing.T) {
	sessionOwned, err := NewActivity(validParams())
	require.NoError(t, err)
	require.True(t, sessionOwned.OwnedBy(Owner{SessionID: "sess-1"}))
	require.False(t, sessionOwned.OwnedBy(Owner{SessionID: "sess-2"}))
	require.False(t, sessionOwned.OwnedBy(Owner{UserID: "user-1"}))

	p := validParams()
	p.Owner = Owner{UserID: "user-1"}
	userOwned, err := NewActivity(p)
	require.NoError(t, err)
	require.True(t, userOwned.OwnedBy(Owner{UserID: "user-1"}))
	require.False(t, userOwned.OwnedBy(Owner{SessionID: "sess-1"}))
}

func TestRoundHalfToEven(t *testing.T) {
	require.Equal(t, 1.33, Round(15.0*0.089, 2))
	require.Equal(t, 23.0, Round(100*0.23, 2))
	require.Equal(t, 0.12, Round(0.125, 2))
	require.Equal(t, 2.67, Round(30*0.089, 2))
	require.Equal(t, 5541.0, Round(5540.6, 0))
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = NewNotFoundError("airport", "XXX")
	require.True(t, errors.Is(err, ErrNotFound))
	require.False(t, errors.Is(err, ErrValidation))

	err = NewAuthorizationError("not yours")
	require.True(t, errors.Is(err, ErrForbidden))

	err = NewValidationError("value", "must be positive")
	require.EqualError(t, err, "value: must be positive")
}

func TestNewAirportValidation(t *testing.T) {
	_, err := NewAirport(Airport{IATACode: "JF", Latitude: 10, Longitude: 10})
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewAirport(Airport{IATACode: "JFK", Latitude: 91})
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewAirport(Airport{IATACode: "JFK", Longitude: -181})
	require.ErrorIs(t, err, ErrValidation)

	a, err := NewAirport(Airport{IATACode: "JFK", CountryCode: "US", Latitude: 40.6413, Longitude: -73.7781})
	require.NoError(t, err)
	require.Equal(t, "JFK", a.IATACode)
}

func TestNewUserRequiresEmail(t *testing.T) {
	_, err := NewUser(User{ID: "u1", Email: "nobody"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewUser(User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)
}

func TestPeriodPrevious(t *testing.T) {
	p := Period{Start: NewDate(2026, time.February, 1), End: NewDate(2026, time.February, 28)}
	require.Equal(t, 28, p.Days())

	prev := p.Previous()
	require.Equal(t, NewDate(2026, time.January, 4), prev.Start)
	require.Equal(t, NewDate(2026, time.January, 31), prev.End)
	require.Equal(t, 28, prev.Days())
}
