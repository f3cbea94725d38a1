// Package usecase sequences repository calls and footprint computations for each API
// operation. Use cases are single-pass: they never retry and return typed domain errors
// for validation, missing resources and ownership mismatches.
package usecase

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/footprint"
)

// Option customises the clock and id generation of a use case.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the time source. Reference dates for named periods and creation
// timestamps come from it.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides activity id generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FootprintQuery scopes an aggregation to an owner and a period. StartDate and EndDate
// override Period only when both are set.
type FootprintQuery struct {
	Owner     domain.Owner
	Period    string
	StartDate *time.Time
	EndDate   *time.Time
}

func (q FootprintQuery) resolve(now time.Time) domain.Period {
	if q.StartDate != nil && q.EndDate != nil {
		return domain.Period{Start: domain.DateOf(*q.StartDate), End: domain.DateOf(*q.EndDate)}
	}
	return footprint.GetPeriodDates(q.Period, now)
}

func normalizeIATA(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
