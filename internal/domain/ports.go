package domain

import (
	"context"
	"time"
)

// ActivityRepository captures persistence operations for activities.
// Lookups return (nil, nil) when nothing matches.
type ActivityRepository interface {
	Save(ctx context.Context, activity Activity) (Activity, error)
	GetByID(ctx context.Context, id string) (*Activity, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Activity, error)
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Activity, error)
	ListByDateRange(ctx context.Context, owner Owner, start, end time.Time) ([]Activity, error)
	Update(ctx context.Context, activity Activity) (Activity, error)
	Delete(ctx context.Context, id string) (bool, error)
	MigrateSessionToUser(ctx context.Context, userID, sessionID string) (int, error)
}

// EmissionFactorRepository reads static emission factors.
type EmissionFactorRepository interface {
	GetByType(ctx context.Context, activityType string) (*EmissionFactor, error)
	ListByCategory(ctx context.Context, category string) ([]EmissionFactor, error)
	GetAll(ctx context.Context) ([]EmissionFactor, error)
}

// AirportRepository reads the airport dataset.
type AirportRepository interface {
	Search(ctx context.Context, query string, limit int) ([]Airport, error)
	GetByIATA(ctx context.Context, code string) (*Airport, error)
}

// RegionDataProvider reads regional benchmarks.
type RegionDataProvider interface {
	ListAll(ctx context.Context) ([]RegionalAverage, error)
	GetByCode(ctx context.Context, code string) (*RegionalAverage, error)
}

// UserRepository persists user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Upsert(ctx context.Context, user User) (User, error)
}
