// Package memory provides in-process repositories for local development and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/referencedata"
)

// ActivityRepository stores activities in memory.
type ActivityRepository struct {
	mu         sync.RWMutex
	activities map[string]domain.Activity
}

// NewActivityRepository constructs an empty ActivityRepository.
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{activities: make(map[string]domain.Activity)}
}

// Save implements domain.ActivityRepository.
func (r *ActivityRepository) Save(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[activity.ID] = clone(activity)
	return activity, nil
}

// GetByID implements domain.ActivityRepository.
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.activities[id]
	if !ok {
		return nil, nil
	}
	a = clone(a)
	return &a, nil
}

// ListByUser returns a page of the user's activities, newest date first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Activity, error) {
	return r.page(func(a domain.Activity) bool { return a.UserID == userID }, limit, offset), nil
}

// ListBySession returns a page of the session's activities, newest date first.
func (r *ActivityRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]domain.Activity, error) {
	if sessionID == "" {
		return []domain.Activity{}, nil
	}
	return r.page(func(a domain.Activity) bool { return a.SessionID == sessionID }, limit, offset), nil
}

// ListByDateRange returns the owner's activities dated within [start, end], oldest first.
func (r *ActivityRepository) ListByDateRange(ctx context.Context, owner domain.Owner, start, end time.Time) ([]domain.Activity, error) {
	start, end = domain.DateOf(start), domain.DateOf(end)
	matches := r.filter(func(a domain.Activity) bool {
		if owner.IsUser() {
			if a.UserID != owner.UserID {
				return false
			}
		} else if a.SessionID == "" || a.SessionID != owner.SessionID {
			return false
		}
		return !a.Date.Before(start) && !a.Date.After(end)
	})
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Date.Equal(matches[j].Date) {
			if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
				return matches[i].ID < matches[j].ID
			}
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].Date.Before(matches[j].Date)
	})
	return matches, nil
}

// Update replaces a stored activity. Updating an unknown id is a not-found error.
func (r *ActivityRepository) Update(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activities[activity.ID]; !ok {
		return domain.Activity{}, domain.NewNotFoundError("activity", activity.ID)
	}
	r.activities[activity.ID] = clone(activity)
	return activity, nil
}

// Delete reports whether an activity was removed.
func (r *ActivityRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activities[id]; !ok {
		return false, nil
	}
	delete(r.activities, id)
	return true, nil
}

// MigrateSessionToUser moves every activity of the session to the user and clears the
// session id.
func (r *ActivityRepository) MigrateSessionToUser(ctx context.Context, userID, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, a := range r.activities {
		if a.SessionID != sessionID {
			continue
		}
		a.UserID = userID
		a.SessionID = ""
		r.activities[id] = a
		count++
	}
	return count, nil
}

func (r *ActivityRepository) filter(keep func(domain.Activity) bool) []domain.Activity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Activity, 0)
	for _, a := range r.activities {
		if keep(a) {
			out = append(out, clone(a))
		}
	}
	return out
}

func (r *ActivityRepository) page(keep func(domain.Activity) bool, limit, offset int) []domain.Activity {
	matches := r.filter(keep)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Date.Equal(matches[j].Date) {
			if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
				return matches[i].ID > matches[j].ID
			}
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].Date.After(matches[j].Date)
	})
	if offset >= len(matches) {
		return []domain.Activity{}
	}
	matches = matches[offset:]
	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}

func clone(a domain.Activity) domain.Activity {
	a.Metadata = maps.Clone(a.Metadata)
	return a
}

// EmissionFactorRepository serves emission factors from memory.
type EmissionFactorRepository struct {
	mu      sync.RWMutex
	factors []domain.EmissionFactor
}

// NewEmissionFactorRepository returns a repository holding the supplied factors.
func NewEmissionFactorRepository(factors ...domain.EmissionFactor) *EmissionFactorRepository {
	return &EmissionFactorRepository{factors: append([]domain.EmissionFactor(nil), factors...)}
}

// NewSeededEmissionFactorRepository returns a repository populated with the seed table.
func NewSeededEmissionFactorRepository() (*EmissionFactorRepository, error) {
	seed, err := referencedata.EmissionFactors()
	if err != nil {
		return nil, err
	}
	return NewEmissionFactorRepository(seed...), nil
}

// GetByType implements domain.EmissionFactorRepository.
func (r *EmissionFactorRepository) GetByType(ctx context.Context, activityType string) (*domain.EmissionFactor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.factors {
		if f.Type == activityType {
			return &f, nil
		}
	}
	return nil, nil
}

// ListByCategory implements domain.EmissionFactorRepository.
func (r *EmissionFactorRepository) ListByCategory(ctx context.Context, category string) ([]domain.EmissionFactor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.EmissionFactor, 0)
	for _, f := range r.factors {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out, nil
}

// GetAll implements domain.EmissionFactorRepository.
func (r *EmissionFactorRepository) GetAll(ctx context.Context) ([]domain.EmissionFactor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.EmissionFactor(nil), r.factors...), nil
}

// UserRepository stores user profiles in memory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserRepository constructs an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

// GetByID implements domain.UserRepository.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Upsert keeps the original creation time of an existing user.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	}
	r.users[user.ID] = user
	return user, nil
}
