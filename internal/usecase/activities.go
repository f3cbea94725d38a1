package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/footprint"
	"example.com/footprint/internal/observability"
)

// LogActivityInput is the payload for logging an activity.
type LogActivityInput struct {
	Category     string
	ActivityType string
	Value        float64
	Date         time.Time
	Notes        string
	Metadata     map[string]any
	Owner        domain.Owner
}

// LogActivity converts an activity into CO2e and stores it.
type LogActivity struct {
	activities domain.ActivityRepository
	factors    domain.EmissionFactorRepository
	opts       options
}

// NewLogActivity constructs a LogActivity.
func NewLogActivity(activities domain.ActivityRepository, factors domain.EmissionFactorRepository, opts ...Option) *LogActivity {
	return &LogActivity{activities: activities, factors: factors, opts: buildOptions(opts)}
}

// Execute validates the owner, looks up the emission factor, computes CO2e and saves.
func (uc *LogActivity) Execute(ctx context.Context, in LogActivityInput) (domain.Activity, error) {
	if err := in.Owner.Validate(); err != nil {
		return domain.Activity{}, err
	}

	factor, err := lookupFactor(ctx, uc.factors, in.ActivityType)
	if err != nil {
		return domain.Activity{}, err
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = factor.Category
	}
	if category != factor.Category {
		return domain.Activity{}, domain.NewValidationError("category", "activity type %q does not belong to category %q", in.ActivityType, category)
	}

	co2e, err := footprint.CalculateCO2e(in.Value, *factor)
	if err != nil {
		return domain.Activity{}, err
	}

	activity, err := domain.NewActivity(domain.ActivityParams{
		ID:        uc.opts.newID(),
		Category:  category,
		Type:      factor.Type,
		Value:     in.Value,
		CO2eKg:    co2e,
		Date:      in.Date,
		Notes:     in.Notes,
		Metadata:  in.Metadata,
		Owner:     in.Owner,
		CreatedAt: uc.opts.now(),
	})
	if err != nil {
		return domain.Activity{}, err
	}

	saved, err := uc.activities.Save(ctx, activity)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("save activity: %w", err)
	}
	observability.RecordActivityLogged(saved.Category, saved.CO2eKg)
	return saved, nil
}

// UpdateActivityInput carries the replaceable fields of an activity.
type UpdateActivityInput struct {
	ActivityID   string
	ActivityType string
	Value        float64
	Date         time.Time
	Notes        string
	Caller       domain.Owner
}

// UpdateActivity replaces the type, value, date and notes of an owned activity.
type UpdateActivity struct {
	activities domain.ActivityRepository
	factors    domain.EmissionFactorRepository
}

// NewUpdateActivity constructs an UpdateActivity.
func NewUpdateActivity(activities domain.ActivityRepository, factors domain.EmissionFactorRepository) *UpdateActivity {
	return &UpdateActivity{activities: activities, factors: factors}
}

// Execute checks ownership and that the new type stays in the original category, then
// recomputes CO2e. Category, metadata, owner and creation time are preserved.
func (uc *UpdateActivity) Execute(ctx context.Context, in UpdateActivityInput) (domain.Activity, error) {
	existing, err := fetchOwned(ctx, uc.activities, in.ActivityID, in.Caller, "update")
	if err != nil {
		return domain.Activity{}, err
	}

	factor, err := lookupFactor(ctx, uc.factors, in.ActivityType)
	if err != nil {
		return domain.Activity{}, err
	}
	if factor.Category != existing.Category {
		return domain.Activity{}, domain.NewValidationError("activity_type", "activity type %q does not belong to category %q", in.ActivityType, existing.Category)
	}

	co2e, err := footprint.CalculateCO2e(in.Value, *factor)
	if err != nil {
		return domain.Activity{}, err
	}

	updated, err := existing.WithRecalculation(domain.Recalculation{
		Type:   factor.Type,
		Value:  in.Value,
		CO2eKg: co2e,
		Date:   in.Date,
		Notes:  in.Notes,
	})
	if err != nil {
		return domain.Activity{}, err
	}

	stored, err := uc.activities.Update(ctx, updated)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("update activity: %w", err)
	}
	return stored, nil
}

// DeleteActivityInput identifies the activity to remove.
type DeleteActivityInput struct {
	ActivityID string
	Caller     domain.Owner
}

// DeleteActivity removes an owned activity.
type DeleteActivity struct {
	activities domain.ActivityRepository
}

// NewDeleteActivity constructs a DeleteActivity.
func NewDeleteActivity(activities domain.ActivityRepository) *DeleteActivity {
	return &DeleteActivity{activities: activities}
}

// Execute checks ownership and deletes. A delete that removes nothing reports not found.
func (uc *DeleteActivity) Execute(ctx context.Context, in DeleteActivityInput) error {
	if _, err := fetchOwned(ctx, uc.activities, in.ActivityID, in.Caller, "delete"); err != nil {
		return err
	}
	deleted, err := uc.activities.Delete(ctx, in.ActivityID)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if !deleted {
		return domain.NewNotFoundError("activity", in.ActivityID)
	}
	return nil
}

// GetActivityInput identifies the activity to read.
type GetActivityInput struct {
	ActivityID string
	Caller     domain.Owner
}

// GetActivity reads one owned activity.
type GetActivity struct {
	activities domain.ActivityRepository
}

// NewGetActivity constructs a GetActivity.
func NewGetActivity(activities domain.ActivityRepository) *GetActivity {
	return &GetActivity{activities: activities}
}

// Execute fetches the activity and applies the ownership rule.
func (uc *GetActivity) Execute(ctx context.Context, in GetActivityInput) (domain.Activity, error) {
	return fetchOwned(ctx, uc.activities, in.ActivityID, in.Caller, "view")
}

// Page bounds for ListActivities.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// ListActivitiesInput scopes a page of activities to an owner.
type ListActivitiesInput struct {
	Owner  domain.Owner
	Limit  int
	Offset int
}

// ListActivities returns the owner's activities, newest first.
type ListActivities struct {
	activities domain.ActivityRepository
}

// NewListActivities constructs a ListActivities.
func NewListActivities(activities domain.ActivityRepository) *ListActivities {
	return &ListActivities{activities: activities}
}

// Execute validates paging and dispatches on owner kind.
func (uc *ListActivities) Execute(ctx context.Context, in ListActivitiesInput) ([]domain.Activity, error) {
	if err := in.Owner.Validate(); err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, domain.NewValidationError("limit", "must be between 1 and %d", MaxPageSize)
	}
	if in.Offset < 0 {
		return nil, domain.NewValidationError("offset", "must be non-negative")
	}

	var (
		items []domain.Activity
		err   error
	)
	if in.Owner.IsUser() {
		items, err = uc.activities.ListByUser(ctx, in.Owner.UserID, limit, in.Offset)
	} else {
		items, err = uc.activities.ListBySession(ctx, in.Owner.SessionID, limit, in.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return items, nil
}

// MigrateActivitiesInput names the session whose activities move to the user.
type MigrateActivitiesInput struct {
	UserID    string
	SessionID string
}

// MigrateActivities links anonymous session activities to an authenticated user.
type MigrateActivities struct {
	activities domain.ActivityRepository
}

// NewMigrateActivities constructs a MigrateActivities.
func NewMigrateActivities(activities domain.ActivityRepository) *MigrateActivities {
	return &MigrateActivities{activities: activities}
}

// Execute returns the number of activities reassigned. An empty session is a no-op.
func (uc *MigrateActivities) Execute(ctx context.Context, in MigrateActivitiesInput) (int, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return 0, nil
	}
	if strings.TrimSpace(in.UserID) == "" {
		return 0, domain.NewValidationError("user_id", "is required")
	}
	count, err := uc.activities.MigrateSessionToUser(ctx, in.UserID, in.SessionID)
	if err != nil {
		return 0, fmt.Errorf("migrate session activities: %w", err)
	}
	observability.RecordActivitiesMigrated(count)
	return count, nil
}

func lookupFactor(ctx context.Context, factors domain.EmissionFactorRepository, activityType string) (*domain.EmissionFactor, error) {
	if strings.TrimSpace(activityType) == "" {
		return nil, domain.NewValidationError("activity_type", "is required")
	}
	factor, err := factors.GetByType(ctx, activityType)
	if err != nil {
		return nil, fmt.Errorf("get emission factor: %w", err)
	}
	if factor == nil {
		return nil, domain.NewNotFoundError("emission factor", activityType)
	}
	return factor, nil
}

func fetchOwned(ctx context.Context, activities domain.ActivityRepository, id string, caller domain.Owner, action string) (domain.Activity, error) {
	existing, err := activities.GetByID(ctx, id)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	if existing == nil {
		return domain.Activity{}, domain.NewNotFoundError("activity", id)
	}
	if !existing.OwnedBy(caller) {
		return domain.Activity{}, domain.NewAuthorizationError("not authorized to " + action + " this activity")
	}
	return *existing, nil
}
