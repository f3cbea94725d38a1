// Package domain defines the entities, errors and repository ports of the footprint service.
package domain

import (
	"maps"
	"strings"
	"time"
)

// Activity categories with regional benchmarks.
const (
	CategoryTransport = "transport"
	CategoryEnergy    = "energy"
	CategoryFood      = "food"
)

// Owner identifies who a record belongs to: an authenticated user or an anonymous session.
type Owner struct {
	UserID    string
	SessionID string
}

// Validate enforces that exactly one of UserID and SessionID is set.
func (o Owner) Validate() error {
	hasUser := strings.TrimSpace(o.UserID) != ""
	hasSession := strings.TrimSpace(o.SessionID) != ""
	switch {
	case hasUser && hasSession:
		return NewValidationError("owner", "cannot have both user_id and session_id")
	case !hasUser && !hasSession:
		return NewValidationError("owner", "must have either user_id or session_id")
	}
	return nil
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool { return o.UserID != "" }

// Key returns the identifier used for partitioning and logging.
func (o Owner) Key() string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	return "session:" + o.SessionID
}

// Activity is a logged emission-producing action. Values are immutable once constructed;
// updates produce a new Activity through WithRecalculation.
type Activity struct {
	ID        string
	Category  string
	Type      string
	Value     float64
	CO2eKg    float64
	Date      time.Time
	Notes     string
	Metadata  map[string]any
	UserID    string
	SessionID string
	CreatedAt time.Time
}

// ActivityParams carries the fields required to construct an Activity.
type ActivityParams struct {
	ID        string
	Category  string
	Type      string
	Value     float64
	CO2eKg    float64
	Date      time.Time
	Notes     string
	Metadata  map[string]any
	Owner     Owner
	CreatedAt time.Time
}

// NewActivity validates the params and returns an Activity.
func NewActivity(p ActivityParams) (Activity, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Activity{}, NewValidationError("id", "is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return Activity{}, NewValidationError("category", "is required")
	}
	if strings.TrimSpace(p.Type) == "" {
		return Activity{}, NewValidationError("activity_type", "is required")
	}
	if p.Value < 0 {
		return Activity{}, NewValidationError("value", "must be non-negative, got %v", p.Value)
	}
	if p.CO2eKg < 0 {
		return Activity{}, NewValidationError("co2e_kg", "must be non-negative, got %v", p.CO2eKg)
	}
	if p.Date.IsZero() {
		return Activity{}, NewValidationError("date", "is required")
	}
	if err := p.Owner.Validate(); err != nil {
		return Activity{}, err
	}

	return Activity{
		ID:        p.ID,
		Category:  p.Category,
		Type:      p.Type,
		Value:     p.Value,
		CO2eKg:    p.CO2eKg,
		Date:      DateOf(p.Date),
		Notes:     p.Notes,
		Metadata:  cloneMetadata(p.Metadata),
		UserID:    p.Owner.UserID,
		SessionID: p.Owner.SessionID,
		CreatedAt: p.CreatedAt.UTC(),
	}, nil
}

// Owner returns the activity's owner.
func (a Activity) Owner() Owner {
	return Owner{UserID: a.UserID, SessionID: a.SessionID}
}

// Recalculation carries the mutable fields of an activity update.
type Recalculation struct {
	Type   string
	Value  float64
	CO2eKg float64
	Date   time.Time
	Notes  string
}

// WithRecalculation returns a new Activity with the same identity, owner, category,
// metadata and creation time, and the updated type, value, emissions, date and notes.
func (a Activity) WithRecalculation(r Recalculation) (Activity, error) {
	return NewActivity(ActivityParams{
		ID:        a.ID,
		Category:  a.Category,
		Type:      r.Type,
		Value:     r.Value,
		CO2eKg:    r.CO2eKg,
		Date:      r.Date,
		Notes:     r.Notes,
		Metadata:  a.Metadata,
		Owner:     a.Owner(),
		CreatedAt: a.CreatedAt,
	})
}

// OwnedBy applies the ownership rule: a caller with a user id must match the activity's
// user id; otherwise the caller's session id must match the activity's session id.
func (a Activity) OwnedBy(caller Owner) bool {
	if caller.UserID != "" {
		return a.UserID == caller.UserID
	}
	return caller.SessionID != "" && a.SessionID == caller.SessionID
}

func cloneMetadata(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return maps.Clone(in)
}
