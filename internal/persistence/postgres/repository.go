// Package postgres provides Postgres-backed repositories. Activity writes record their
// domain events in the outbox table inside the same transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/events"
	"example.com/footprint/internal/observability"
)

const activityColumns = `id, category, activity_type, value, co2e_kg, date, notes, metadata, user_id, session_id, created_at`

// ActivityRepository implements domain.ActivityRepository.
type ActivityRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Save inserts the activity and its activity.logged event.
func (r *ActivityRepository) Save(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	metadata, err := json.Marshal(activity.Metadata)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("encode metadata: %w", err)
	}

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO activities (`+activityColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			activity.ID,
			activity.Category,
			activity.Type,
			activity.Value,
			activity.CO2eKg,
			activity.Date,
			activity.Notes,
			metadata,
			nullIfEmpty(activity.UserID),
			nullIfEmpty(activity.SessionID),
			activity.CreatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, events.TypeActivityLogged, activity.ID, activity.Owner(), events.ActivityLogged{
			ActivityID:   activity.ID,
			UserID:       activity.UserID,
			SessionID:    activity.SessionID,
			Category:     activity.Category,
			ActivityType: activity.Type,
			Value:        activity.Value,
			CO2eKg:       activity.CO2eKg,
			Date:         activity.Date.Format(domain.DateLayout),
			OccurredAt:   r.now(),
		})
	})
	if err != nil {
		return domain.Activity{}, err
	}
	observability.RecordActivityPersisted(activity.CreatedAt)
	return activity, nil
}

// GetByID returns nil when the activity does not exist.
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
	a, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListByUser returns a page of the user's activities, newest date first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Activity, error) {
	return r.query(ctx, `SELECT `+activityColumns+` FROM activities
        WHERE user_id = $1
        ORDER BY date DESC, created_at DESC, id DESC
        LIMIT $2 OFFSET $3`, userID, limit, offset)
}

// ListBySession returns a page of the session's activities, newest date first.
func (r *ActivityRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]domain.Activity, error) {
	return r.query(ctx, `SELECT `+activityColumns+` FROM activities
        WHERE session_id = $1
        ORDER BY date DESC, created_at DESC, id DESC
        LIMIT $2 OFFSET $3`, sessionID, limit, offset)
}

// ListByDateRange returns the owner's activities dated within [start, end], oldest first.
func (r *ActivityRepository) ListByDateRange(ctx context.Context, owner domain.Owner, start, end time.Time) ([]domain.Activity, error) {
	column := "session_id"
	key := owner.SessionID
	if owner.IsUser() {
		column, key = "user_id", owner.UserID
	}
	return r.query(ctx, `SELECT `+activityColumns+` FROM activities
        WHERE `+column+` = $1 AND date BETWEEN $2 AND $3
        ORDER BY date, created_at, id`, key, domain.DateOf(start), domain.DateOf(end))
}

// Update rewrites the recalculated fields and records an activity.updated event carrying
// the previous emissions.
func (r *ActivityRepository) Update(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var previous float64
		if err := tx.QueryRow(ctx, `SELECT co2e_kg FROM activities WHERE id = $1 FOR UPDATE`, activity.ID).Scan(&previous); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NewNotFoundError("activity", activity.ID)
			}
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE activities SET activity_type = $2, value = $3, co2e_kg = $4, date = $5, notes = $6 WHERE id = $1`,
			activity.ID, activity.Type, activity.Value, activity.CO2eKg, activity.Date, activity.Notes,
		); err != nil {
			return err
		}

		return insertOutbox(ctx, tx, events.TypeActivityUpdated, activity.ID, activity.Owner(), events.ActivityUpdated{
			ActivityID:     activity.ID,
			UserID:         activity.UserID,
			SessionID:      activity.SessionID,
			Category:       activity.Category,
			ActivityType:   activity.Type,
			Value:          activity.Value,
			CO2eKg:         activity.CO2eKg,
			PreviousCO2eKg: previous,
			Date:           activity.Date.Format(domain.DateLayout),
			OccurredAt:     r.now(),
		})
	})
	if err != nil {
		return domain.Activity{}, err
	}
	observability.RecordActivityPersisted(r.now())
	return activity, nil
}

// Delete removes the activity and records an activity.deleted event.
func (r *ActivityRepository) Delete(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var (
			category  string
			co2e      float64
			userID    *string
			sessionID *string
		)
		err := tx.QueryRow(ctx,
			`DELETE FROM activities WHERE id = $1 RETURNING category, co2e_kg, user_id, session_id`, id,
		).Scan(&category, &co2e, &userID, &sessionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		deleted = true

		owner := domain.Owner{UserID: deref(userID), SessionID: deref(sessionID)}
		return insertOutbox(ctx, tx, events.TypeActivityDeleted, id, owner, events.ActivityDeleted{
			ActivityID: id,
			UserID:     owner.UserID,
			SessionID:  owner.SessionID,
			Category:   category,
			CO2eKg:     co2e,
			OccurredAt: r.now(),
		})
	})
	return deleted, err
}

// MigrateSessionToUser reassigns the session's activities to the user and clears the
// session id. An activities.migrated event is recorded when anything moved.
func (r *ActivityRepository) MigrateSessionToUser(ctx context.Context, userID, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, nil
	}
	var count int
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE activities SET user_id = $1, session_id = NULL WHERE session_id = $2`, userID, sessionID)
		if err != nil {
			return err
		}
		count = int(tag.RowsAffected())
		if count == 0 {
			return nil
		}
		return insertOutbox(ctx, tx, events.TypeActivitiesMigrated, sessionID, domain.Owner{UserID: userID}, events.ActivitiesMigrated{
			UserID:        userID,
			SessionID:     sessionID,
			MigratedCount: count,
			OccurredAt:    r.now(),
		})
	})
	return count, err
}

func (r *ActivityRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ActivityRepository) query(ctx context.Context, sql string, args ...any) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a         domain.Activity
		metadata  []byte
		userID    *string
		sessionID *string
	)
	if err := row.Scan(&a.ID, &a.Category, &a.Type, &a.Value, &a.CO2eKg, &a.Date, &a.Notes, &metadata, &userID, &sessionID, &a.CreatedAt); err != nil {
		return domain.Activity{}, err
	}
	a.Metadata = map[string]any{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return domain.Activity{}, fmt.Errorf("decode metadata for %s: %w", a.ID, err)
		}
	}
	a.UserID = deref(userID)
	a.SessionID = deref(sessionID)
	a.Date = domain.DateOf(a.Date)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
