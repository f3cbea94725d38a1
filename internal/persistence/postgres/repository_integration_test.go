//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/events"
	"example.com/footprint/internal/testsupport"
)

func TestActivityRepositoryWritesOutbox(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	repo := NewActivityRepository(pool)

	session := domain.Owner{SessionID: uuid.NewString()}
	activity, err := domain.NewActivity(domain.ActivityParams{
		ID:        uuid.NewString(),
		Category:  domain.CategoryTransport,
		Type:      "bus",
		Value:     30,
		CO2eKg:    2.49,
		Date:      domain.NewDate(2026, time.March, 10),
		Metadata:  map[string]any{"route": "42"},
		Owner:     session,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	})
	require.NoError(t, err)

	_, err = repo.Save(ctx, activity)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, activity.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, activity.Date, stored.Date)
	require.Equal(t, "42", stored.Metadata["route"])
	require.Empty(t, stored.UserID)

	ranged, err := repo.ListByDateRange(ctx, session, domain.NewDate(2026, time.March, 1), domain.NewDate(2026, time.March, 31))
	require.NoError(t, err)
	require.Len(t, ranged, 1)

	updated, err := activity.WithRecalculation(domain.Recalculation{Type: "train", Value: 30, CO2eKg: 1.08, Date: activity.Date})
	require.NoError(t, err)
	_, err = repo.Update(ctx, updated)
	require.NoError(t, err)

	userID := uuid.NewString()
	count, err := repo.MigrateSessionToUser(ctx, userID, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	page, err := repo.ListByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, 1.08, page[0].CO2eKg)
	require.Empty(t, page[0].SessionID)

	deleted, err := repo.Delete(ctx, activity.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	deleted, err = repo.Delete(ctx, activity.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	rows, err := pool.Query(ctx, `SELECT event_type, topic, partition_key FROM outbox ORDER BY event_id`)
	require.NoError(t, err)
	defer rows.Close()

	var types []string
	for rows.Next() {
		var eventType, topic, key string
		require.NoError(t, rows.Scan(&eventType, &topic, &key))
		require.Equal(t, ActivityTopic, topic)
		types = append(types, eventType)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{
		events.TypeActivityLogged,
		events.TypeActivityUpdated,
		events.TypeActivitiesMigrated,
		events.TypeActivityDeleted,
	}, types)
}

func TestReferenceRepositories(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	factors := NewEmissionFactorRepository(pool)
	petrol, err := factors.GetByType(ctx, "car_petrol")
	require.NoError(t, err)
	require.NotNil(t, petrol)
	require.Equal(t, 0.17099, petrol.Factor)

	missing, err := factors.GetByType(ctx, "teleport")
	require.NoError(t, err)
	require.Nil(t, missing)

	energy, err := factors.ListByCategory(ctx, domain.CategoryEnergy)
	require.NoError(t, err)
	require.Len(t, energy, 3)

	users := NewUserRepository(pool)
	created := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err = users.Upsert(ctx, domain.User{ID: "u1", Email: "one@example.com", CreatedAt: created})
	require.NoError(t, err)
	again, err := users.Upsert(ctx, domain.User{ID: "u1", Email: "new@example.com", CreatedAt: created.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", again.Email)
	require.True(t, created.Equal(again.CreatedAt))
}
