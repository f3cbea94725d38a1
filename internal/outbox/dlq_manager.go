package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"example.com/footprint/internal/logging"
)

// DLQManager retries failed outbox messages and quarantines exhausted entries.
type DLQManager struct {
	pool         *pgxpool.Pool
	maxRetries   int
	baseDelay    time.Duration
	pollInterval time.Duration
	batchSize    int
	logger       zerolog.Logger
}

// DLQConfig holds retry tuning for the manager.
type DLQConfig struct {
	MaxRetries   int
	BaseDelay    time.Duration
	PollInterval time.Duration
	BatchSize    int
}

// NewDLQManager constructs a DLQManager, filling zero config values with defaults.
func NewDLQManager(pool *pgxpool.Pool, cfg DLQConfig) *DLQManager {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &DLQManager{
		pool:         pool,
		maxRetries:   cfg.MaxRetries,
		baseDelay:    cfg.BaseDelay,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		logger:       logging.Component("dlq-manager"),
	}
}

func (m *DLQManager) String() string { return "dlq-manager" }

// Serve runs RunOnce on every poll tick until ctx is cancelled.
func (m *DLQManager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		processed, err := m.RunOnce(ctx, m.batchSize)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			m.logger.Error().Err(err).Int("processed", processed).Msg("dlq batch finished with errors")
		case processed > 0:
			m.logger.Info().Int("processed", processed).Msg("dlq batch processed")
		}
		m.refreshBacklog(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type dlqEntry struct {
	ID            int64
	EventType     string
	Topic         string
	SchemaSubject string
	RetryCount    int
}

// RunOnce processes up to batchSize due DLQ entries and returns how many were handled.
// Errors on individual entries are joined; the remaining entries are still attempted.
func (m *DLQManager) RunOnce(ctx context.Context, batchSize int) (int, error) {
	rows, err := m.pool.Query(ctx, `SELECT dlq_id, event_type, topic, schema_subject, retry_count
        FROM outbox_dlq
        WHERE quarantined_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY created_at
        LIMIT $1`, batchSize)
	if err != nil {
		return 0, fmt.Errorf("select due dlq entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[dlqEntry])
	if err != nil {
		return 0, fmt.Errorf("scan dlq entries: %w", err)
	}

	var errs error
	processed := 0
	for _, entry := range entries {
		if err := m.handleEntry(ctx, entry); err != nil {
			errs = errors.Join(errs, fmt.Errorf("dlq entry %d: %w", entry.ID, err))
			continue
		}
		processed++
	}
	return processed, errs
}

func (m *DLQManager) handleEntry(ctx context.Context, entry dlqEntry) error {
	if reason := quarantineReason(entry, m.maxRetries); reason != "" {
		if _, err := m.pool.Exec(ctx,
			`UPDATE outbox_dlq SET quarantined_at = NOW(), quarantine_reason = $1 WHERE dlq_id = $2`,
			reason, entry.ID); err != nil {
			return err
		}
		recordDLQAction(entry, dlqActionQuarantined)
		m.logger.Warn().Int64("dlq_id", entry.ID).Str("event_type", entry.EventType).Str("reason", reason).Msg("dlq entry quarantined")
		return nil
	}

	requeueErr := m.requeue(ctx, entry.ID)
	if requeueErr == nil {
		recordDLQAction(entry, dlqActionRequeued)
		return nil
	}

	delay := m.backoffDelay(entry.RetryCount + 1)
	if _, err := m.pool.Exec(ctx,
		`UPDATE outbox_dlq
            SET retry_count = retry_count + 1,
                last_attempt_at = NOW(),
                next_retry_at = NOW() + make_interval(secs => $1),
                reason = $2
          WHERE dlq_id = $3`,
		delay.Seconds(), requeueErr.Error(), entry.ID,
	); err != nil {
		return errors.Join(requeueErr, err)
	}
	recordDLQAction(entry, dlqActionRescheduled)
	m.logger.Info().Int64("dlq_id", entry.ID).Err(requeueErr).Dur("retry_in", delay).Msg("dlq requeue failed, rescheduled")
	return nil
}

// requeue copies the entry back into the outbox and removes it from the DLQ atomically.
func (m *DLQManager) requeue(ctx context.Context, dlqID int64) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
            SELECT aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload
              FROM outbox_dlq WHERE dlq_id = $1`, dlqID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("dlq entry %d vanished", dlqID)
		}
		_, err = tx.Exec(ctx, `DELETE FROM outbox_dlq WHERE dlq_id = $1`, dlqID)
		return err
	})
}

// quarantineReason reports why entry cannot be retried, or "" when it can.
func quarantineReason(entry dlqEntry, maxRetries int) string {
	switch _, known := schemaCatalog[entry.EventType]; {
	case entry.RetryCount >= maxRetries:
		return "retry limit reached"
	case !known:
		return fmt.Sprintf("unknown event type %q", entry.EventType)
	case entry.SchemaSubject == "":
		return "missing schema subject"
	}
	return ""
}

// backoffDelay doubles baseDelay per attempt, capped at one hour.
func (m *DLQManager) backoffDelay(attempt int) time.Duration {
	delay := m.baseDelay
	for i := 1; i < attempt && delay < time.Hour; i++ {
		delay *= 2
	}
	return min(delay, time.Hour)
}

func (m *DLQManager) refreshBacklog(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	var count int
	if err := m.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		m.logger.Warn().Err(err).Msg("count dlq backlog")
		return
	}
	dlqBacklog.Set(float64(count))
}
