package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/footprint/internal/domain"
)

const factorColumns = `id, category, activity_type, co2e_factor, unit, source, notes, created_at`

// EmissionFactorRepository implements domain.EmissionFactorRepository.
type EmissionFactorRepository struct {
	pool *pgxpool.Pool
}

// NewEmissionFactorRepository constructs an EmissionFactorRepository.
func NewEmissionFactorRepository(pool *pgxpool.Pool) *EmissionFactorRepository {
	return &EmissionFactorRepository{pool: pool}
}

// GetByType returns nil when no factor exists for the activity type.
func (r *EmissionFactorRepository) GetByType(ctx context.Context, activityType string) (*domain.EmissionFactor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+factorColumns+` FROM emission_factors WHERE activity_type = $1`, activityType)
	f, err := scanFactor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// ListByCategory implements domain.EmissionFactorRepository.
func (r *EmissionFactorRepository) ListByCategory(ctx context.Context, category string) ([]domain.EmissionFactor, error) {
	return r.query(ctx, `SELECT `+factorColumns+` FROM emission_factors WHERE category = $1 ORDER BY id`, category)
}

// GetAll implements domain.EmissionFactorRepository.
func (r *EmissionFactorRepository) GetAll(ctx context.Context) ([]domain.EmissionFactor, error) {
	return r.query(ctx, `SELECT `+factorColumns+` FROM emission_factors ORDER BY id`)
}

func (r *EmissionFactorRepository) query(ctx context.Context, sql string, args ...any) ([]domain.EmissionFactor, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.EmissionFactor, 0)
	for rows.Next() {
		f, err := scanFactor(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

func scanFactor(row pgx.Row) (domain.EmissionFactor, error) {
	var f domain.EmissionFactor
	if err := row.Scan(&f.ID, &f.Category, &f.Type, &f.Factor, &f.Unit, &f.Source, &f.Notes, &f.CreatedAt); err != nil {
		return domain.EmissionFactor{}, err
	}
	return f, nil
}

// UserRepository implements domain.UserRepository.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns nil for unknown users.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `SELECT id, email, created_at FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Upsert inserts the user or refreshes the email, keeping the original creation time.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	var stored domain.User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, created_at) VALUES ($1,$2,$3)
         ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
         RETURNING id, email, created_at`,
		user.ID, user.Email, user.CreatedAt,
	).Scan(&stored.ID, &stored.Email, &stored.CreatedAt)
	if err != nil {
		return domain.User{}, err
	}
	return stored, nil
}
