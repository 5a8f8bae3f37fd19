package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/calculation-service/internal/domain"
)

// CalculationRepository defines persistence access for calculation records.
// All reads and writes are scoped to the owning user.
type CalculationRepository interface {
	Create(ctx context.Context, calc *domain.Calculation) error
	Update(ctx context.Context, calc *domain.Calculation) error
	GetByID(ctx context.Context, userID, id string) (*domain.Calculation, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Calculation, error)
	Delete(ctx context.Context, userID, id string) error
}

type calculationRepository struct {
	pool *pgxpool.Pool
}

// NewCalculationRepository returns a Postgres-backed implementation.
func NewCalculationRepository(pool *pgxpool.Pool) CalculationRepository {
	return &calculationRepository{pool: pool}
}

func (r *calculationRepository) Create(ctx context.Context, calc *domain.Calculation) error {
	const query = `
        INSERT INTO calculations (user_id, type, inputs, result)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		calc.UserID,
		calc.Type,
		calc.Inputs,
		calc.Result,
	).Scan(&calc.ID, &calc.CreatedAt, &calc.UpdatedAt)
}

func (r *calculationRepository) Update(ctx context.Context, calc *domain.Calculation) error {
	const query = `
        UPDATE calculations SET inputs=$1, result=$2, updated_at=NOW()
        WHERE id=$3 AND user_id=$4`

	cmd, err := r.pool.Exec(ctx, query,
		calc.Inputs,
		calc.Result,
		calc.ID,
		calc.UserID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *calculationRepository) GetByID(ctx context.Context, userID, id string) (*domain.Calculation, error) {
	const query = `
        SELECT id, user_id, type, inputs, result, created_at, updated_at
        FROM calculations WHERE id=$1 AND user_id=$2`

	var calc domain.Calculation
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&calc.ID,
		&calc.UserID,
		&calc.Type,
		&calc.Inputs,
		&calc.Result,
		&calc.CreatedAt,
		&calc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &calc, nil
}

func (r *calculationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Calculation, error) {
	const query = `
        SELECT id, user_id, type, inputs, result, created_at, updated_at
        FROM calculations WHERE user_id=$1
        ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calcs []domain.Calculation
	for rows.Next() {
		var calc domain.Calculation
		if err := rows.Scan(
			&calc.ID,
			&calc.UserID,
			&calc.Type,
			&calc.Inputs,
			&calc.Result,
			&calc.CreatedAt,
			&calc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		calcs = append(calcs, calc)
	}
	return calcs, rows.Err()
}

func (r *calculationRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM calculations WHERE id=$1 AND user_id=$2`

	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
