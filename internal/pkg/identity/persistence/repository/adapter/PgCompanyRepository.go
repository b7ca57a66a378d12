package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	identity "jobboard/internal/pkg/identity/application/domain"
	repository "jobboard/internal/pkg/identity/persistence/repository/port"
)

type PgCompanyRepository struct {
	pool *pgxpool.Pool
}

func NewPgCompanyRepository(pool *pgxpool.Pool) *PgCompanyRepository {
	return &PgCompanyRepository{pool: pool}
}

var _ repository.CompanyRepository = (*PgCompanyRepository)(nil)

func (r *PgCompanyRepository) FindCompanyByOwnerOrHR(ctx context.Context, userID string) (*identity.Company, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgCompanyRepository: nil pool")
	}
	var c identity.Company
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, created_by, hrs
		FROM directory.company
		WHERE created_by = $1 OR $1 = ANY(hrs)
		ORDER BY (created_by = $1) DESC, created_at
		LIMIT 1
	`, userID).Scan(&c.ID, &c.Name, &c.CreatedBy, &c.HRs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
