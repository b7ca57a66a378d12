package repository

import (
	"context"

	identity "jobboard/internal/pkg/identity/application/domain"
)

// CompanyRepository reads company records for role resolution.
type CompanyRepository interface {
	// FindCompanyByOwnerOrHR returns a company userID created or is HR of,
	// preferring one they own. It returns (nil, nil) when there is none.
	FindCompanyByOwnerOrHR(ctx context.Context, userID string) (*identity.Company, error)
}
