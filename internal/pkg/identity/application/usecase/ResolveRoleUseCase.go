package usecase

import (
	"context"
	"fmt"
	"strings"

	identity "jobboard/internal/pkg/identity/application/domain"
	repository "jobboard/internal/pkg/identity/persistence/repository/port"
)

// ErrDirectory indicates the company directory could not be queried.
var ErrDirectory = fmt.Errorf("identity directory lookup error")

// ResolveRoleInput carries the user whose role is requested.
type ResolveRoleInput struct {
	UserID string
}

// ResolveRoleUseCase derives a user's role from the company directory.
// Nothing is cached: every call reflects the directory as it is now.
type ResolveRoleUseCase struct {
	Repo repository.CompanyRepository
}

func NewResolveRoleUseCase(repo repository.CompanyRepository) *ResolveRoleUseCase {
	return &ResolveRoleUseCase{Repo: repo}
}

// Execute returns Owner when the user created a company, HR when listed
// in a company's HR list, and Regular otherwise.
func (uc *ResolveRoleUseCase) Execute(ctx context.Context, in ResolveRoleInput) (identity.Role, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return identity.RoleRegular, identity.ErrMissingUserID
	}
	company, err := uc.Repo.FindCompanyByOwnerOrHR(ctx, userID)
	if err != nil {
		return identity.RoleRegular, fmt.Errorf("%w: %v", ErrDirectory, err)
	}
	return company.RoleOf(userID), nil
}

// Role is shorthand for Execute.
func (uc *ResolveRoleUseCase) Role(ctx context.Context, userID string) (identity.Role, error) {
	return uc.Execute(ctx, ResolveRoleInput{UserID: userID})
}

func (uc *ResolveRoleUseCase) IsOwnerOrHR(ctx context.Context, userID string) (bool, error) {
	role, err := uc.Role(ctx, userID)
	if err != nil {
		return false, err
	}
	return role.IsOwnerOrHR(), nil
}

func (uc *ResolveRoleUseCase) IsRegularUser(ctx context.Context, userID string) (bool, error) {
	role, err := uc.Role(ctx, userID)
	if err != nil {
		return false, err
	}
	return role.IsRegular(), nil
}
