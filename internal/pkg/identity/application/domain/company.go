package identity

import "errors"

var ErrMissingUserID = errors.New("identity: missing user id")

// Company is the slice of a company record the directory needs.
type Company struct {
	ID        string
	Name      string
	CreatedBy string
	HRs       []string
}

// RoleOf returns userID's role in c. Ownership wins over an HR listing.
func (c *Company) RoleOf(userID string) Role {
	if c == nil || userID == "" {
		return RoleRegular
	}
	if c.CreatedBy == userID {
		return RoleOwner
	}
	for _, hr := range c.HRs {
		if hr == userID {
			return RoleHR
		}
	}
	return RoleRegular
}
