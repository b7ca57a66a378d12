package identity

// Role is a user's standing relative to the company directory.
type Role int

const (
	RoleRegular Role = iota
	RoleHR
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleHR:
		return "hr"
	default:
		return "regular"
	}
}

// IsOwnerOrHR reports whether the role may open conversations.
func (r Role) IsOwnerOrHR() bool { return r == RoleOwner || r == RoleHR }

// IsRegular is the complement of IsOwnerOrHR.
func (r Role) IsRegular() bool { return !r.IsOwnerOrHR() }
