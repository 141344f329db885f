package domain

// Identity is the caller resolved from a verified credential.
type Identity struct {
	UserID int64
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
