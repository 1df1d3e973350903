package user

import (
	"slices"
	"time"
)

const GroupManager = "Manager"

// User is the single account entity. Roles are predicates over it rather
// than separate types.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Superuser    bool      `json:"is_superuser"`
	Groups       []string  `json:"groups"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) InGroup(name string) bool { return slices.Contains(u.Groups, name) }

func (u *User) IsManager() bool { return u.InGroup(GroupManager) }

func (u *User) IsSuperuser() bool { return u.Superuser }

// IsCustomer is a plain shopper: no groups and no superuser flag.
func (u *User) IsCustomer() bool { return !u.Superuser && len(u.Groups) == 0 }
