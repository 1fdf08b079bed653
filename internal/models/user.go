package models

import (
	"errors"
	"fmt"
	"time"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AdminUsername is the only username allowed to hold RoleAdmin.
const AdminUsername = "admin"

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Public strips credentials.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Role: u.Role}
}

// ErrAdminRoleReserved is returned when the admin role is assigned to a
// username other than AdminUsername.
var ErrAdminRoleReserved = errors.New(`admin role is reserved for username "admin"`)

// CheckRole enforces the single admin account rule.
func (u User) CheckRole() error {
	switch u.Role {
	case RoleUser:
		return nil
	case RoleAdmin:
		if u.Username != AdminUsername {
			return ErrAdminRoleReserved
		}
		return nil
	default:
		return fmt.Errorf("unknown role %q", u.Role)
	}
}
