package model

import (
	"strings"
	"time"
)

// Role is the closed set of capabilities a user account can hold.  Accounts
// are created with RoleUser; RoleAdmin is only granted by the out-of-band
// provisioning command.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin:
		return r, true
	}
	return "", false
}

// User is an account.  Email is stored lower-cased and is unique;
// PasswordHash holds the bcrypt hash and is never serialized.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
