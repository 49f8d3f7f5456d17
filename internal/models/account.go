package models

import (
	"time"
)

// Well-known role names seeded at startup
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// LockoutState tracks failed login attempts and the temporary lock of an account
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time // nil or past means not locked
}

// IsLocked reports whether the lock is still in effect at now
func (s LockoutState) IsLocked(now time.Time) bool {
	return s.LockedUntil != nil && s.LockedUntil.After(now)
}

type Account struct {
	ID           string
	UserName     string // lower-case, unique
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	Lockout      LockoutState
	Roles        []string
}

// HasRole reports whether role is assigned to the account (exact match)
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate without aliasing store state
func (a *Account) Clone() *Account {
	c := *a
	if a.Lockout.LockedUntil != nil {
		until := *a.Lockout.LockedUntil
		c.Lockout.LockedUntil = &until
	}
	if a.Roles != nil {
		c.Roles = append([]string(nil), a.Roles...)
	}
	return &c
}
