package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claim set carried by a session token
type TokenClaims struct {
	Email      string   `json:"email"`
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Roles      []string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the verified identity derived from a presented session token
type Principal struct {
	ID         string
	Email      string
	GivenName  string
	FamilyName string
	Roles      []string
	ExpiresAt  time.Time
}

// HasRole reports whether the principal carries role (case-sensitive)
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
