package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the smallest HMAC key accepted for HS512 signing
const MinSecretLength = 32

type TokenConfig struct {
	Secret   string
	Issuer   string
	Lifetime time.Duration
	Now      func() time.Time
}

// TokenManager issues and validates signed session tokens
type TokenManager struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenManager validates the signing configuration up front so a
// misconfigured process fails at startup instead of on the first login
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: signing secret must be at least %d bytes", models.ErrConfiguration, MinSecretLength)
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("%w: token issuer is required", models.ErrConfiguration)
	}
	if cfg.Lifetime <= 0 {
		return nil, fmt.Errorf("%w: token lifetime must be positive", models.ErrConfiguration)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenManager{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		lifetime: cfg.Lifetime,
		now:      now,
	}, nil
}

// Lifetime returns the configured token validity period
func (tm *TokenManager) Lifetime() time.Duration {
	return tm.lifetime
}

// Issue creates a token for account carrying one role claim per entry in roles
func (tm *TokenManager) Issue(account *models.Account, roles []string) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.lifetime)

	claims := &models.TokenClaims{
		Email:      account.Email,
		GivenName:  account.FirstName,
		FamilyName: account.LastName,
		Roles:      append([]string(nil), roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   account.ID,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", models.ErrSigning, err)
	}

	return tokenString, expiresAt, nil
}

// Validate verifies signature, issuer and expiry and returns the principal.
// It never consults storage; role changes take effect on the next issue.
func (tm *TokenManager) Validate(tokenString string) (*models.Principal, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, models.ErrUnauthorized
	}

	principal := &models.Principal{
		ID:         claims.Subject,
		Email:      claims.Email,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Roles:      claims.Roles,
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}

	return principal, nil
}
