package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
)

// DefaultStoreTimeout bounds a single account store call
const DefaultStoreTimeout = 5 * time.Second

// AccountStore defines the interface for account and role persistence.
// Implementations return models.ErrNotFound for missing accounts and
// models.ErrDuplicateEmail when a user name or email is already taken.
type AccountStore interface {
	FindByUserName(ctx context.Context, userName string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	// Update writes profile, password hash and role set atomically; lockout fields are ignored
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
	// UpdateLockout applies fn to the current row under an exclusive lock
	UpdateLockout(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, term string) ([]*models.Account, error)
	Count(ctx context.Context) (int64, error)
	ListRoles(ctx context.Context) ([]string, error)
	CreateRole(ctx context.Context, name string) error
}

// TokenIssuer is satisfied by *auth.TokenManager
type TokenIssuer interface {
	Issue(account *models.Account, roles []string) (string, time.Time, error)
}

// PasswordHasher is satisfied by *pkg/auth.Hasher
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// boundedStore wraps every call in a timeout and reports an expired or
// canceled context as models.ErrStoreUnavailable
type boundedStore struct {
	timeout time.Duration
}

func (b boundedStore) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := b.timeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(parent, timeout)
}

func (b boundedStore) err(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && !errors.Is(err, models.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return err
}

// uniqueRoles removes duplicates while keeping first-seen order
func uniqueRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
