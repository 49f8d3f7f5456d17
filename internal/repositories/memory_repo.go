package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/google/uuid"
)

// MemoryAccountRepository is an in-process account store used by tests and
// local runs without a database. A single mutex gives it the same atomicity
// guarantees as the PostgreSQL repository.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	roles    map[string]struct{}
	now      func() time.Time
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[string]*models.Account),
		roles:    make(map[string]struct{}),
		now:      time.Now,
	}
}

func (r *MemoryAccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return account.Clone(), nil
}

func (r *MemoryAccountRepository) FindByUserName(ctx context.Context, userName string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.UserName == userName {
			return account.Clone(), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemoryAccountRepository) List(ctx context.Context, term string) ([]*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	accounts := make([]*models.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		if term == "" || strings.Contains(account.UserName, term) {
			accounts = append(accounts, account.Clone())
		}
	}

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].UserName < accounts[j].UserName
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})

	return accounts, nil
}

func (r *MemoryAccountRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return int64(len(r.accounts)), nil
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts("", account) {
		return nil, models.ErrDuplicateEmail
	}

	stored := account.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}
	stored.Roles = r.knownRoles(stored.Roles)

	r.accounts[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *MemoryAccountRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.accounts[account.ID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if r.conflicts(account.ID, account) {
		return nil, models.ErrDuplicateEmail
	}

	existing.UserName = account.UserName
	existing.Email = account.Email
	existing.PasswordHash = account.PasswordHash
	existing.FirstName = account.FirstName
	existing.LastName = account.LastName
	existing.Roles = r.knownRoles(account.Roles)

	return existing.Clone(), nil
}

func (r *MemoryAccountRepository) UpdateLockout(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	working := existing.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	existing.Lockout = working.Clone().Lockout
	return working, nil
}

func (r *MemoryAccountRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *MemoryAccountRepository) ListRoles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	roles := make([]string, 0, len(r.roles))
	for name := range r.roles {
		roles = append(roles, name)
	}
	sort.Strings(roles)
	return roles, nil
}

func (r *MemoryAccountRepository) CreateRole(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.roles[name] = struct{}{}
	return nil
}

func (r *MemoryAccountRepository) ClearExpiredLockouts(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, models.ErrStoreUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var cleared int64
	for _, account := range r.accounts {
		until := account.Lockout.LockedUntil
		if until != nil && !until.After(now) {
			account.Lockout = models.LockoutState{}
			cleared++
		}
	}
	return cleared, nil
}

// conflicts reports whether another account already uses the user name or
// email. Caller must hold r.mu.
func (r *MemoryAccountRepository) conflicts(selfID string, account *models.Account) bool {
	for id, other := range r.accounts {
		if id == selfID {
			continue
		}
		if other.UserName == account.UserName || (account.Email != "" && other.Email == account.Email) {
			return true
		}
	}
	return false
}

// knownRoles drops names missing from the role table, matching the SQL insert
// that selects from roles. Caller must hold r.mu.
func (r *MemoryAccountRepository) knownRoles(names []string) []string {
	roles := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.roles[name]; ok && !seen[name] {
			seen[name] = true
			roles = append(roles, name)
		}
	}
	sort.Strings(roles)
	return roles
}
