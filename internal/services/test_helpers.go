package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/usermanager/internal/auth"
	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/BradenHooton/usermanager/internal/repositories"
	pkgauth "github.com/BradenHooton/usermanager/pkg/auth"
	pkglogger "github.com/BradenHooton/usermanager/pkg/logger"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSuperAdmin = "admin@example.com"
	testPassword   = "123456"
	testSecret     = "test-secret-32-characters-long-for-tests"
)

// testClock is a settable clock shared by the policy and services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier captures lockout notices
type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) NotifyLockout(ctx context.Context, account *models.Account, until time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, account.UserName)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// MockAccountStore implements AccountStore for failure injection. Unset
// functions delegate to Fallback.
type MockAccountStore struct {
	Fallback           AccountStore
	FindByUserNameFunc func(ctx context.Context, userName string) (*models.Account, error)
	FindByIDFunc       func(ctx context.Context, id string) (*models.Account, error)
	UpdateFunc         func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateLockoutFunc  func(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error)
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockAccountStore) FindByUserName(ctx context.Context, userName string) (*models.Account, error) {
	if m.FindByUserNameFunc != nil {
		return m.FindByUserNameFunc(ctx, userName)
	}
	return m.Fallback.FindByUserName(ctx, userName)
}

func (m *MockAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return m.Fallback.FindByID(ctx, id)
}

func (m *MockAccountStore) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	return m.Fallback.Create(ctx, account)
}

func (m *MockAccountStore) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, account)
	}
	return m.Fallback.Update(ctx, account)
}

func (m *MockAccountStore) UpdateLockout(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
	if m.UpdateLockoutFunc != nil {
		return m.UpdateLockoutFunc(ctx, id, fn)
	}
	return m.Fallback.UpdateLockout(ctx, id, fn)
}

func (m *MockAccountStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return m.Fallback.Delete(ctx, id)
}

func (m *MockAccountStore) List(ctx context.Context, term string) ([]*models.Account, error) {
	return m.Fallback.List(ctx, term)
}

func (m *MockAccountStore) Count(ctx context.Context) (int64, error) {
	return m.Fallback.Count(ctx)
}

func (m *MockAccountStore) ListRoles(ctx context.Context) ([]string, error) {
	return m.Fallback.ListRoles(ctx)
}

func (m *MockAccountStore) CreateRole(ctx context.Context, name string) error {
	return m.Fallback.CreateRole(ctx, name)
}

// testEnv wires the services to an in-memory store with seeded data
type testEnv struct {
	memory    *repositories.MemoryAccountRepository
	store     AccountStore
	clock     *testClock
	tokens    *auth.TokenManager
	policy    *auth.LockoutPolicy
	notifier  *recordingNotifier
	auth      *AuthService
	directory *DirectoryService
	admin     *models.Principal
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore optionally wraps the seeded memory store, e.g. in a MockAccountStore
func newTestEnvWithStore(t *testing.T, wrap func(AccountStore) AccountStore) *testEnv {
	t.Helper()

	logger := discardLogger()
	clock := newTestClock()
	hasher := pkgauth.NewHasher(bcrypt.MinCost)
	memory := repositories.NewMemoryAccountRepository()

	seeder := NewSeeder(memory, hasher, logger, time.Second)
	require.NoError(t, seeder.Seed(context.Background(), SeedConfig{
		SuperAdminUserName: testSuperAdmin,
		AdminPassword:      testPassword,
		UserPassword:       testPassword,
	}))

	var store AccountStore = memory
	if wrap != nil {
		store = wrap(memory)
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:   testSecret,
		Issuer:   "https://localhost:7001",
		Lifetime: 7 * 24 * time.Hour,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	policy := auth.NewLockoutPolicy(3, 24*time.Hour, 5*24*time.Hour, testSuperAdmin)
	policy.Now = clock.Now

	audit := pkglogger.NewAuditLogger(logger)
	notifier := &recordingNotifier{}

	env := &testEnv{
		memory:   memory,
		store:    store,
		clock:    clock,
		tokens:   tokens,
		policy:   policy,
		notifier: notifier,
		auth: NewAuthService(AuthServiceConfig{
			Store:        store,
			Hasher:       hasher,
			Tokens:       tokens,
			Policy:       policy,
			Notifier:     notifier,
			Logger:       logger,
			Audit:        audit,
			StoreTimeout: time.Second,
			Now:          clock.Now,
		}),
		directory: NewDirectoryService(DirectoryServiceConfig{
			Store:        store,
			Hasher:       hasher,
			Access:       auth.NewAccessControl(testSuperAdmin),
			Policy:       policy,
			Logger:       logger,
			Audit:        audit,
			StoreTimeout: time.Second,
			Now:          clock.Now,
		}),
	}

	superAdmin := env.account(t, testSuperAdmin)
	env.admin = &models.Principal{ID: superAdmin.ID, Email: superAdmin.Email, Roles: []string{models.RoleAdmin, models.RoleUser}}

	return env
}

func (e *testEnv) account(t *testing.T, userName string) *models.Account {
	t.Helper()
	a, err := e.memory.FindByUserName(context.Background(), userName)
	require.NoError(t, err)
	return a
}
