package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/usermanager/internal/auth"
	"github.com/BradenHooton/usermanager/internal/models"
	pkgauth "github.com/BradenHooton/usermanager/pkg/auth"
	pkglogger "github.com/BradenHooton/usermanager/pkg/logger"
)

const notifyTimeout = 10 * time.Second

// AuthServiceConfig carries the collaborators of AuthService
type AuthServiceConfig struct {
	Store        AccountStore
	Hasher       PasswordHasher
	Tokens       TokenIssuer
	Policy       *auth.LockoutPolicy
	Delay        *auth.FailureDelay // nil disables failure padding
	Notifier     LockoutNotifier    // nil disables lockout notices
	Logger       *slog.Logger
	Audit        *pkglogger.AuditLogger
	StoreTimeout time.Duration
	Now          func() time.Time
}

// AuthService handles login, registration and token refresh
type AuthService struct {
	store    AccountStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	policy   *auth.LockoutPolicy
	delay    *auth.FailureDelay
	notifier LockoutNotifier
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
	bounded  boundedStore
	now      func() time.Time
}

func NewAuthService(cfg AuthServiceConfig) *AuthService {
	s := &AuthService{
		store:    cfg.Store,
		hasher:   cfg.Hasher,
		tokens:   cfg.Tokens,
		policy:   cfg.Policy,
		delay:    cfg.Delay,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		audit:    cfg.Audit,
		bounded:  boundedStore{timeout: cfg.StoreTimeout},
		now:      cfg.Now,
	}
	if s.notifier == nil {
		s.notifier = NoopNotifier{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.audit == nil {
		s.audit = pkglogger.NewAuditLogger(s.logger)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Profile is the public view of the authenticated account
type Profile struct {
	ID        string   `json:"id"`
	UserName  string   `json:"userName"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Roles     []string `json:"roles"`
}

// AuthResponse is the result of a successful login or refresh
type AuthResponse struct {
	Token     string
	ExpiresAt time.Time
	User      Profile
}

// RegisterInput is a self-service sign up request
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Login verifies the credentials and applies the lockout policy atomically.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, userName, password, ipAddress, userAgent string) (*AuthResponse, error) {
	start := time.Now()
	userName = normalize(userName)

	event := pkglogger.LoginEvent{UserName: userName, IPAddress: ipAddress, UserAgent: userAgent}

	reject := func(err error, outcome, reason string) (*AuthResponse, error) {
		event.Outcome = outcome
		event.Reason = reason
		s.audit.LogLogin(ctx, event)
		s.delay.WaitFrom(ctx, start)
		return nil, err
	}

	if userName == "" || password == "" {
		return reject(models.ErrInvalidCredentials, "denied", "missing_credentials")
	}

	sctx, cancel := s.bounded.ctx(ctx)
	account, err := s.store.FindByUserName(sctx, userName)
	err = s.bounded.err(sctx, err)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return reject(models.ErrInvalidCredentials, "unknown_user", "invalid_credentials")
		}
		s.logger.Error("failed to find account", slog.Any("error", err))
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	event.AccountID = account.ID

	// bcrypt runs outside the row lock
	matched := s.hasher.Verify(password, account.PasswordHash)

	var decision auth.LockoutDecision
	sctx, cancel = s.bounded.ctx(ctx)
	account, err = s.store.UpdateLockout(sctx, account.ID, func(a *models.Account) error {
		decision = s.policy.Evaluate(a, matched)
		return nil
	})
	err = s.bounded.err(sctx, err)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return reject(models.ErrInvalidCredentials, "unknown_user", "account_deleted")
		}
		s.logger.Error("failed to apply lockout policy", slog.String("account_id", event.AccountID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to apply lockout policy: %w", err)
	}

	switch decision.Outcome {
	case auth.OutcomeLocked:
		if decision.NewlyLocked {
			s.audit.LogLockout(ctx, account.ID, account.UserName, decision.Until)
			s.notifyLockout(ctx, account, decision.Until)
		}
		return reject(&models.LockedOutError{Until: decision.Until}, "locked", "account_locked")
	case auth.OutcomeDenied:
		return reject(models.ErrInvalidCredentials, "denied", "invalid_credentials")
	}

	resp, err := s.issue(account)
	if err != nil {
		return nil, err
	}

	event.Outcome = "allow"
	s.audit.LogLogin(ctx, event)

	return resp, nil
}

// notifyLockout is best effort; failures are logged and never surface to the caller
func (s *AuthService) notifyLockout(ctx context.Context, account *models.Account, until time.Time) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyLockout(nctx, account, until); err != nil {
		s.logger.Warn("failed to send lockout notification",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
	}
}

func (s *AuthService) issue(account *models.Account) (*AuthResponse, error) {
	roles := uniqueRoles(account.Roles)

	token, expiresAt, err := s.tokens.Issue(account, roles)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, err
	}

	return &AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User: Profile{
			ID:        account.ID,
			UserName:  account.UserName,
			FirstName: account.FirstName,
			LastName:  account.LastName,
			Roles:     roles,
		},
	}, nil
}

// Register creates an account with the User role. It never logs the caller in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.Account, error) {
	email := normalize(input.Email)

	verr := &models.ValidationError{}
	if email == "" {
		verr.Add("email", "this field is required")
	} else if !strings.Contains(email, "@") {
		verr.Add("email", "must be a valid email address")
	}
	if strings.TrimSpace(input.FirstName) == "" {
		verr.Add("firstName", "this field is required")
	}
	if strings.TrimSpace(input.LastName) == "" {
		verr.Add("lastName", "this field is required")
	}
	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		verr.Add("password", passwordMessage)
	}
	if verr.HasErrors() {
		s.audit.LogRegistration(ctx, "", email, false, "validation_failed")
		return nil, verr
	}

	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	_, err := s.store.FindByUserName(sctx, email)
	switch {
	case err == nil:
		s.audit.LogRegistration(ctx, "", email, false, "duplicate_email")
		return nil, models.ErrDuplicateEmail
	case !errors.Is(err, models.ErrNotFound):
		return nil, s.bounded.err(sctx, err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.store.Create(sctx, &models.Account{
		UserName:     email,
		Email:        email,
		PasswordHash: hash,
		FirstName:    normalize(input.FirstName),
		LastName:     normalize(input.LastName),
		CreatedAt:    s.now().UTC(),
		Roles:        []string{models.RoleUser},
	})
	if err = s.bounded.err(sctx, err); err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			s.audit.LogRegistration(ctx, "", email, false, "duplicate_email")
			return nil, err
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.audit.LogRegistration(ctx, account.ID, email, true, "")
	return account, nil
}

// RefreshToken re-issues a token for an already verified principal using the
// account's current roles
func (s *AuthService) RefreshToken(ctx context.Context, principal *models.Principal) (*AuthResponse, error) {
	if principal == nil || principal.ID == "" {
		return nil, models.ErrInvalidCredentials
	}

	sctx, cancel := s.bounded.ctx(ctx)
	account, err := s.store.FindByID(sctx, principal.ID)
	err = s.bounded.err(sctx, err)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if account.Lockout.IsLocked(s.now()) {
		s.logger.Info("token refresh refused: account locked", slog.String("account_id", account.ID))
		return nil, models.ErrAccountLocked
	}

	return s.issue(account)
}
