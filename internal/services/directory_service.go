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

var passwordMessage = fmt.Sprintf("must have a minimum of %d characters", pkgauth.MinPasswordLen)

// DirectoryServiceConfig carries the collaborators of DirectoryService
type DirectoryServiceConfig struct {
	Store        AccountStore
	Hasher       PasswordHasher
	Access       *auth.AccessControl
	Policy       *auth.LockoutPolicy
	Logger       *slog.Logger
	Audit        *pkglogger.AuditLogger
	StoreTimeout time.Duration
	Now          func() time.Time
}

// DirectoryService implements administrative member and role management.
// Every operation requires the Admin role.
type DirectoryService struct {
	store   AccountStore
	hasher  PasswordHasher
	access  *auth.AccessControl
	policy  *auth.LockoutPolicy
	logger  *slog.Logger
	audit   *pkglogger.AuditLogger
	bounded boundedStore
	now     func() time.Time
}

func NewDirectoryService(cfg DirectoryServiceConfig) *DirectoryService {
	s := &DirectoryService{
		store:   cfg.Store,
		hasher:  cfg.Hasher,
		access:  cfg.Access,
		policy:  cfg.Policy,
		logger:  cfg.Logger,
		audit:   cfg.Audit,
		bounded: boundedStore{timeout: cfg.StoreTimeout},
		now:     cfg.Now,
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

func (s *DirectoryService) authorize(ctx context.Context, principal *models.Principal, action string) error {
	if err := s.access.Authorize(principal, models.RoleAdmin); err != nil {
		actor := ""
		if principal != nil {
			actor = principal.ID
		}
		s.audit.LogAdminAction(ctx, pkglogger.AdminEvent{Action: action, ActorID: actor, Reason: "forbidden"})
		return err
	}
	return nil
}

func (s *DirectoryService) record(ctx context.Context, principal *models.Principal, action, targetID string, err error) {
	event := pkglogger.AdminEvent{
		Action:   action,
		ActorID:  principal.ID,
		TargetID: targetID,
		Success:  err == nil,
	}
	switch {
	case err == nil:
	case errors.Is(err, models.ErrSuperAdminProtected):
		event.Reason = "super_admin_protected"
	case errors.Is(err, models.ErrNotFound):
		event.Reason = "not_found"
	default:
		event.Reason = err.Error()
	}
	s.audit.LogAdminAction(ctx, event)
}

// ListMembers returns every account except the super admin. A non-empty term
// restricts the result to user names containing it.
func (s *DirectoryService) ListMembers(ctx context.Context, principal *models.Principal, term string) ([]models.MemberSummary, error) {
	if err := s.authorize(ctx, principal, "member_list"); err != nil {
		return nil, err
	}

	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	accounts, err := s.store.List(sctx, normalize(term))
	if err != nil {
		return nil, s.bounded.err(sctx, err)
	}

	now := s.now()
	members := make([]models.MemberSummary, 0, len(accounts))
	for _, a := range accounts {
		if s.access.IsSuperAdmin(a) {
			continue
		}
		members = append(members, models.MemberSummary{
			ID:          a.ID,
			UserName:    a.UserName,
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			DateCreated: a.CreatedAt,
			IsLocked:    a.Lockout.IsLocked(now),
			Roles:       a.Roles,
		})
	}

	return members, nil
}

// GetMember returns the editable view of one account. The super admin is
// reported as not found.
func (s *DirectoryService) GetMember(ctx context.Context, principal *models.Principal, id string) (*models.MemberDetail, error) {
	if err := s.authorize(ctx, principal, "member_get"); err != nil {
		return nil, err
	}

	account, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.access.IsSuperAdmin(account) {
		return nil, models.ErrNotFound
	}

	return &models.MemberDetail{
		ID:        account.ID,
		UserName:  account.UserName,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Roles:     strings.Join(account.Roles, ","),
	}, nil
}

func (s *DirectoryService) find(ctx context.Context, id string) (*models.Account, error) {
	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	account, err := s.store.FindByID(sctx, id)
	if err != nil {
		return nil, s.bounded.err(sctx, err)
	}
	return account, nil
}

// resolveRoles turns "Admin, Ghost,,Admin" into the known, de-duplicated subset
func (s *DirectoryService) resolveRoles(ctx context.Context, raw string) ([]string, error) {
	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	known, err := s.store.ListRoles(sctx)
	if err != nil {
		return nil, s.bounded.err(sctx, err)
	}
	valid := make(map[string]bool, len(known))
	for _, r := range known {
		valid[r] = true
	}

	requested := make([]string, 0)
	for _, token := range strings.Split(raw, ",") {
		if token = strings.TrimSpace(token); token != "" && valid[token] {
			requested = append(requested, token)
		}
	}

	return uniqueRoles(requested), nil
}

func (s *DirectoryService) validateMember(spec models.MemberSpec, creating bool) error {
	verr := &models.ValidationError{}

	if normalize(spec.UserName) == "" {
		verr.Add("userName", "this field is required")
	}
	if strings.TrimSpace(spec.FirstName) == "" {
		verr.Add("firstName", "this field is required")
	}
	if strings.TrimSpace(spec.LastName) == "" {
		verr.Add("lastName", "this field is required")
	}
	if creating || spec.Password != "" {
		if err := pkgauth.ValidatePassword(spec.Password); err != nil {
			verr.Add("password", passwordMessage)
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// AddOrEditMember creates an account when spec.ID is empty and edits it otherwise.
// In both paths the role set becomes exactly the known subset of spec.Roles.
func (s *DirectoryService) AddOrEditMember(ctx context.Context, principal *models.Principal, spec models.MemberSpec) (*models.MemberResult, error) {
	creating := strings.TrimSpace(spec.ID) == ""
	action := "member_edit"
	if creating {
		action = "member_create"
	}

	if err := s.authorize(ctx, principal, action); err != nil {
		return nil, err
	}
	if err := s.validateMember(spec, creating); err != nil {
		return nil, err
	}

	var result *models.MemberResult
	var err error
	if creating {
		result, err = s.createMember(ctx, spec)
	} else {
		result, err = s.editMember(ctx, spec)
	}

	targetID := spec.ID
	if result != nil {
		targetID = result.ID
	}
	s.record(ctx, principal, action, targetID, err)

	return result, err
}

func (s *DirectoryService) createMember(ctx context.Context, spec models.MemberSpec) (*models.MemberResult, error) {
	roles, err := s.resolveRoles(ctx, spec.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(spec.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userName := normalize(spec.UserName)

	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	account, err := s.store.Create(sctx, &models.Account{
		UserName:     userName,
		Email:        userName,
		PasswordHash: hash,
		FirstName:    normalize(spec.FirstName),
		LastName:     normalize(spec.LastName),
		CreatedAt:    s.now().UTC(),
		Roles:        roles,
	})
	if err != nil {
		return nil, s.bounded.err(sctx, err)
	}

	return &models.MemberResult{
		ID:      account.ID,
		Title:   "Member Created",
		Message: fmt.Sprintf("%s has been created", account.UserName),
		Created: true,
	}, nil
}

func (s *DirectoryService) editMember(ctx context.Context, spec models.MemberSpec) (*models.MemberResult, error) {
	account, err := s.find(ctx, spec.ID)
	if err != nil {
		return nil, err
	}

	if err := s.access.Guard(account); err != nil {
		return nil, err
	}

	roles, err := s.resolveRoles(ctx, spec.Roles)
	if err != nil {
		return nil, err
	}

	account.UserName = normalize(spec.UserName)
	account.Email = account.UserName
	account.FirstName = normalize(spec.FirstName)
	account.LastName = normalize(spec.LastName)
	account.Roles = roles

	if spec.Password != "" {
		hash, err := s.hasher.Hash(spec.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		account.PasswordHash = hash
	}

	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	updated, err := s.store.Update(sctx, account)
	if err != nil {
		return nil, s.bounded.err(sctx, err)
	}

	return &models.MemberResult{
		ID:      updated.ID,
		Title:   "Member Edited",
		Message: fmt.Sprintf("%s has been updated", updated.UserName),
	}, nil
}

// LockMember places an administrative lock lasting the policy's admin lock duration
func (s *DirectoryService) LockMember(ctx context.Context, principal *models.Principal, id string) error {
	return s.mutateLockout(ctx, principal, "member_lock", id, func(a *models.Account) {
		s.policy.Lock(a, s.policy.AdminLockUntil())
	})
}

// UnlockMember clears the lock and the failed-attempt counter
func (s *DirectoryService) UnlockMember(ctx context.Context, principal *models.Principal, id string) error {
	return s.mutateLockout(ctx, principal, "member_unlock", id, s.policy.Unlock)
}

// mutateLockout guards before reading and again on the locked row, so the
// super admin check and the write cannot be separated
func (s *DirectoryService) mutateLockout(ctx context.Context, principal *models.Principal, action, id string, apply func(*models.Account)) error {
	if err := s.authorize(ctx, principal, action); err != nil {
		return err
	}

	err := s.lockout(ctx, id, apply)
	s.record(ctx, principal, action, id, err)
	return err
}

func (s *DirectoryService) lockout(ctx context.Context, id string, apply func(*models.Account)) error {
	account, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.Guard(account); err != nil {
		return err
	}

	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	_, err = s.store.UpdateLockout(sctx, id, func(a *models.Account) error {
		if err := s.access.Guard(a); err != nil {
			return err
		}
		apply(a)
		return nil
	})
	return s.bounded.err(sctx, err)
}

// DeleteMember removes the account and its role memberships
func (s *DirectoryService) DeleteMember(ctx context.Context, principal *models.Principal, id string) error {
	if err := s.authorize(ctx, principal, "member_delete"); err != nil {
		return err
	}

	err := s.delete(ctx, id)
	s.record(ctx, principal, "member_delete", id, err)
	return err
}

func (s *DirectoryService) delete(ctx context.Context, id string) error {
	account, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.Guard(account); err != nil {
		return err
	}

	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	return s.bounded.err(sctx, s.store.Delete(sctx, id))
}

// ListRoles returns all known role names
func (s *DirectoryService) ListRoles(ctx context.Context, principal *models.Principal) ([]string, error) {
	if err := s.authorize(ctx, principal, "role_list"); err != nil {
		return nil, err
	}

	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	roles, err := s.store.ListRoles(sctx)
	if err != nil {
		return nil, s.bounded.err(sctx, err)
	}
	return roles, nil
}
