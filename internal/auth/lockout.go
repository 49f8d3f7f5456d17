package auth

import (
	"strings"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
)

// Defaults applied by NewLockoutPolicy for zero config values
const (
	DefaultLockoutThreshold  = 3
	DefaultLockoutDuration   = 24 * time.Hour
	DefaultAdminLockDuration = 5 * 24 * time.Hour
)

// Outcome is the result of evaluating a login attempt
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeDenied
	OutcomeLocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDenied:
		return "denied"
	case OutcomeLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// LockoutDecision describes what happened to an attempt. Until is set for
// OutcomeLocked; NewlyLocked is true when this attempt caused the lock.
type LockoutDecision struct {
	Outcome     Outcome
	Until       time.Time
	NewlyLocked bool
}

// LockoutPolicy decides whether a login attempt proceeds and maintains the
// failed-attempt counter. It only mutates the account passed in; callers
// persist the result atomically through the account store.
type LockoutPolicy struct {
	Threshold         int
	Duration          time.Duration
	AdminLockDuration time.Duration
	SuperAdmin        string // user name exempt from automatic lockout
	Now               func() time.Time
}

func NewLockoutPolicy(threshold int, duration, adminLock time.Duration, superAdmin string) *LockoutPolicy {
	p := &LockoutPolicy{
		Threshold:         threshold,
		Duration:          duration,
		AdminLockDuration: adminLock,
		SuperAdmin:        strings.ToLower(superAdmin),
		Now:               time.Now,
	}
	if p.Threshold < 1 {
		p.Threshold = DefaultLockoutThreshold
	}
	if p.Duration <= 0 {
		p.Duration = DefaultLockoutDuration
	}
	if p.AdminLockDuration <= 0 {
		p.AdminLockDuration = DefaultAdminLockDuration
	}
	return p
}

func (p *LockoutPolicy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Evaluate applies one login attempt to account.
//
// A lock still in effect short-circuits with OutcomeLocked and leaves the
// account untouched. An expired lock is cleared first, so the attempt that
// follows starts from a zero counter.
func (p *LockoutPolicy) Evaluate(account *models.Account, passwordMatched bool) LockoutDecision {
	now := p.now()

	if account.Lockout.IsLocked(now) {
		return LockoutDecision{Outcome: OutcomeLocked, Until: *account.Lockout.LockedUntil}
	}

	if account.Lockout.LockedUntil != nil {
		p.Unlock(account)
	}

	if passwordMatched {
		account.Lockout.FailedAttempts = 0
		account.Lockout.LockedUntil = nil
		return LockoutDecision{Outcome: OutcomeAllow}
	}

	if p.isExempt(account) {
		return LockoutDecision{Outcome: OutcomeDenied}
	}

	account.Lockout.FailedAttempts++
	if account.Lockout.FailedAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		account.Lockout.LockedUntil = &until
		return LockoutDecision{Outcome: OutcomeLocked, Until: until, NewlyLocked: true}
	}

	return LockoutDecision{Outcome: OutcomeDenied}
}

// Lock sets an administrative lock until the given time. The counter is left as is.
func (p *LockoutPolicy) Lock(account *models.Account, until time.Time) {
	until = until.UTC()
	account.Lockout.LockedUntil = &until
}

// AdminLockUntil returns the end of a lock placed by an administrator now
func (p *LockoutPolicy) AdminLockUntil() time.Time {
	return p.now().Add(p.AdminLockDuration).UTC()
}

func (p *LockoutPolicy) Unlock(account *models.Account) {
	account.Lockout.FailedAttempts = 0
	account.Lockout.LockedUntil = nil
}

func (p *LockoutPolicy) isExempt(account *models.Account) bool {
	return p.SuperAdmin != "" && strings.EqualFold(account.UserName, p.SuperAdmin)
}
