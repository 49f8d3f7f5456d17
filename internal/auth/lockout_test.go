package auth

import (
	"testing"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policyNow = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestPolicy() *LockoutPolicy {
	p := NewLockoutPolicy(3, 24*time.Hour, 5*24*time.Hour, "Admin@Example.com")
	p.Now = fixedClock(policyNow)
	return p
}

func TestNewLockoutPolicy_Defaults(t *testing.T) {
	p := NewLockoutPolicy(0, 0, 0, "")

	assert.Equal(t, DefaultLockoutThreshold, p.Threshold)
	assert.Equal(t, DefaultLockoutDuration, p.Duration)
	assert.Equal(t, DefaultAdminLockDuration, p.AdminLockDuration)
}

func TestLockoutPolicy_LocksAfterThreshold(t *testing.T) {
	p := newTestPolicy()
	account := &models.Account{UserName: "user@example.com"}

	decision := p.Evaluate(account, false)
	assert.Equal(t, OutcomeDenied, decision.Outcome)
	assert.Equal(t, 1, account.Lockout.FailedAttempts)

	decision = p.Evaluate(account, false)
	assert.Equal(t, OutcomeDenied, decision.Outcome)
	assert.Equal(t, 2, account.Lockout.FailedAttempts)

	decision = p.Evaluate(account, false)
	assert.Equal(t, OutcomeLocked, decision.Outcome)
	assert.True(t, decision.NewlyLocked)
	assert.Equal(t, policyNow.Add(24*time.Hour), decision.Until)
	require.NotNil(t, account.Lockout.LockedUntil)
	assert.Equal(t, decision.Until, *account.Lockout.LockedUntil)

	// a correct password while locked is still rejected and changes nothing
	decision = p.Evaluate(account, true)
	assert.Equal(t, OutcomeLocked, decision.Outcome)
	assert.False(t, decision.NewlyLocked)
	assert.Equal(t, 3, account.Lockout.FailedAttempts)
}

func TestLockoutPolicy_SuccessResets(t *testing.T) {
	p := newTestPolicy()
	past := policyNow.Add(-time.Hour)
	account := &models.Account{
		UserName: "user@example.com",
		Lockout:  models.LockoutState{FailedAttempts: 2, LockedUntil: &past},
	}

	decision := p.Evaluate(account, true)

	assert.Equal(t, OutcomeAllow, decision.Outcome)
	assert.Equal(t, models.LockoutState{}, account.Lockout)
}

func TestLockoutPolicy_ExpiredLockStartsFresh(t *testing.T) {
	p := newTestPolicy()
	expired := policyNow.Add(-time.Minute)
	account := &models.Account{
		UserName: "user@example.com",
		Lockout:  models.LockoutState{FailedAttempts: 3, LockedUntil: &expired},
	}

	decision := p.Evaluate(account, false)

	assert.Equal(t, OutcomeDenied, decision.Outcome)
	assert.Equal(t, 1, account.Lockout.FailedAttempts)
	assert.Nil(t, account.Lockout.LockedUntil)
}

func TestLockoutPolicy_LockEndingNowIsExpired(t *testing.T) {
	p := newTestPolicy()
	until := policyNow
	account := &models.Account{
		UserName: "user@example.com",
		Lockout:  models.LockoutState{FailedAttempts: 3, LockedUntil: &until},
	}

	assert.Equal(t, OutcomeAllow, p.Evaluate(account, true).Outcome)
}

func TestLockoutPolicy_SuperAdminNeverCounts(t *testing.T) {
	p := newTestPolicy()
	account := &models.Account{UserName: "admin@example.com"}

	for i := 0; i < 10; i++ {
		decision := p.Evaluate(account, false)
		assert.Equal(t, OutcomeDenied, decision.Outcome)
	}

	assert.Zero(t, account.Lockout.FailedAttempts)
	assert.Nil(t, account.Lockout.LockedUntil)
	assert.Equal(t, OutcomeAllow, p.Evaluate(account, true).Outcome)
}

func TestLockoutPolicy_LockAndUnlock(t *testing.T) {
	p := newTestPolicy()
	account := &models.Account{
		UserName: "user@example.com",
		Lockout:  models.LockoutState{FailedAttempts: 1},
	}

	p.Lock(account, p.AdminLockUntil())
	require.NotNil(t, account.Lockout.LockedUntil)
	assert.Equal(t, policyNow.Add(5*24*time.Hour), *account.Lockout.LockedUntil)
	assert.Equal(t, 1, account.Lockout.FailedAttempts, "lock leaves the counter alone")
	assert.Equal(t, OutcomeLocked, p.Evaluate(account, true).Outcome)

	p.Unlock(account)
	assert.Equal(t, models.LockoutState{}, account.Lockout)
	assert.Equal(t, OutcomeAllow, p.Evaluate(account, true).Outcome)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "allow", OutcomeAllow.String())
	assert.Equal(t, "denied", OutcomeDenied.String())
	assert.Equal(t, "locked", OutcomeLocked.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
