package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryService_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := &models.Principal{ID: "user-1", Roles: []string{models.RoleUser}}
	target := env.account(t, "user@example.com").ID

	_, err := env.directory.ListMembers(ctx, user, "")
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.directory.GetMember(ctx, user, target)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.directory.AddOrEditMember(ctx, user, models.MemberSpec{UserName: "x@example.com", FirstName: "x", LastName: "y", Password: "123456"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	assert.ErrorIs(t, env.directory.LockMember(ctx, user, target), models.ErrForbidden)
	assert.ErrorIs(t, env.directory.UnlockMember(ctx, user, target), models.ErrForbidden)
	assert.ErrorIs(t, env.directory.DeleteMember(ctx, nil, target), models.ErrForbidden)

	_, err = env.directory.ListRoles(ctx, user)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestDirectoryService_ListMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	members, err := env.directory.ListMembers(ctx, env.admin, "")
	require.NoError(t, err)
	require.Len(t, members, 1, "super admin is excluded")
	assert.Equal(t, "user@example.com", members[0].UserName)
	assert.False(t, members[0].IsLocked)

	_, err = env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		UserName: "carol@sample.org", FirstName: "Carol", LastName: "King", Password: "123456", Roles: "User",
	})
	require.NoError(t, err)

	filtered, err := env.directory.ListMembers(ctx, env.admin, "SAMPLE")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "carol@sample.org", filtered[0].UserName)

	none, err := env.directory.ListMembers(ctx, env.admin, "admin")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDirectoryService_ListMembersReportsLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.account(t, "user@example.com")

	require.NoError(t, env.directory.LockMember(ctx, env.admin, user.ID))

	members, err := env.directory.ListMembers(ctx, env.admin, "")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.True(t, members[0].IsLocked)
}

func TestDirectoryService_GetMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		UserName: "Dana@Example.com", FirstName: "Dana", LastName: "Scott", Password: "123456", Roles: "Admin,User",
	})
	require.NoError(t, err)

	detail, err := env.directory.GetMember(ctx, env.admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", detail.UserName)
	assert.Equal(t, "dana", detail.FirstName)
	assert.Equal(t, "Admin,User", detail.Roles)

	_, err = env.directory.GetMember(ctx, env.admin, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	superAdmin := env.account(t, testSuperAdmin)
	_, err = env.directory.GetMember(ctx, env.admin, superAdmin.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDirectoryService_AddMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		UserName:  "New@Example.com",
		FirstName: "New",
		LastName:  "Member",
		Password:  "123456",
		Roles:     "Admin, Ghost ,,Admin",
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "Member Created", result.Title)
	assert.Equal(t, "new@example.com has been created", result.Message)

	account := env.account(t, "new@example.com")
	assert.Equal(t, []string{models.RoleAdmin}, account.Roles, "unknown and duplicate roles are dropped")
	assert.Equal(t, "member", account.LastName)

	_, err = env.auth.Login(ctx, "new@example.com", "123456", "", "")
	assert.NoError(t, err)
}

func TestDirectoryService_AddMemberRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	before, _ := env.memory.Count(ctx)

	_, err := env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		UserName: "short@example.com", FirstName: "a", LastName: "b", Password: "123",
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Fields[0].Field)

	_, err = env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		UserName: "User@Example.com", FirstName: "a", LastName: "b", Password: "123456",
	})
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)

	after, _ := env.memory.Count(ctx)
	assert.Equal(t, before, after)
}

func TestDirectoryService_EditMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.account(t, "user@example.com")
	oldHash := user.PasswordHash

	result, err := env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		ID:        user.ID,
		UserName:  "renamed@example.com",
		FirstName: "Renamed",
		LastName:  "User",
		Roles:     "Admin,Ghost",
	})
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, "Member Edited", result.Title)
	assert.Equal(t, "renamed@example.com has been updated", result.Message)

	edited := env.account(t, "renamed@example.com")
	assert.Equal(t, []string{models.RoleAdmin}, edited.Roles)
	assert.Equal(t, oldHash, edited.PasswordHash, "blank password keeps the hash")

	_, err = env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		ID: user.ID, UserName: "renamed@example.com", FirstName: "r", LastName: "u", Password: "newpass", Roles: "User",
	})
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "renamed@example.com", "newpass", "", "")
	assert.NoError(t, err)
}

func TestDirectoryService_EditMemberKeepsLockout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.account(t, "user@example.com")

	require.NoError(t, env.directory.LockMember(ctx, env.admin, user.ID))

	_, err := env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		ID: user.ID, UserName: "user@example.com", FirstName: "u", LastName: "u", Roles: "User",
	})
	require.NoError(t, err)

	assert.True(t, env.account(t, "user@example.com").Lockout.IsLocked(env.clock.Now()))
}

func TestDirectoryService_EditMemberRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.account(t, "user@example.com")

	_, err := env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		ID: "missing", UserName: "x@example.com", FirstName: "x", LastName: "y",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
		ID: user.ID, UserName: "user@example.com", FirstName: "x", LastName: "y", Password: "abc",
	})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDirectoryService_SuperAdminIsProtected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	superAdmin := env.account(t, testSuperAdmin)

	tests := []struct {
		name string
		call func() error
	}{
		{"lock", func() error { return env.directory.LockMember(ctx, env.admin, superAdmin.ID) }},
		{"unlock", func() error { return env.directory.UnlockMember(ctx, env.admin, superAdmin.ID) }},
		{"delete", func() error { return env.directory.DeleteMember(ctx, env.admin, superAdmin.ID) }},
		{"strip roles", func() error {
			_, err := env.directory.AddOrEditMember(ctx, env.admin, models.MemberSpec{
				ID: superAdmin.ID, UserName: testSuperAdmin, FirstName: "admin", LastName: "administrator", Roles: "User",
			})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), models.ErrSuperAdminProtected)

			after := env.account(t, testSuperAdmin)
			assert.Equal(t, superAdmin, after, "state is unchanged after a denied mutation")
		})
	}
}

func TestDirectoryService_GuardRunsOnLockedRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.account(t, "user@example.com")

	// the row seen under lock has become the super admin since it was first read
	env.directory.store = &MockAccountStore{
		Fallback: env.memory,
		UpdateLockoutFunc: func(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
			row := user.Clone()
			row.UserName = testSuperAdmin
			if err := fn(row); err != nil {
				return nil, err
			}
			return row, nil
		},
	}

	err := env.directory.LockMember(ctx, env.admin, user.ID)
	assert.ErrorIs(t, err, models.ErrSuperAdminProtected)
}

func TestDirectoryService_LockAndUnlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.account(t, "user@example.com")

	require.NoError(t, env.directory.LockMember(ctx, env.admin, user.ID))

	locked := env.account(t, "user@example.com")
	require.NotNil(t, locked.Lockout.LockedUntil)
	assert.Equal(t, env.clock.Now().Add(5*24*time.Hour), *locked.Lockout.LockedUntil)

	_, err := env.auth.Login(ctx, "user@example.com", testPassword, "", "")
	var lockedErr *models.LockedOutError
	assert.ErrorAs(t, err, &lockedErr)

	require.NoError(t, env.directory.UnlockMember(ctx, env.admin, user.ID))
	assert.Equal(t, models.LockoutState{}, env.account(t, "user@example.com").Lockout)

	assert.ErrorIs(t, env.directory.LockMember(ctx, env.admin, "missing"), models.ErrNotFound)
	assert.ErrorIs(t, env.directory.UnlockMember(ctx, env.admin, "missing"), models.ErrNotFound)
}

func TestDirectoryService_DeleteMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.account(t, "user@example.com")

	require.NoError(t, env.directory.DeleteMember(ctx, env.admin, user.ID))

	_, err := env.memory.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, env.directory.DeleteMember(ctx, env.admin, user.ID), models.ErrNotFound)
}

func TestDirectoryService_DeleteStoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	env := newTestEnvWithStore(t, func(s AccountStore) AccountStore {
		return &MockAccountStore{
			Fallback:   s,
			DeleteFunc: func(ctx context.Context, id string) error { return boom },
		}
	})
	user := env.account(t, "user@example.com")

	err := env.directory.DeleteMember(context.Background(), env.admin, user.ID)

	assert.ErrorIs(t, err, boom)
}

func TestDirectoryService_ListRoles(t *testing.T) {
	env := newTestEnv(t)

	roles, err := env.directory.ListRoles(context.Background(), env.admin)

	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleAdmin, models.RoleUser}, roles)
}
