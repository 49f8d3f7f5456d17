package auth

import (
	"testing"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAccessControl_Authorize(t *testing.T) {
	ac := NewAccessControl("admin@example.com")

	tests := []struct {
		name      string
		principal *models.Principal
		role      string
		wantErr   error
	}{
		{"has role", &models.Principal{Roles: []string{models.RoleAdmin, models.RoleUser}}, models.RoleAdmin, nil},
		{"missing role", &models.Principal{Roles: []string{models.RoleUser}}, models.RoleAdmin, models.ErrForbidden},
		{"case sensitive", &models.Principal{Roles: []string{"admin"}}, models.RoleAdmin, models.ErrForbidden},
		{"no roles", &models.Principal{}, models.RoleUser, models.ErrForbidden},
		{"nil principal", nil, models.RoleUser, models.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ac.Authorize(tt.principal, tt.role)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAccessControl_Guard(t *testing.T) {
	ac := NewAccessControl("Admin@Example.com")

	assert.Equal(t, "admin@example.com", ac.SuperAdminUserName())
	assert.ErrorIs(t, ac.Guard(&models.Account{UserName: "admin@example.com"}), models.ErrSuperAdminProtected)
	assert.NoError(t, ac.Guard(&models.Account{UserName: "user@example.com"}))
	assert.True(t, ac.IsSuperAdmin(&models.Account{UserName: "ADMIN@example.com"}))
	assert.False(t, ac.IsSuperAdmin(nil))
}

func TestAccessControl_NoSuperAdminConfigured(t *testing.T) {
	ac := NewAccessControl("")

	assert.False(t, ac.IsSuperAdmin(&models.Account{UserName: ""}))
	assert.NoError(t, ac.Guard(&models.Account{UserName: "admin@example.com"}))
}
