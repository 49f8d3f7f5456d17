package auth

import (
	"strings"

	"github.com/BradenHooton/usermanager/internal/models"
)

// AccessControl enforces role requirements and protects the super admin
// account from administrative mutation
type AccessControl struct {
	superAdmin string
}

func NewAccessControl(superAdminUserName string) *AccessControl {
	return &AccessControl{superAdmin: strings.ToLower(superAdminUserName)}
}

// Authorize returns ErrForbidden unless the principal carries requiredRole.
// The comparison is an exact, case-sensitive match.
func (ac *AccessControl) Authorize(principal *models.Principal, requiredRole string) error {
	if principal == nil || !principal.HasRole(requiredRole) {
		return models.ErrForbidden
	}
	return nil
}

// IsSuperAdmin reports whether account is the designated super admin
func (ac *AccessControl) IsSuperAdmin(account *models.Account) bool {
	return account != nil && ac.superAdmin != "" && strings.EqualFold(account.UserName, ac.superAdmin)
}

// Guard must be called before any lock, unlock, delete or edit of an account
func (ac *AccessControl) Guard(account *models.Account) error {
	if ac.IsSuperAdmin(account) {
		return models.ErrSuperAdminProtected
	}
	return nil
}

// SuperAdminUserName returns the normalized super admin user name
func (ac *AccessControl) SuperAdminUserName() string {
	return ac.superAdmin
}
