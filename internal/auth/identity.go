// Package auth resolves the caller identity injected by the gateway and
// centralizes the capability checks the ledger services rely on. The service
// trusts the resolved {userId, role} pair as-is per call; authentication
// itself lives upstream.
package auth

import "github.com/perkwise/backoffice/internal/models"

// Role is the caller's resolved role.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "Manager"
	RoleBookkeeper Role = "Bookkeeper"
	RoleUser       Role = "User"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleBookkeeper, RoleUser:
		return true
	}
	return false
}

// Identity is the caller of a single request.
type Identity struct {
	UserID string
	Role   Role
}

// CanManageInvoices reports whether the role may change invoice statuses and
// see the admin invoice views.
func CanManageInvoices(r Role) bool {
	return r == RoleAdmin || r == RoleBookkeeper
}

// CanManageTeams reports whether the role may create teams.
func CanManageTeams(r Role) bool {
	return r == RoleAdmin || r == RoleManager
}

// CanAdministrate reports whether the role may change category limits and
// quota settings.
func CanAdministrate(r Role) bool {
	return r == RoleAdmin
}

// CanDeleteInvoice reports whether the caller may delete the given invoice:
// the owner always can, and Admin/Manager can for anyone. The status guard is
// separate and checked first.
func CanDeleteInvoice(id Identity, invoice *models.Invoice) bool {
	if id.UserID == invoice.UserID {
		return true
	}
	return id.Role == RoleAdmin || id.Role == RoleManager
}
