// Package permission derives a subject's role in a meeting and decides
// role-gated actions. Roles are recomputed from the host and member lists on
// every call.
package permission

import (
	"fmt"
	"slices"

	"github.com/dkeye/demeet/internal/domain"
)

// RoleOf checks host membership first, then general membership.
func RoleOf(m *domain.Meeting, subject domain.IdentityID) (domain.Role, bool) {
	if m == nil || subject == "" {
		return "", false
	}
	if slices.Contains(m.Host, subject) {
		return domain.RoleHost, true
	}
	if slices.Contains(m.Members, subject) {
		return domain.RoleMember, true
	}
	return "", false
}

// CanPerform fails closed: no role or an unknown action is a denial.
func CanPerform(m *domain.Meeting, subject domain.IdentityID, action domain.Action) bool {
	role, ok := RoleOf(m, subject)
	if !ok {
		return false
	}
	allowed, ok := m.Permissions[action]
	if !ok {
		return false
	}
	return slices.Contains(allowed, role)
}

// Require is CanPerform as an error for handlers.
func Require(m *domain.Meeting, subject domain.IdentityID, action domain.Action) error {
	if CanPerform(m, subject, action) {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrForbidden, action)
}
