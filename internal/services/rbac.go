package services

import (
	"strconv"
	"strings"

	"github.com/campushub/backend/internal/models"
)

// PermissionSet is the capability bundle for a role. It is always
// derived from the role via PermissionsFor and never stored, so a
// role change is immediately a permission change.
type PermissionSet struct {
	CanPost             bool `json:"canPost"`
	CanComment          bool `json:"canComment"`
	CanVote             bool `json:"canVote"`
	CanCreatePolls      bool `json:"canCreatePolls"`
	CanCreateEvents     bool `json:"canCreateEvents"`
	CanEditOwnPost      bool `json:"canEditOwnPost"`
	CanDeleteOwnPost    bool `json:"canDeleteOwnPost"`
	CanDeleteAnyPost    bool `json:"canDeleteAnyPost"`
	CanDeleteAnyComment bool `json:"canDeleteAnyComment"`
	CanManageUsers      bool `json:"canManageUsers"`
}

// legacy numeric role codes from the registrar export
var legacyRoleCodes = map[int]models.Role{
	1: models.RoleStudent,
	2: models.RoleTeacher,
	3: models.RoleModerator,
	4: models.RoleAdmin,
}

// NormalizeRole maps whatever a data source holds (canonical strings,
// legacy numeric codes 1-4, or garbage) onto a valid role. Unknown or
// missing values degrade to student rather than failing.
func NormalizeRole(value interface{}) models.Role {
	switch v := value.(type) {
	case models.Role:
		return normalizeRoleString(string(v))
	case string:
		return normalizeRoleString(v)
	case int:
		if role, ok := legacyRoleCodes[v]; ok {
			return role
		}
	case int64:
		if role, ok := legacyRoleCodes[int(v)]; ok {
			return role
		}
	case float64:
		if role, ok := legacyRoleCodes[int(v)]; ok {
			return role
		}
	}
	return models.RoleStudent
}

func normalizeRoleString(value string) models.Role {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "student":
		return models.RoleStudent
	case "teacher":
		return models.RoleTeacher
	case "moderator":
		return models.RoleModerator
	case "admin":
		return models.RoleAdmin
	}
	if code, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if role, ok := legacyRoleCodes[code]; ok {
			return role
		}
	}
	return models.RoleStudent
}

func IsStaff(role models.Role) bool {
	switch role {
	case models.RoleModerator, models.RoleTeacher, models.RoleAdmin:
		return true
	}
	return false
}

func IsAdmin(role models.Role) bool {
	return role == models.RoleAdmin
}

// HierarchyLevel orders roles for coarse comparisons. Teacher and
// moderator are peers despite distinct capability sets.
func HierarchyLevel(role models.Role) int {
	switch role {
	case models.RoleAdmin:
		return 3
	case models.RoleTeacher, models.RoleModerator:
		return 2
	default:
		return 1
	}
}

// RoleDisplayName is the label shown next to staff identities in the UI.
func RoleDisplayName(role models.Role) string {
	switch role {
	case models.RoleAdmin:
		return "Admin"
	case models.RoleModerator:
		return "Moderator"
	case models.RoleTeacher:
		return "Teacher"
	default:
		return "Student"
	}
}

// PermissionsFor derives the capability bundle for a role.
func PermissionsFor(role models.Role) PermissionSet {
	perms := PermissionSet{
		CanPost:          true,
		CanComment:       true,
		CanVote:          true,
		CanCreatePolls:   true,
		CanEditOwnPost:   true,
		CanDeleteOwnPost: true,
	}

	switch role {
	case models.RoleModerator:
		perms.CanDeleteAnyPost = true
		perms.CanDeleteAnyComment = true
	case models.RoleTeacher:
		perms.CanCreateEvents = true
		perms.CanDeleteAnyComment = true
	case models.RoleAdmin:
		perms.CanCreateEvents = true
		perms.CanDeleteAnyPost = true
		perms.CanDeleteAnyComment = true
		perms.CanManageUsers = true
	}

	return perms
}

// CanDeleteContent allows deleting own content with CanDeleteOwnPost,
// or any content with a staff delete capability.
func CanDeleteContent(perms PermissionSet, contentAuthorID, actingUserID string) bool {
	if perms.CanDeleteAnyPost || perms.CanDeleteAnyComment {
		return true
	}
	return contentAuthorID != "" && contentAuthorID == actingUserID && perms.CanDeleteOwnPost
}

// CanEditContent allows editing self-authored content only. Staff may
// delete but never silently rewrite someone else's words.
func CanEditContent(perms PermissionSet, contentAuthorID, actingUserID string) bool {
	return contentAuthorID != "" && contentAuthorID == actingUserID && perms.CanEditOwnPost
}
