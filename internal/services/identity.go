package services

import "github.com/campushub/backend/internal/models"

const (
	anonymousDisplayName = "Anonymous"
	fallbackDisplayName  = "User"
)

// IdentityDecision is the resolved presentation of one content item's
// author for one viewer.
type IdentityDecision struct {
	IdentityVisible      bool   `json:"identityVisible"`
	CanShowRevealControl bool   `json:"canShowRevealControl"`
	DisplayName          string `json:"displayName"`
}

// CanSeeIdentity reports whether the viewer's role may unmask an
// anonymous author of the given role: admins unmask anyone, teachers
// and moderators unmask students only, students unmask no one.
func CanSeeIdentity(viewerRole, authorRole models.Role) bool {
	if IsAdmin(viewerRole) {
		return true
	}
	return (viewerRole == models.RoleTeacher || viewerRole == models.RoleModerator) &&
		authorRole == models.RoleStudent
}

// ResolveIdentity decides how a content item's author is shown to a
// viewer. isAnonymous is a pointer because legacy rows may lack the
// flag; an unset flag is treated as anonymous (fail-closed). revealed
// is the caller's per-request disclosure toggle; it grants nothing on
// its own and is never persisted.
//
// author is the live profile of the real author and may be nil when
// the profile failed to load or was deleted; storedUsername is the
// name snapshot taken at write time.
func ResolveIdentity(isAnonymous *bool, authorRole, viewerRole models.Role, revealed bool, author *models.User, storedUsername string) IdentityDecision {
	anonymous := true
	if isAnonymous != nil {
		anonymous = *isAnonymous
	}

	canSee := CanSeeIdentity(viewerRole, authorRole)

	decision := IdentityDecision{
		CanShowRevealControl: anonymous && canSee,
		IdentityVisible:      !anonymous || (revealed && canSee),
	}

	if !decision.IdentityVisible {
		decision.DisplayName = anonymousDisplayName
		return decision
	}

	decision.DisplayName = resolveDisplayName(author, storedUsername)
	return decision
}

func resolveDisplayName(author *models.User, storedUsername string) string {
	if author != nil {
		if name := author.FullName(); name != "" {
			return name
		}
	}
	if storedUsername != "" {
		return storedUsername
	}
	return fallbackDisplayName
}

// CanLinkToProfile reports whether a profile navigation target exists:
// the identity must be visible and the author id must be a real id,
// never the anonymity sentinel.
func CanLinkToProfile(decision IdentityDecision, authorID string) bool {
	return decision.IdentityVisible && authorID != "" && authorID != models.AnonymousAuthorID
}
