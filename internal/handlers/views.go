package handlers

import (
	"context"

	"github.com/campushub/backend/internal/models"
	"github.com/campushub/backend/internal/services"
)

// AuthorView is the viewer-specific rendering of a content author.
// RealAuthorID never appears here; anonymous content exposes no id,
// no avatar, no role and no presence, even to viewers who could
// reveal it but have not.
type AuthorView struct {
	AuthorID    string  `json:"authorID,omitempty"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarURL,omitempty"`
	RoleLabel   string  `json:"roleLabel,omitempty"`
	IsAnonymous bool    `json:"isAnonymous"`
	CanReveal   bool    `json:"canReveal"`
	IsOnline    bool    `json:"isOnline"`
}

type authorSource struct {
	StoredAuthorID string
	RealAuthor     *models.User
	Username       string
	IsAnonymous    bool
}

func buildAuthorView(ctx context.Context, viewer *models.User, src authorSource, revealed bool, presence services.Presence) (AuthorView, services.IdentityDecision) {
	viewerRole := models.RoleStudent
	if viewer != nil {
		viewerRole = viewer.Role
	}

	// a missing author profile degrades to the least-privileged role
	authorRole := models.RoleStudent
	if src.RealAuthor != nil {
		authorRole = services.NormalizeRole(src.RealAuthor.Role)
	}

	isAnonymous := src.IsAnonymous
	decision := services.ResolveIdentity(&isAnonymous, authorRole, viewerRole, revealed, src.RealAuthor, src.Username)

	view := AuthorView{
		DisplayName: decision.DisplayName,
		IsAnonymous: src.IsAnonymous,
		CanReveal:   decision.CanShowRevealControl,
	}

	if !decision.IdentityVisible {
		return view, decision
	}

	if services.CanLinkToProfile(decision, src.StoredAuthorID) {
		view.AuthorID = src.StoredAuthorID
	}
	if src.RealAuthor != nil {
		view.AvatarURL = src.RealAuthor.AvatarURL
		view.RoleLabel = services.RoleDisplayName(authorRole)
		if presence != nil {
			view.IsOnline = presence.IsOnline(ctx, src.RealAuthor.ID.String())
		}
	}

	return view, decision
}
