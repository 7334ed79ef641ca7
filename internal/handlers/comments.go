package handlers

import (
	"strings"
	"time"

	"github.com/campushub/backend/internal/middleware"
	"github.com/campushub/backend/internal/models"
	"github.com/campushub/backend/internal/services"
	"github.com/campushub/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentsHandler struct {
	DB       *gorm.DB
	Audit    *services.AuditService
	Presence services.Presence
}

func NewCommentsHandler(db *gorm.DB, audit *services.AuditService, presence services.Presence) *CommentsHandler {
	return &CommentsHandler{DB: db, Audit: audit, Presence: presence}
}

type commentView struct {
	ID        uuid.UUID  `json:"id"`
	PostID    uuid.UUID  `json:"postID"`
	ParentID  *uuid.UUID `json:"parentID,omitempty"`
	Content   string     `json:"content"`
	Author    AuthorView `json:"author"`
	LikeCount int        `json:"likeCount"`
	Liked     bool       `json:"liked"`
	CanDelete bool       `json:"canDelete"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (h *CommentsHandler) buildCommentView(c *fiber.Ctx, viewer *models.User, comment *models.Comment, revealed bool) (commentView, services.IdentityDecision) {
	author, decision := buildAuthorView(c.Context(), viewer, authorSource{
		StoredAuthorID: comment.AuthorID,
		RealAuthor:     comment.RealAuthor,
		Username:       comment.Username,
		IsAnonymous:    comment.IsAnonymous,
	}, revealed, h.Presence)

	view := commentView{
		ID:        comment.ID,
		PostID:    comment.PostID,
		ParentID:  comment.ParentID,
		Content:   comment.Content,
		Author:    author,
		LikeCount: len(comment.Likes),
		CreatedAt: comment.CreatedAt,
	}

	if viewer != nil {
		perms := services.PermissionsFor(viewer.Role)
		viewerID := viewer.ID.String()
		view.Liked = comment.LikedBy(viewerID)
		view.CanDelete = services.CanDeleteContent(
			services.PermissionSet{
				CanDeleteOwnPost:    perms.CanDeleteOwnPost,
				CanDeleteAnyComment: perms.CanDeleteAnyComment,
			},
			comment.RealAuthorID.String(),
			viewerID,
		)
	}

	return view, decision
}

type createCommentRequest struct {
	Content     string     `json:"content"`
	ParentID    *uuid.UUID `json:"parentID"`
	IsAnonymous bool       `json:"isAnonymous"`
}

func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	perms := services.PermissionsFor(user.Role)
	if !perms.CanComment {
		return utils.Error(c, fiber.StatusForbidden, "commenting not allowed")
	}

	postID, err := parseUUID(c.Params("postID"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return utils.Error(c, fiber.StatusBadRequest, "content is required")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching post")
	}

	if req.ParentID != nil {
		var parent models.Comment
		if err := h.DB.First(&parent, "id = ?", *req.ParentID).Error; err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "parent comment not found")
		}
		if parent.PostID != postID {
			return utils.Error(c, fiber.StatusBadRequest, "parent comment belongs to another post")
		}
		// replies are one level deep
		if parent.ParentID != nil {
			return utils.Error(c, fiber.StatusBadRequest, "cannot reply to a reply")
		}
	}

	comment := models.Comment{
		PostID:       postID,
		ParentID:     req.ParentID,
		Content:      req.Content,
		AuthorID:     models.StoredAuthorID(user.ID, req.IsAnonymous),
		RealAuthorID: user.ID,
		Username:     user.FullName(),
		IsAnonymous:  req.IsAnonymous,
		Likes:        []string{},
	}

	if err := h.DB.Create(&comment).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating comment")
	}

	comment.RealAuthor = user
	view, _ := h.buildCommentView(c, user, &comment, false)
	return utils.Success(c, fiber.StatusCreated, view)
}

func (h *CommentsHandler) ListForPost(c *fiber.Ctx) error {
	viewer := middleware.GetCurrentUser(c)
	postID, err := parseUUID(c.Params("postID"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var comments []models.Comment
	err = h.DB.Preload("RealAuthor").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing comments")
	}

	views := make([]commentView, 0, len(comments))
	for i := range comments {
		view, _ := h.buildCommentView(c, viewer, &comments[i], false)
		views = append(views, view)
	}

	return utils.Success(c, fiber.StatusOK, views)
}

func (h *CommentsHandler) Get(c *fiber.Ctx) error {
	viewer := middleware.GetCurrentUser(c)
	commentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var comment models.Comment
	if err := h.DB.Preload("RealAuthor").First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching comment")
	}

	revealed := boolQuery(c.Query("reveal"))
	view, decision := h.buildCommentView(c, viewer, &comment, revealed)

	if revealed && comment.IsAnonymous && decision.IdentityVisible && viewer != nil {
		h.Audit.LogAsync(services.AuditEntry{
			UserID:       &viewer.ID,
			Action:       "comment.reveal_identity",
			ResourceType: "comment",
			ResourceID:   &comment.ID,
			IPAddress:    c.IP(),
		})
	}

	return utils.Success(c, fiber.StatusOK, view)
}

func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	commentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var comment models.Comment
	if err := h.DB.First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching comment")
	}

	perms := services.PermissionsFor(user.Role)
	deletePerms := services.PermissionSet{
		CanDeleteOwnPost:    perms.CanDeleteOwnPost,
		CanDeleteAnyComment: perms.CanDeleteAnyComment,
	}
	if !services.CanDeleteContent(deletePerms, comment.RealAuthorID.String(), user.ID.String()) {
		return utils.Error(c, fiber.StatusForbidden, "not allowed to delete this comment")
	}

	// hard delete; replies to a top-level comment go with it
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if comment.ParentID == nil {
			if err := tx.Unscoped().Where("parent_id = ?", commentID).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&models.Comment{}, "id = ?", commentID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting comment")
	}

	if comment.RealAuthorID != user.ID {
		h.Audit.LogAsync(services.AuditEntry{
			UserID:       &user.ID,
			Action:       "comment.delete_foreign",
			ResourceType: "comment",
			ResourceID:   &commentID,
			Details: map[string]interface{}{
				"author_id": comment.RealAuthorID.String(),
			},
			IPAddress: c.IP(),
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *CommentsHandler) ToggleLike(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	commentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var likeCount int
	var liked bool
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&comment, "id = ?", commentID).Error; err != nil {
			return err
		}

		userID := user.ID.String()
		likes := make([]string, 0, len(comment.Likes)+1)
		for _, id := range comment.Likes {
			if id != userID {
				likes = append(likes, id)
			}
		}
		liked = len(likes) == len(comment.Likes)
		if liked {
			likes = append(likes, userID)
		}
		likeCount = len(likes)

		return tx.Model(&comment).Update("likes", likes).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed toggling like")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"liked": liked, "likeCount": likeCount})
}
