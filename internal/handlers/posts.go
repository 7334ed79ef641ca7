package handlers

import (
	"strings"
	"time"

	"github.com/campushub/backend/internal/middleware"
	"github.com/campushub/backend/internal/models"
	"github.com/campushub/backend/internal/services"
	"github.com/campushub/backend/pkg/logger"
	"github.com/campushub/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostsHandler struct {
	DB       *gorm.DB
	Audit    *services.AuditService
	Presence services.Presence
}

func NewPostsHandler(db *gorm.DB, audit *services.AuditService, presence services.Presence) *PostsHandler {
	return &PostsHandler{DB: db, Audit: audit, Presence: presence}
}

type postView struct {
	ID           uuid.UUID  `json:"id"`
	Content      string     `json:"content"`
	ImageURL     *string    `json:"imageURL,omitempty"`
	Author       AuthorView `json:"author"`
	LikeCount    int        `json:"likeCount"`
	Liked        bool       `json:"liked"`
	CommentCount int64      `json:"commentCount"`
	CanEdit      bool       `json:"canEdit"`
	CanDelete    bool       `json:"canDelete"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (h *PostsHandler) buildPostView(c *fiber.Ctx, viewer *models.User, post *models.Post, revealed bool, commentCount int64) (postView, services.IdentityDecision) {
	author, decision := buildAuthorView(c.Context(), viewer, authorSource{
		StoredAuthorID: post.AuthorID,
		RealAuthor:     post.RealAuthor,
		Username:       post.Username,
		IsAnonymous:    post.IsAnonymous,
	}, revealed, h.Presence)

	view := postView{
		ID:           post.ID,
		Content:      post.Content,
		ImageURL:     post.ImageURL,
		Author:       author,
		LikeCount:    len(post.Likes),
		CommentCount: commentCount,
		CreatedAt:    post.CreatedAt,
	}

	if viewer != nil {
		perms := services.PermissionsFor(viewer.Role)
		viewerID := viewer.ID.String()
		view.Liked = post.LikedBy(viewerID)
		view.CanEdit = services.CanEditContent(perms, post.RealAuthorID.String(), viewerID)
		view.CanDelete = services.CanDeleteContent(
			services.PermissionSet{
				CanDeleteOwnPost: perms.CanDeleteOwnPost,
				CanDeleteAnyPost: perms.CanDeleteAnyPost,
			},
			post.RealAuthorID.String(),
			viewerID,
		)
	}

	return view, decision
}

type createPostRequest struct {
	Content     string  `json:"content"`
	ImageURL    *string `json:"imageURL"`
	IsAnonymous bool    `json:"isAnonymous"`
}

func (h *PostsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	perms := services.PermissionsFor(user.Role)
	if !perms.CanPost {
		return utils.Error(c, fiber.StatusForbidden, "posting not allowed")
	}

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return utils.Error(c, fiber.StatusBadRequest, "content is required")
	}

	post := models.Post{
		Content:      req.Content,
		ImageURL:     req.ImageURL,
		AuthorID:     models.StoredAuthorID(user.ID, req.IsAnonymous),
		RealAuthorID: user.ID,
		Username:     user.FullName(),
		IsAnonymous:  req.IsAnonymous,
		Likes:        []string{},
	}

	if err := h.DB.Create(&post).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating post")
	}

	logger.InfoWithUser(user.ID.String(), "post_created", map[string]interface{}{
		"post_id":   post.ID.String(),
		"anonymous": post.IsAnonymous,
	})

	post.RealAuthor = user
	view, _ := h.buildPostView(c, user, &post, false, 0)
	return utils.Success(c, fiber.StatusCreated, view)
}

func (h *PostsHandler) List(c *fiber.Ctx) error {
	viewer := middleware.GetCurrentUser(c)
	p := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.Post{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting posts")
	}

	var posts []models.Post
	query := h.DB.Preload("RealAuthor").Order("created_at DESC")
	if err := utils.ApplyPagination(query, p).Find(&posts).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing posts")
	}

	counts, err := h.commentCounts(posts)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting comments")
	}

	views := make([]postView, 0, len(posts))
	for i := range posts {
		view, _ := h.buildPostView(c, viewer, &posts[i], false, counts[posts[i].ID])
		views = append(views, view)
	}

	return utils.Paginated(c, views, p.Page, p.Limit, total)
}

func (h *PostsHandler) commentCounts(posts []models.Post) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(posts))
	if len(posts) == 0 {
		return counts, nil
	}

	ids := make([]uuid.UUID, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}

	type row struct {
		PostID uuid.UUID
		Total  int64
	}
	var rows []row
	err := h.DB.Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		counts[r.PostID] = r.Total
	}
	return counts, nil
}

// Get returns one post. `?reveal=true` asks to unmask an anonymous
// author; it only takes effect for viewers the identity resolver
// authorizes, is never persisted, and is audit-logged when granted.
func (h *PostsHandler) Get(c *fiber.Ctx) error {
	viewer := middleware.GetCurrentUser(c)
	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.Preload("RealAuthor").First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching post")
	}

	revealed := boolQuery(c.Query("reveal"))

	var commentCount int64
	if err := h.DB.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&commentCount).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting comments")
	}

	view, decision := h.buildPostView(c, viewer, &post, revealed, commentCount)

	if revealed && post.IsAnonymous && decision.IdentityVisible && viewer != nil {
		h.Audit.LogAsync(services.AuditEntry{
			UserID:       &viewer.ID,
			Action:       "post.reveal_identity",
			ResourceType: "post",
			ResourceID:   &post.ID,
			IPAddress:    c.IP(),
		})
	}

	return utils.Success(c, fiber.StatusOK, view)
}

type updatePostRequest struct {
	Content string `json:"content"`
}

func (h *PostsHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching post")
	}

	perms := services.PermissionsFor(user.Role)
	if !services.CanEditContent(perms, post.RealAuthorID.String(), user.ID.String()) {
		return utils.Error(c, fiber.StatusForbidden, "not allowed to edit this post")
	}

	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return utils.Error(c, fiber.StatusBadRequest, "content is required")
	}

	if err := h.DB.Model(&post).Update("content", req.Content).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating post")
	}

	post.Content = req.Content
	post.RealAuthor = user
	view, _ := h.buildPostView(c, user, &post, false, 0)
	return utils.Success(c, fiber.StatusOK, view)
}

func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching post")
	}

	perms := services.PermissionsFor(user.Role)
	deletePerms := services.PermissionSet{
		CanDeleteOwnPost: perms.CanDeleteOwnPost,
		CanDeleteAnyPost: perms.CanDeleteAnyPost,
	}
	if !services.CanDeleteContent(deletePerms, post.RealAuthorID.String(), user.ID.String()) {
		return utils.Error(c, fiber.StatusForbidden, "not allowed to delete this post")
	}

	// hard delete: comments go with the post, nothing is resurrected
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Post{}, "id = ?", postID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting post")
	}

	if post.RealAuthorID != user.ID {
		h.Audit.LogAsync(services.AuditEntry{
			UserID:       &user.ID,
			Action:       "post.delete_foreign",
			ResourceType: "post",
			ResourceID:   &postID,
			Details: map[string]interface{}{
				"author_id": post.RealAuthorID.String(),
			},
			IPAddress: c.IP(),
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// ToggleLike adds or removes the caller from the likes set. The whole
// read-modify-write runs in a transaction so concurrent toggles
// serialize instead of overwriting each other's array.
func (h *PostsHandler) ToggleLike(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var likeCount int
	var liked bool
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, "id = ?", postID).Error; err != nil {
			return err
		}

		userID := user.ID.String()
		likes := make([]string, 0, len(post.Likes)+1)
		for _, id := range post.Likes {
			if id != userID {
				likes = append(likes, id)
			}
		}
		liked = len(likes) == len(post.Likes)
		if liked {
			likes = append(likes, userID)
		}
		likeCount = len(likes)

		return tx.Model(&post).Update("likes", likes).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed toggling like")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"liked": liked, "likeCount": likeCount})
}
