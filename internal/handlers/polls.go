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

type PollsHandler struct {
	DB       *gorm.DB
	Audit    *services.AuditService
	Presence services.Presence
}

func NewPollsHandler(db *gorm.DB, audit *services.AuditService, presence services.Presence) *PollsHandler {
	return &PollsHandler{DB: db, Audit: audit, Presence: presence}
}

type pollOptionView struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Votes    int    `json:"votes"`
	Selected bool   `json:"selected"`
}

type pollView struct {
	ID            uuid.UUID        `json:"id"`
	Question      string           `json:"question"`
	Options       []pollOptionView `json:"options"`
	AllowMultiple bool             `json:"allowMultiple"`
	MaxSelections int              `json:"maxSelections"`
	TotalVotes    int              `json:"totalVotes"`
	ExpiresAt     time.Time        `json:"expiresAt"`
	Expired       bool             `json:"expired"`
	Author        AuthorView       `json:"author"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func (h *PollsHandler) buildPollView(c *fiber.Ctx, viewer *models.User, poll *models.Poll, revealed bool) (pollView, services.IdentityDecision) {
	author, decision := buildAuthorView(c.Context(), viewer, authorSource{
		StoredAuthorID: poll.AuthorID,
		RealAuthor:     poll.RealAuthor,
		Username:       poll.Username,
		IsAnonymous:    poll.IsAnonymous,
	}, revealed, h.Presence)

	var viewerID string
	if viewer != nil {
		viewerID = viewer.ID.String()
	}
	selected := map[int]bool{}
	for _, idx := range services.VoterSelections(poll, viewerID) {
		selected[idx] = true
	}

	options := make([]pollOptionView, 0, len(poll.Options))
	for i, option := range poll.Options {
		options = append(options, pollOptionView{
			Index:    i,
			Text:     option.Text,
			Votes:    option.Votes,
			Selected: selected[i],
		})
	}

	return pollView{
		ID:            poll.ID,
		Question:      poll.Question,
		Options:       options,
		AllowMultiple: poll.AllowMultiple,
		MaxSelections: poll.MaxSelections,
		TotalVotes:    poll.TotalVotes,
		ExpiresAt:     poll.ExpiresAt,
		Expired:       services.PollExpired(poll, time.Now()),
		Author:        author,
		CreatedAt:     poll.CreatedAt,
	}, decision
}

type createPollRequest struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	AllowMultiple bool     `json:"allowMultiple"`
	MaxSelections int      `json:"maxSelections"`
	DurationMs    int64    `json:"durationMs"`
	IsAnonymous   bool     `json:"isAnonymous"`
}

func (h *PollsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	perms := services.PermissionsFor(user.Role)
	if !perms.CanCreatePolls {
		return utils.Error(c, fiber.StatusForbidden, "poll creation not allowed")
	}

	var req createPollRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return utils.Error(c, fiber.StatusBadRequest, "question is required")
	}

	options := make([]models.PollOption, 0, len(req.Options))
	for _, text := range req.Options {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		options = append(options, models.PollOption{Text: text, Voters: []string{}})
	}
	if len(options) < 2 {
		return utils.Error(c, fiber.StatusBadRequest, "at least two non-empty options are required")
	}

	if req.DurationMs <= 0 {
		return utils.Error(c, fiber.StatusBadRequest, "durationMs must be positive")
	}

	maxSelections := 1
	if req.AllowMultiple {
		maxSelections = services.ClampMaxSelections(req.MaxSelections, len(options))
	}

	poll := models.Poll{
		Question:      req.Question,
		Options:       options,
		AllowMultiple: req.AllowMultiple,
		MaxSelections: maxSelections,
		DurationMs:    req.DurationMs,
		ExpiresAt:     time.Now().Add(time.Duration(req.DurationMs) * time.Millisecond),
		AuthorID:      models.StoredAuthorID(user.ID, req.IsAnonymous),
		RealAuthorID:  user.ID,
		Username:      user.FullName(),
		IsAnonymous:   req.IsAnonymous,
	}

	if err := h.DB.Create(&poll).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating poll")
	}

	logger.InfoWithUser(user.ID.String(), "poll_created", map[string]interface{}{
		"poll_id":        poll.ID.String(),
		"options":        len(options),
		"allow_multiple": poll.AllowMultiple,
	})

	poll.RealAuthor = user
	view, _ := h.buildPollView(c, user, &poll, false)
	return utils.Success(c, fiber.StatusCreated, view)
}

func (h *PollsHandler) List(c *fiber.Ctx) error {
	viewer := middleware.GetCurrentUser(c)
	p := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.Poll{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting polls")
	}

	var polls []models.Poll
	query := h.DB.Preload("RealAuthor").Order("created_at DESC")
	if err := utils.ApplyPagination(query, p).Find(&polls).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing polls")
	}

	views := make([]pollView, 0, len(polls))
	for i := range polls {
		view, _ := h.buildPollView(c, viewer, &polls[i], false)
		views = append(views, view)
	}

	return utils.Paginated(c, views, p.Page, p.Limit, total)
}

func (h *PollsHandler) Get(c *fiber.Ctx) error {
	viewer := middleware.GetCurrentUser(c)
	pollID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid poll id")
	}

	var poll models.Poll
	if err := h.DB.Preload("RealAuthor").First(&poll, "id = ?", pollID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "poll not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching poll")
	}

	revealed := boolQuery(c.Query("reveal"))
	view, decision := h.buildPollView(c, viewer, &poll, revealed)

	if revealed && poll.IsAnonymous && decision.IdentityVisible && viewer != nil {
		h.Audit.LogAsync(services.AuditEntry{
			UserID:       &viewer.ID,
			Action:       "poll.reveal_identity",
			ResourceType: "poll",
			ResourceID:   &poll.ID,
			IPAddress:    c.IP(),
		})
	}

	return utils.Success(c, fiber.StatusOK, view)
}

type voteRequest struct {
	OptionIndex int `json:"optionIndex"`
}

func voteRejectionStatus(reason string) int {
	switch reason {
	case services.VoteReasonExpired:
		return fiber.StatusGone
	case services.VoteReasonInvalidOption:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusConflict
	}
}

// Vote runs the eligibility check and the tally transform inside one
// transaction with the poll row locked, so two concurrent voters
// serialize instead of each clobbering the other's voter array.
func (h *PollsHandler) Vote(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	perms := services.PermissionsFor(user.Role)
	if !perms.CanVote {
		return utils.Error(c, fiber.StatusForbidden, "voting not allowed")
	}

	pollID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid poll id")
	}

	var req voteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var updated models.Poll
	var decision services.VoteDecision
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&poll, "id = ?", pollID).Error; err != nil {
			return err
		}

		decision = services.CanVote(&poll, req.OptionIndex, user.ID.String(), time.Now())
		if !decision.Accepted {
			return nil
		}

		updated = services.ApplyVote(poll, req.OptionIndex, user.ID.String())
		return tx.Model(&poll).Updates(map[string]interface{}{
			"options":     updated.Options,
			"total_votes": updated.TotalVotes,
		}).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "poll not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording vote")
	}

	if !decision.Accepted {
		return utils.Rejected(c, voteRejectionStatus(decision.Reason), decision.Reason)
	}

	logger.InfoWithUser(user.ID.String(), "poll_vote", map[string]interface{}{
		"poll_id":      pollID.String(),
		"option_index": req.OptionIndex,
	})

	updated.RealAuthor = nil
	view, _ := h.buildPollView(c, user, &updated, false)
	return utils.Success(c, fiber.StatusOK, view)
}

type addOptionRequest struct {
	Text string `json:"text"`
}

func (h *PollsHandler) AddOption(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	pollID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid poll id")
	}

	var req addOptionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var updated models.Poll
	var decision services.AddOptionDecision
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&poll, "id = ?", pollID).Error; err != nil {
			return err
		}

		decision = services.CanAddOption(&poll, req.Text, time.Now())
		if !decision.Accepted {
			return nil
		}

		updated = services.ApplyAddOption(poll, req.Text)
		return tx.Model(&poll).Update("options", updated.Options).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "poll not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed adding option")
	}

	if !decision.Accepted {
		status := fiber.StatusBadRequest
		if decision.Reason == services.VoteReasonExpired {
			status = fiber.StatusGone
		}
		return utils.Rejected(c, status, decision.Reason)
	}

	logger.InfoWithUser(user.ID.String(), "poll_option_added", map[string]interface{}{
		"poll_id": pollID.String(),
	})

	view, _ := h.buildPollView(c, user, &updated, false)
	return utils.Success(c, fiber.StatusCreated, view)
}
