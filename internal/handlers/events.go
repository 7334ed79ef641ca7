package handlers

import (
	"strings"
	"time"

	"github.com/campushub/backend/internal/middleware"
	"github.com/campushub/backend/internal/models"
	"github.com/campushub/backend/internal/services"
	"github.com/campushub/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type EventsHandler struct {
	DB *gorm.DB
}

func NewEventsHandler(db *gorm.DB) *EventsHandler {
	return &EventsHandler{DB: db}
}

type eventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	ImageURL    *string    `json:"imageURL"`
}

func (r *eventRequest) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)

	switch {
	case r.Title == "":
		return "title is required"
	case r.Description == "":
		return "description is required"
	case r.Location == "":
		return "location is required"
	case r.StartsAt == nil || r.EndsAt == nil:
		return "startsAt and endsAt are required"
	case !r.EndsAt.After(*r.StartsAt):
		return "endsAt must be after startsAt"
	}
	return ""
}

func (h *EventsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if !services.PermissionsFor(user.Role).CanCreateEvents {
		return utils.Error(c, fiber.StatusForbidden, "event creation not allowed")
	}

	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	event := models.Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    *req.StartsAt,
		EndsAt:      *req.EndsAt,
		ImageURL:    req.ImageURL,
		CreatedByID: user.ID,
	}

	if err := h.DB.Create(&event).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating event")
	}

	event.CreatedBy = *user
	return utils.Success(c, fiber.StatusCreated, event)
}

func (h *EventsHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Event{})
	if !boolQuery(c.Query("includePast")) {
		query = query.Where("ends_at >= ?", time.Now())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting events")
	}

	var events []models.Event
	if err := utils.ApplyPagination(query.Preload("CreatedBy").Order("starts_at ASC"), p).Find(&events).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing events")
	}

	return utils.Paginated(c, events, p.Page, p.Limit, total)
}

func (h *EventsHandler) Get(c *fiber.Ctx) error {
	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.Preload("CreatedBy").First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching event")
	}

	return utils.Success(c, fiber.StatusOK, event)
}

func (h *EventsHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if !services.PermissionsFor(user.Role).CanCreateEvents {
		return utils.Error(c, fiber.StatusForbidden, "event management not allowed")
	}

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching event")
	}

	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Location = req.Location
	event.StartsAt = *req.StartsAt
	event.EndsAt = *req.EndsAt
	event.ImageURL = req.ImageURL

	if err := h.DB.Save(&event).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating event")
	}

	return utils.Success(c, fiber.StatusOK, event)
}

func (h *EventsHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if !services.PermissionsFor(user.Role).CanCreateEvents {
		return utils.Error(c, fiber.StatusForbidden, "event management not allowed")
	}

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	result := h.DB.Unscoped().Delete(&models.Event{}, "id = ?", eventID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting event")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "event not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
