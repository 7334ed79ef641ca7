package handlers

import (
	"github.com/campushub/backend/internal/models"
	"github.com/campushub/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditHandler struct {
	DB *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{DB: db}
}

// List returns the moderation audit trail, newest first. Admin only.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.AuditLog{})
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting audit entries")
	}

	var entries []models.AuditLog
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&entries).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing audit entries")
	}

	return utils.Paginated(c, entries, p.Page, p.Limit, total)
}
