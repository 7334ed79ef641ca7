package handlers

import (
	"strings"

	"github.com/campushub/backend/internal/middleware"
	"github.com/campushub/backend/internal/services"
	"github.com/campushub/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type PresenceHandler struct {
	Presence services.Presence
}

func NewPresenceHandler(presence services.Presence) *PresenceHandler {
	return &PresenceHandler{Presence: presence}
}

// Heartbeat marks the caller online for the presence TTL. Clients call
// it periodically while the app is foregrounded.
func (h *PresenceHandler) Heartbeat(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if h.Presence != nil {
		_ = h.Presence.Heartbeat(c.Context(), user.ID.String())
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"online": true})
}

// Online reports online status for up to 100 comma-separated user ids.
// Status is best-effort metadata; unknown ids simply read as offline.
func (h *PresenceHandler) Online(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		return utils.Error(c, fiber.StatusBadRequest, "ids is required")
	}

	ids := strings.Split(raw, ",")
	if len(ids) > 100 {
		ids = ids[:100]
	}
	for i := range ids {
		ids[i] = strings.TrimSpace(ids[i])
	}

	online := map[string]bool{}
	if h.Presence != nil {
		online = h.Presence.OnlineSet(c.Context(), ids)
	}

	result := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		result[id] = online[id]
	}

	return utils.Success(c, fiber.StatusOK, result)
}
