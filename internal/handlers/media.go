package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/campushub/backend/internal/config"
	"github.com/campushub/backend/internal/middleware"
	"github.com/campushub/backend/internal/storage"
	"github.com/campushub/backend/pkg/logger"
	"github.com/campushub/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MediaHandler struct {
	Storage *storage.MediaStore
	Media   config.MediaConfig
}

func NewMediaHandler(store *storage.MediaStore, cfg config.MediaConfig) *MediaHandler {
	return &MediaHandler{Storage: store, Media: cfg}
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	if h.Storage == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "media storage not configured")
	}

	user := middleware.GetCurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > h.Media.MaxUploadBytes {
		return utils.Error(c, fiber.StatusRequestEntityTooLarge, "file too large")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return utils.Error(c, fiber.StatusBadRequest, "unsupported media type")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading upload")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	objectName := fmt.Sprintf("uploads/%s/%s%s", user.ID.String(), uuid.New().String(), ext)

	if err := h.Storage.Upload(c.Context(), objectName, file, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing upload")
	}

	url, err := h.Storage.PresignedGetURL(c.Context(), objectName, h.Media.URLExpiry)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating media URL")
	}

	logger.InfoWithUser(user.ID.String(), "media_uploaded", map[string]interface{}{
		"object_name":  objectName,
		"size":         fileHeader.Size,
		"content_type": contentType,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"objectName": objectName,
		"url":        url,
	})
}

func (h *MediaHandler) Delete(c *fiber.Ctx) error {
	if h.Storage == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "media storage not configured")
	}

	user := middleware.GetCurrentUser(c)
	objectName := strings.TrimSpace(c.Query("objectName"))

	// uploads are namespaced per user; only the owner may delete
	prefix := "uploads/" + user.ID.String() + "/"
	if !strings.HasPrefix(objectName, prefix) {
		return utils.Error(c, fiber.StatusForbidden, "not allowed to delete this object")
	}

	if err := h.Storage.Delete(c.Context(), objectName); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting object")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
