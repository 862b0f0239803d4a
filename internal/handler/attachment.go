package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/courierchat/server/internal/middleware"
	"github.com/courierchat/server/internal/repository"
)

// AttachmentHandler serves binary downloads gated by the per-attachment
// access list.
type AttachmentHandler struct {
	Attachments *repository.AttachmentRepo
}

func NewAttachmentHandler(a *repository.AttachmentRepo) *AttachmentHandler {
	if a == nil {
		panic("nil repository passed to NewAttachmentHandler")
	}
	return &AttachmentHandler{Attachments: a}
}

// Download handles GET /v1/attachments/:id. Only the two identities
// party to the owning message may fetch the blob; everyone else gets a
// 403 regardless of what they know about the attachment.
func (h *AttachmentHandler) Download(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}

	att, err := h.Attachments.Fetch(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAttachmentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !h.Attachments.Authorize(att, uid) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access_denied"})
	}

	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+att.FileName+`"`)
	return c.Blob(http.StatusOK, att.MimeType, att.Data)
}
