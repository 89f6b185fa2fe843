package handlers

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-msgqueue/internal/api/response"
	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/queue"
)

// AttachmentHandler serves the materialized attachments of queued messages
type AttachmentHandler struct {
	queue *queue.Queue
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(q *queue.Queue) *AttachmentHandler {
	return &AttachmentHandler{queue: q}
}

// List handles GET /api/messages/:id/attachments
func (h *AttachmentHandler) List(c echo.Context) error {
	msg, err := h.message(c)
	if err != nil {
		return h.writeError(c, err)
	}

	attachments := msg.Attachments()
	if attachments == nil {
		attachments = models.Attachments{}
	}
	return response.Success(c, attachments)
}

// Download handles GET /api/messages/:id/attachments/:index
func (h *AttachmentHandler) Download(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return response.BadRequest(c, "invalid attachment index")
	}

	msg, err := h.message(c)
	if err != nil {
		return h.writeError(c, err)
	}

	attachments := msg.Attachments()
	if index >= len(attachments) {
		return response.NotFound(c, "attachment not found")
	}

	attachment := attachments[index]
	file, err := os.Open(attachment.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return response.NotFound(c, "attachment file not found")
		}
		return response.InternalError(c, "failed to retrieve file")
	}
	defer file.Close()

	contentType := attachment.Type
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": attachment.Filename})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	if info, err := file.Stat(); err == nil {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(info.Size(), 10))
	}

	return c.Stream(http.StatusOK, contentType, file)
}

func (h *AttachmentHandler) message(c echo.Context) (*queue.Message, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, apperrors.ErrInvalidInput
	}
	return h.queue.Get(c.Request().Context(), id)
}

func (h *AttachmentHandler) writeError(c echo.Context, err error) error {
	switch {
	case apperrors.IsInvalidInput(err):
		return response.BadRequest(c, "invalid message ID")
	case apperrors.IsNotFound(err):
		return response.NotFound(c, "message not found")
	default:
		return response.InternalError(c, "failed to get message")
	}
}
