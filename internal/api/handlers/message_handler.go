package handlers

import (
	"errors"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-msgqueue/internal/api/response"
	"github.com/welldanyogia/webrana-msgqueue/internal/cache"
	"github.com/welldanyogia/webrana-msgqueue/internal/destination"
	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/queue"
	"github.com/welldanyogia/webrana-msgqueue/internal/storage"
	"github.com/welldanyogia/webrana-msgqueue/internal/validator"
)

// MessageHandler handles queued message HTTP requests
type MessageHandler struct {
	queue      *queue.Queue
	deliveries cache.DeliveryLog
}

// NewMessageHandler creates a new MessageHandler. deliveries may be nil.
func NewMessageHandler(q *queue.Queue, deliveries cache.DeliveryLog) *MessageHandler {
	return &MessageHandler{
		queue:      q,
		deliveries: deliveries,
	}
}

// DestinationRequest is one destination of a create request
type DestinationRequest struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// AttachmentRequest stages a file readable by the server
type AttachmentRequest struct {
	Path     string `json:"path"`
	Filename string `json:"filename,omitempty"`
	Type     string `json:"type,omitempty"`
}

// CreateMessageRequest represents the request body for queueing a message
type CreateMessageRequest struct {
	Type         string               `json:"type"`
	Destinations []DestinationRequest `json:"destinations"`
	Subject      string               `json:"subject,omitempty"`
	Body         string               `json:"body,omitempty"`
	Attachments  []AttachmentRequest  `json:"attachments,omitempty"`
}

// MessageResponse is a queued message plus the destinations refused on create
type MessageResponse struct {
	Message  models.Message      `json:"message"`
	Rejected models.Destinations `json:"rejected,omitempty"`
}

// DeliveredResponse is returned for a message that left the queue after delivery
type DeliveredResponse struct {
	ID        uint            `json:"id"`
	Delivered bool            `json:"delivered"`
	Delivery  *cache.Delivery `json:"delivery"`
}

// SendResponse reports a single delivery attempt
type SendResponse struct {
	ID        uint                `json:"id"`
	Sent      int                 `json:"sent"`
	Delivered bool                `json:"delivered"`
	Attempts  int                 `json:"attempts"`
	LastError string              `json:"last_error,omitempty"`
	Failed    models.Destinations `json:"failed_destinations,omitempty"`
}

// Create handles POST /api/messages
func (h *MessageHandler) Create(c echo.Context) error {
	var req CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	channelType, err := models.ParseChannelType(req.Type)
	if err != nil {
		return response.Error(c, err)
	}

	entries := make([]destination.Entry, 0, len(req.Destinations))
	for _, d := range req.Destinations {
		entries = append(entries, destination.Named(d.Address, d.Name))
	}

	msg, err := h.queue.NewMessage(channelType, entries, req.Subject, req.Body)
	if err != nil {
		return response.Error(c, err)
	}

	// Only files below the configured source directory may be attached
	sourceRoot := h.queue.Config().AttachmentSourceDirectory
	for _, a := range req.Attachments {
		source, err := storage.ResolveSource(sourceRoot, a.Path)
		if err != nil {
			return response.Error(c, err)
		}
		filename := a.Filename
		if filename == "" {
			filename = filepath.Base(a.Path)
		}
		if err := msg.StageAttachment(source, filename, a.Type); err != nil {
			return response.Error(c, err)
		}
	}

	if !msg.IsValid() {
		return response.BadRequestWithData(c, "no valid destination", apperrors.CodeInvalidMessage, msg.Rejected())
	}

	if err := msg.Save(c.Request().Context(), false); err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, MessageResponse{
		Message:  msg.Record(),
		Rejected: msg.Rejected(),
	})
}

// Get handles GET /api/messages/:id
func (h *MessageHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	ctx := c.Request().Context()
	msg, err := h.queue.Get(ctx, id)
	if err == nil {
		return response.Success(c, msg.Record())
	}
	if !apperrors.IsNotFound(err) {
		return response.InternalError(c, "failed to get message")
	}

	if h.deliveries != nil {
		delivery, derr := h.deliveries.Delivered(ctx, id)
		if derr == nil {
			return response.Success(c, DeliveredResponse{ID: id, Delivered: true, Delivery: delivery})
		}
		if !errors.Is(derr, apperrors.ErrNotFound) {
			return response.InternalError(c, "failed to read delivery log")
		}
	}

	return response.NotFound(c, "message not found")
}

// List handles GET /api/messages
func (h *MessageHandler) List(c echo.Context) error {
	limit := 0
	offset := 0

	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil {
			offset = parsed
		}
	}
	limit, offset = validator.ValidatePagination(limit, offset)

	messages, total, err := h.queue.List(c.Request().Context(), limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list messages")
	}

	records := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		records = append(records, m.Record())
	}

	return response.Paginated(c, records, total, limit, offset)
}

// Delete handles DELETE /api/messages/:id
func (h *MessageHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	deleted, err := h.queue.Delete(c.Request().Context(), id)
	if err != nil {
		return response.InternalError(c, "failed to delete message")
	}
	if !deleted {
		return response.NotFound(c, "message not found")
	}

	return response.NoContent(c)
}

// Send handles POST /api/messages/:id/send. It makes one delivery attempt
// regardless of the attempt count.
func (h *MessageHandler) Send(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	ctx := c.Request().Context()
	msg, err := h.queue.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to get message")
	}

	sent, err := msg.Send(ctx)
	if err != nil {
		if apperrors.IsHandlerError(err) {
			return response.Error(c, err)
		}
		return response.InternalError(c, "failed to send message")
	}

	return response.Success(c, SendResponse{
		ID:        id,
		Sent:      sent,
		Delivered: msg.Deleted(),
		Attempts:  msg.Attempts(),
		LastError: msg.LastError(),
		Failed:    msg.FailedDestinations(),
	})
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
