package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/welldanyogia/webrana-msgqueue/internal/destination"
	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/handler"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/repository"
	"github.com/welldanyogia/webrana-msgqueue/internal/storage"
)

// NoRecipients is recorded when a message is sent without destinations
const NoRecipients = "No recipient addresses."

// Message is a queued message bound to its Queue
type Message struct {
	q        *Queue
	row      models.Message
	rejected models.Destinations
	staged   storage.StageList
	deleted  bool
}

// ID returns the row id, zero until the message is first saved
func (m *Message) ID() uint { return m.row.ID }

// Type returns the channel type
func (m *Message) Type() models.ChannelType { return m.row.Type }

// CreatedAt returns the insert time in epoch seconds, zero until saved
func (m *Message) CreatedAt() int64 { return m.row.CreatedAt }

// Destinations returns a copy of the accepted destinations
func (m *Message) Destinations() models.Destinations { return m.row.Destinations.Clone() }

// Rejected returns the destinations refused by the normalizer since the message was built
func (m *Message) Rejected() models.Destinations { return m.rejected.Clone() }

// Subject returns the subject, empty when absent
func (m *Message) Subject() string { return deref(m.row.Subject) }

// Body returns the body, empty when absent
func (m *Message) Body() string { return deref(m.row.Body) }

// Attachments returns the stored attachments
func (m *Message) Attachments() models.Attachments {
	return append(models.Attachments(nil), m.row.Attachments...)
}

// Staged returns the attachments waiting for the first save
func (m *Message) Staged() []storage.Staged { return m.staged.Entries() }

// Processing reports whether a delivery attempt is in flight
func (m *Message) Processing() bool { return m.row.Processing }

// Attempts returns the number of delivery attempts
func (m *Message) Attempts() int { return m.row.Attempts }

// LastAttemptAt returns the time of the last attempt in epoch seconds
func (m *Message) LastAttemptAt() (int64, bool) {
	if m.row.LastAttemptAt == nil {
		return 0, false
	}
	return *m.row.LastAttemptAt, true
}

// LastError returns the last recorded failure, empty when none
func (m *Message) LastError() string { return deref(m.row.LastError) }

// FailedDestinations returns the destinations that failed on the last attempt
func (m *Message) FailedDestinations() models.Destinations {
	return models.Destinations(m.row.FailedDestinations).Clone()
}

// Deleted reports whether the row was removed through this message
func (m *Message) Deleted() bool { return m.deleted }

// Record returns a copy of the underlying row
func (m *Message) Record() models.Message {
	row := m.row
	row.Destinations = m.row.Destinations.Clone()
	row.FailedDestinations = models.FailedDestinations(models.Destinations(m.row.FailedDestinations).Clone())
	row.Attachments = m.Attachments()
	return row
}

// SetSubject sets the trimmed subject; blank clears it
func (m *Message) SetSubject(subject string) { m.row.Subject = optional(subject) }

// SetBody sets the trimmed body; blank clears it
func (m *Message) SetBody(body string) { m.row.Body = optional(body) }

// AddDestination normalizes entries and merges them into the accepted and
// rejected sets. Accepted destinations are never removed by this call.
func (m *Message) AddDestination(entries ...destination.Entry) error {
	result, err := destination.Normalize(m.row.Type, entries)
	if err != nil {
		return err
	}
	result.MergeInto(&m.row.Destinations, &m.rejected)
	return nil
}

// SetDestination replaces the accepted destinations with entries
func (m *Message) SetDestination(entries ...destination.Entry) error {
	if _, err := destination.Normalize(m.row.Type, nil); err != nil {
		return err
	}
	m.ClearDestination()
	return m.AddDestination(entries...)
}

// ClearDestination empties the accepted destinations; rejected ones are kept
func (m *Message) ClearDestination() {
	m.row.Destinations = nil
}

// StageAttachment records a file to copy into the message directory on the
// first save. Empty filename and mimeType fall back to the source basename and
// to content sniffing.
func (m *Message) StageAttachment(path, filename, mimeType string) error {
	return m.staged.Stage(path, filename, mimeType)
}

// IsValid reports whether the message has a channel type and at least one accepted destination
func (m *Message) IsValid() bool {
	return m.row.Type.Valid() && len(m.row.Destinations) > 0
}

// Clone returns an unsaved-looking copy sharing nothing with m
func (m *Message) Clone() *Message {
	return &Message{
		q:        m.q,
		row:      m.Record(),
		rejected: m.rejected.Clone(),
		staged:   m.staged.Clone(),
	}
}

// Save persists the message. The first save, or any save with forceInsert,
// materializes the staged attachments and inserts a new row; later saves
// only write the attempt state.
func (m *Message) Save(ctx context.Context, forceInsert bool) error {
	if !m.IsValid() {
		return apperrors.ErrInvalidMessage
	}

	if m.row.ID != 0 && !forceInsert {
		return m.q.repo.UpdateAttemptState(ctx, &m.row)
	}

	return m.insert(ctx)
}

func (m *Message) insert(ctx context.Context) error {
	row := m.Record()
	row.ID = 0
	row.CreatedAt = m.q.now().Unix()
	row.Attachments = nil
	if len(m.rejected) > 0 && len(row.FailedDestinations) == 0 {
		row.FailedDestinations = models.FailedDestinations(m.rejected.Clone())
	}

	if m.staged.Len() > 0 {
		attachments, err := m.q.store.Materialize(m.staged.Entries())
		if errors.Is(err, apperrors.ErrTempDirNotWritable) {
			return err
		}
		if err != nil {
			m.q.logger.Warn("some attachments were skipped", "error", err)
		}
		row.Attachments = attachments
	}

	if err := m.q.repo.Create(ctx, &row); err != nil {
		if len(row.Attachments) > 0 {
			_ = m.q.store.Purge(row.Attachments)
		}
		return err
	}

	m.row = row
	return nil
}

// Send runs one delivery attempt. Transport failures are recorded on the
// message and never returned; the returned error is reserved for a handler
// that cannot be resolved and for persistence failures.
func (m *Message) Send(ctx context.Context) (int, error) {
	logger := m.q.logger.With("message_id", m.row.ID, "type", m.row.Type)

	if len(m.row.Destinations) == 0 {
		m.row.LastError = optional(NoRecipients)
		if m.row.ID != 0 {
			if err := m.q.repo.UpdateAttemptState(ctx, &m.row); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	now := m.q.now().Unix()
	m.row.LastError = nil
	m.row.FailedDestinations = nil
	m.row.Processing = true
	m.row.Attempts++
	m.row.LastAttemptAt = &now
	if err := m.Save(ctx, false); err != nil {
		return 0, fmt.Errorf("failed to record attempt: %w", err)
	}

	h, err := m.q.registry.Resolve(m.row.Type)
	if err != nil {
		m.row.Processing = false
		m.row.LastError = optional(err.Error())
		if saveErr := m.q.repo.UpdateAttemptState(ctx, &m.row); saveErr != nil {
			logger.Error("failed to record handler error", "error", saveErr)
		}
		return 0, err
	}

	sent, sendErr := m.invoke(ctx, h)
	if sendErr == nil && h.Success() {
		if _, err := m.Delete(ctx); err != nil {
			return sent, fmt.Errorf("failed to remove delivered message: %w", err)
		}
		m.logDelivery(ctx, sent)
		logger.Info("message delivered", "sent", sent)
		return sent, nil
	}

	failed := h.Failed()
	for _, d := range failed {
		m.row.Destinations.Remove(d.Address)
	}
	m.row.FailedDestinations = models.FailedDestinations(failed)

	lastError := h.LastError()
	if sendErr != nil {
		lastError = sendErr.Error()
	}
	m.row.LastError = optional(lastError)
	m.row.Processing = false

	logger.Warn("delivery attempt failed",
		"sent", sent,
		"failed", len(failed),
		"attempts", m.row.Attempts,
		"error", lastError,
	)

	if err := m.q.repo.UpdateAttemptState(ctx, &m.row); err != nil {
		return sent, fmt.Errorf("failed to record attempt outcome: %w", err)
	}
	return sent, nil
}

// invoke calls the handler; a panic is turned into the send error
func (m *Message) invoke(ctx context.Context, h handler.Handler) (sent int, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.q.logger.Error("handler panicked", "message_id", m.row.ID, "type", m.row.Type, "panic", r)
			err = fmt.Errorf("%s handler panicked: %v", m.row.Type, r)
		}
	}()
	return h.Send(ctx, m.row.Destinations.Clone(), m.Body(), m.Subject(), m.row.Attachments)
}

func (m *Message) logDelivery(ctx context.Context, sent int) {
	if m.q.deliveries == nil {
		return
	}
	if err := m.q.deliveries.StoreDelivered(ctx, m.row.ID, m.row.Type, sent, m.q.now()); err != nil {
		m.q.logger.Warn("failed to store delivery", "message_id", m.row.ID, "error", err)
	}
}

// Delete removes the row and purges the attachment directory.
// It reports whether the row existed.
func (m *Message) Delete(ctx context.Context) (bool, error) {
	if m.row.ID == 0 {
		return false, nil
	}

	if err := m.q.repo.Delete(ctx, m.row.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	m.deleted = true
	if err := m.q.store.Purge(m.row.Attachments); err != nil {
		m.q.logger.Warn("failed to purge attachments", "message_id", m.row.ID, "error", err)
	}
	return true, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
