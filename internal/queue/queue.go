// Package queue holds the message lifecycle: building, saving and sending
// queued messages and the queue-wide operations built on top of them.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/welldanyogia/webrana-msgqueue/internal/cache"
	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/destination"
	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/handler"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/repository"
	"github.com/welldanyogia/webrana-msgqueue/internal/storage"
)

// PurgeBatchSize is the number of messages loaded per purge round
const PurgeBatchSize = 100

// Options holds the collaborators of a Queue
type Options struct {
	Config     *config.Config
	Repo       repository.QueueRepository
	Registry   *handler.Registry
	Store      storage.AttachmentStore
	Deliveries cache.DeliveryLog
	Logger     *slog.Logger
	Now        func() time.Time
}

// Queue is the context shared by every message: configuration, store,
// handler registry and attachment storage.
type Queue struct {
	cfg        *config.Config
	repo       repository.QueueRepository
	registry   *handler.Registry
	store      storage.AttachmentStore
	deliveries cache.DeliveryLog
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Queue. Store defaults to a local store under the configured
// temp directory and Now defaults to time.Now.
func New(opts Options) (*Queue, error) {
	if opts.Repo == nil {
		return nil, errors.New("queue repository is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("handler registry is required")
	}

	q := &Queue{
		cfg:        opts.Config,
		repo:       opts.Repo,
		registry:   opts.Registry,
		store:      opts.Store,
		deliveries: opts.Deliveries,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if q.cfg == nil {
		q.cfg = config.Default()
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	if q.store == nil {
		q.store = storage.NewLocalStore(q.cfg.TempDirectory, q.logger)
	}
	if q.now == nil {
		q.now = time.Now
	}
	return q, nil
}

// Config returns the configuration the queue was built with
func (q *Queue) Config() *config.Config {
	return q.cfg
}

// Now returns the current time of the queue clock
func (q *Queue) Now() time.Time {
	return q.now()
}

// NewMessage builds an unsaved message. Rejected destinations are kept on the
// message and do not make the call fail.
func (q *Queue) NewMessage(channelType models.ChannelType, destinations []destination.Entry, subject, body string) (*Message, error) {
	if !channelType.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedType, channelType)
	}

	m := &Message{q: q, row: models.Message{Type: channelType}}
	m.SetSubject(subject)
	m.SetBody(body)
	if len(destinations) > 0 {
		if err := m.AddDestination(destinations...); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add inserts a copy of msg as a new row and returns the copy
func (q *Queue) Add(ctx context.Context, msg *Message) (*Message, error) {
	clone := msg.Clone()
	clone.q = q
	if err := clone.Save(ctx, true); err != nil {
		return nil, err
	}
	return clone, nil
}

// Get loads the message with id
func (q *Queue) Get(ctx context.Context, id uint) (*Message, error) {
	if id == 0 {
		return nil, apperrors.ErrMessageNotFound
	}

	row, err := q.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", apperrors.ErrMessageNotFound, id)
		}
		return nil, err
	}
	return q.fromRow(*row), nil
}

// GetMany loads the messages with the given ids; missing ids are left out
func (q *Queue) GetMany(ctx context.Context, ids []uint) ([]*Message, error) {
	rows, err := q.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	messages := make([]*Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, q.fromRow(row))
	}
	return messages, nil
}

// List returns a page of messages, newest first, and the total count
func (q *Queue) List(ctx context.Context, limit, offset int) ([]*Message, int64, error) {
	rows, total, err := q.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	messages := make([]*Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, q.fromRow(row))
	}
	return messages, total, nil
}

// Count returns the number of queued messages
func (q *Queue) Count(ctx context.Context) (int64, error) {
	return q.repo.Count(ctx, repository.Filter{})
}

// CountMatching returns the number of messages matching filter
func (q *Queue) CountMatching(ctx context.Context, filter repository.Filter) (int64, error) {
	return q.repo.Count(ctx, filter)
}

// SelectIDs returns the ids of the messages matching filter, oldest first
func (q *Queue) SelectIDs(ctx context.Context, filter repository.Filter) ([]uint, error) {
	return q.repo.SelectIDs(ctx, filter, 0)
}

// First returns the oldest queued message
func (q *Queue) First(ctx context.Context) (*Message, error) {
	return q.edge(q.repo.First(ctx))
}

// Last returns the newest queued message
func (q *Queue) Last(ctx context.Context) (*Message, error) {
	return q.edge(q.repo.Last(ctx))
}

func (q *Queue) edge(row *models.Message, err error) (*Message, error) {
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, err
	}
	return q.fromRow(*row), nil
}

// Delete removes the messages with the given ids and their attachments.
// It reports whether at least one message was removed.
func (q *Queue) Delete(ctx context.Context, ids ...uint) (bool, error) {
	messages, err := q.GetMany(ctx, ids)
	if err != nil {
		return false, err
	}

	deleted := false
	for _, m := range messages {
		ok, err := m.Delete(ctx)
		if err != nil {
			return deleted, err
		}
		deleted = deleted || ok
	}
	return deleted, nil
}

// Purge deletes the messages created more than days ago, or every message
// when days <= 0. Emptying the queue restarts id assignment.
func (q *Queue) Purge(ctx context.Context, days int) (int, error) {
	var before int64
	if days > 0 {
		before = q.now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
	}

	total := 0
	for {
		rows, err := q.repo.ListCreatedBefore(ctx, before, PurgeBatchSize)
		if err != nil {
			return total, err
		}
		if len(rows) == 0 {
			break
		}

		deleted := 0
		for _, row := range rows {
			ok, err := q.fromRow(row).Delete(ctx)
			if err != nil {
				return total, err
			}
			if ok {
				deleted++
			}
		}
		total += deleted

		if deleted == 0 {
			break
		}
	}

	if days <= 0 {
		if err := q.repo.ResetSequence(ctx); err != nil {
			return total, err
		}
	}

	q.logger.Info("queue purged", "deleted", total, "days", days)
	return total, nil
}

// ConfigGet reads a dotted configuration path
func (q *Queue) ConfigGet(path string) (interface{}, bool) {
	return q.cfg.Get(path)
}

// ConfigSet writes a dotted configuration path
func (q *Queue) ConfigSet(path string, value interface{}) error {
	return q.cfg.Set(path, value)
}

func (q *Queue) fromRow(row models.Message) *Message {
	return &Message{q: q, row: row}
}
