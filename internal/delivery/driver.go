// Package delivery runs one pass over the queue: it selects the eligible
// messages and sends them one after another.
package delivery

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/queue"
	"github.com/welldanyogia/webrana-msgqueue/internal/repository"
)

// DefaultMaxAttempts applies when neither the options nor the config set a ceiling
const DefaultMaxAttempts = 5

// Options select the messages of a pass
type Options struct {
	// ID targets one message and bypasses the eligibility gate
	ID uint
	// AddedAfter restricts the pass to messages created at or after this epoch
	AddedAfter int64
	// Force bypasses the eligibility gate
	Force bool
	// MaxAttempts overrides the configured attempt ceiling when > 0
	MaxAttempts int
}

// Outcome is the result of one message of a pass
type Outcome struct {
	ID        uint
	Type      models.ChannelType
	Sent      int
	Delivered bool
	// Skipped is set when the message vanished or its handler was already known to be broken
	Skipped   bool
	Attempts  int
	LastError string
	Failed    models.Destinations
	Err       error
}

// Report summarizes a pass
type Report struct {
	Considered int
	Outcomes   []Outcome
}

// Delivered counts the messages delivered to every destination
func (r *Report) Delivered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Delivered {
			n++
		}
	}
	return n
}

// Driver sends queued messages
type Driver struct {
	queue  *queue.Queue
	logger *slog.Logger
}

// NewDriver creates a Driver over q
func NewDriver(q *queue.Queue, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{queue: q, logger: logger}
}

// MaxAttempts resolves the attempt ceiling of opts
func (d *Driver) MaxAttempts(opts Options) int {
	if opts.MaxAttempts > 0 {
		return opts.MaxAttempts
	}
	if cfg := d.queue.Config(); cfg != nil && cfg.MaxAttempts > 0 {
		return cfg.MaxAttempts
	}
	return DefaultMaxAttempts
}

// Filter builds the selection of opts
func (d *Driver) Filter(opts Options) repository.Filter {
	filter := repository.Filter{ID: opts.ID, AddedAfter: opts.AddedAfter}
	if opts.ID == 0 && !opts.Force {
		filter.Eligibility = &repository.Eligibility{
			MaxAttempts: d.MaxAttempts(opts),
			Now:         d.queue.Now().Unix(),
		}
	}
	return filter
}

// Deliver runs one pass. A failing message never stops the pass; a handler
// that cannot be resolved stops every later message of its type. The
// returned error is set only when the selection itself fails or ctx ends.
func (d *Driver) Deliver(ctx context.Context, opts Options) (*Report, error) {
	ids, err := d.queue.SelectIDs(ctx, d.Filter(opts))
	if err != nil {
		return nil, err
	}

	report := &Report{Considered: len(ids)}
	d.logger.Info("delivery pass started", "messages", len(ids), "force", opts.Force, "id", opts.ID)

	broken := make(map[models.ChannelType]error)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		msg, err := d.queue.Get(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrMessageNotFound) {
				d.logger.Debug("message vanished before delivery", "message_id", id)
				continue
			}
			report.Outcomes = append(report.Outcomes, Outcome{ID: id, Err: err})
			continue
		}

		if cause, ok := broken[msg.Type()]; ok {
			report.Outcomes = append(report.Outcomes, Outcome{
				ID:        id,
				Type:      msg.Type(),
				Skipped:   true,
				Attempts:  msg.Attempts(),
				LastError: msg.LastError(),
				Err:       cause,
			})
			continue
		}

		report.Outcomes = append(report.Outcomes, d.send(ctx, msg, broken))
	}

	d.logger.Info("delivery pass finished",
		"considered", report.Considered,
		"delivered", report.Delivered(),
	)
	return report, nil
}

func (d *Driver) send(ctx context.Context, msg *queue.Message, broken map[models.ChannelType]error) Outcome {
	sent, err := msg.Send(ctx)

	outcome := Outcome{
		ID:        msg.ID(),
		Type:      msg.Type(),
		Sent:      sent,
		Delivered: msg.Deleted(),
		Attempts:  msg.Attempts(),
		LastError: msg.LastError(),
		Failed:    msg.FailedDestinations(),
		Err:       err,
	}

	if err != nil {
		if apperrors.IsHandlerError(err) {
			broken[msg.Type()] = err
			d.logger.Error("handler unavailable, skipping remaining messages of this type",
				"type", msg.Type(), "error", err)
		} else {
			d.logger.Error("message delivery failed", "message_id", msg.ID(), "error", err)
		}
	}
	return outcome
}
