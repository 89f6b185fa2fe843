// Package handler contains the channel specific delivery handlers and the
// registry that constructs them once per process.
package handler

import (
	"context"
	"time"

	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

// Handler delivers a message payload to the destinations of one channel type.
// Success, LastError and Failed describe the most recent Send call.
type Handler interface {
	Send(ctx context.Context, destinations models.Destinations, body, subject string, attachments models.Attachments) (int, error)
	Success() bool
	LastError() string
	Failed() models.Destinations
}

// Base implements the per-call bookkeeping shared by every handler
type Base struct {
	lastError string
	failed    models.Destinations

	floodThreshold int
	floodSleep     time.Duration
	floodCount     int

	// sleep is replaced in tests
	sleep func(ctx context.Context, d time.Duration)
}

// Reset clears the outcome of the previous call
func (b *Base) Reset() {
	b.lastError = ""
	b.failed = nil
}

// Fail records address as failed; a non-empty reason becomes the last error
func (b *Base) Fail(address, name, reason string) {
	b.failed.Add(address, name)
	if reason != "" {
		b.lastError = reason
	}
}

// SetError records reason as the last error
func (b *Base) SetError(reason string) {
	b.lastError = reason
}

// Success reports whether the last call recorded neither an error nor a failed destination
func (b *Base) Success() bool {
	return b.lastError == "" && len(b.failed) == 0
}

// LastError returns the last recorded error
func (b *Base) LastError() string {
	return b.lastError
}

// Failed returns the destinations that failed during the last call
func (b *Base) Failed() models.Destinations {
	return b.failed.Clone()
}

// Antiflood pauses the handler for sleep after every threshold sent messages.
// A threshold of zero disables it.
func (b *Base) Antiflood(threshold int, sleep time.Duration) {
	b.floodThreshold = threshold
	b.floodSleep = sleep
	b.floodCount = 0
}

// Sent counts one delivered message and reports whether the handler paused
func (b *Base) Sent(ctx context.Context) bool {
	if b.floodThreshold <= 0 {
		return false
	}

	b.floodCount++
	if b.floodCount < b.floodThreshold {
		return false
	}

	b.floodCount = 0
	sleep := b.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	sleep(ctx, b.floodSleep)
	return true
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
