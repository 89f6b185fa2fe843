// Package destination turns raw producer input into the canonical destination
// set of a channel type. Rejections are returned as data, never as errors.
package destination

import (
	"fmt"
	"strings"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/validator"
)

// Entry is one raw destination: a bare value or a value with a display name
type Entry struct {
	Value string `json:"address"`
	Name  string `json:"name,omitempty"`
}

// Values builds entries without display names
func Values(values ...string) []Entry {
	entries := make([]Entry, len(values))
	for i, v := range values {
		entries[i] = Entry{Value: v}
	}
	return entries
}

// Named builds a single entry with a display name
func Named(value, name string) Entry {
	return Entry{Value: value, Name: name}
}

// Result holds the outcome of normalizing a batch of entries
type Result struct {
	Accepted models.Destinations
	Rejected models.Destinations
}

// MergeInto unions the accepted entries into accepted and appends the rejected ones to rejected.
// Previously accepted entries are never removed.
func (r Result) MergeInto(accepted, rejected *models.Destinations) {
	for _, d := range r.Accepted {
		accepted.Add(d.Address, d.Name)
	}
	for _, d := range r.Rejected {
		rejected.Append(d.Address, d.Name)
	}
}

// Normalize validates entries against the grammar of channelType
func Normalize(channelType models.ChannelType, entries []Entry) (Result, error) {
	switch channelType {
	case models.ChannelEmail:
		return normalizeEmail(entries), nil
	case models.ChannelSMS:
		return normalizeSMS(entries), nil
	case models.ChannelFile:
		return normalizeFile(entries), nil
	case models.ChannelSocket:
		return normalizeSocket(entries), nil
	default:
		return Result{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedType, channelType)
	}
}

func normalizeEmail(entries []Entry) Result {
	var r Result
	for _, e := range entries {
		addr := strings.TrimSpace(e.Value)
		name := strings.TrimSpace(e.Name)
		if validator.ValidateEmail(addr) != nil {
			r.Rejected.Append(e.Value, name)
			continue
		}
		r.Accepted.Add(addr, name)
	}
	return r
}

// SMS entries are trimmed and deduplicated before the format check.
func normalizeSMS(entries []Entry) Result {
	var r Result
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		raw := strings.TrimSpace(e.Value)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true

		phone := validator.NormalizePhone(raw)
		if validator.ValidatePhone(phone) != nil {
			r.Rejected.Append(raw, "")
			continue
		}
		r.Accepted.Add(phone, "")
	}
	return r
}

func normalizeFile(entries []Entry) Result {
	var r Result
	for _, e := range entries {
		path := strings.TrimSpace(e.Value)
		if validator.ValidatePath(path) != nil {
			r.Rejected.Append(e.Value, "")
			continue
		}
		r.Accepted.Add(path, "")
	}
	return r
}

func normalizeSocket(entries []Entry) Result {
	var r Result
	for _, e := range entries {
		ep, err := validator.ParseEndpoint(e.Value)
		if err != nil {
			r.Rejected.Append(e.Value, "")
			continue
		}
		r.Accepted.Add(ep.String(), "")
	}
	return r
}
