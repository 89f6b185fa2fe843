package models

import (
	"fmt"
	"strings"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
)

// ChannelType identifies the delivery mechanism of a message
type ChannelType string

// Supported channel types
const (
	ChannelEmail  ChannelType = "email"
	ChannelSMS    ChannelType = "sms"
	ChannelFile   ChannelType = "file"
	ChannelSocket ChannelType = "socket"
)

// ChannelTypes lists every supported channel type in declaration order
var ChannelTypes = []ChannelType{ChannelEmail, ChannelSMS, ChannelFile, ChannelSocket}

// Valid reports whether t is one of the supported channel types
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelEmail, ChannelSMS, ChannelFile, ChannelSocket:
		return true
	}
	return false
}

// String returns the channel type name
func (t ChannelType) String() string {
	return string(t)
}

// ParseChannelType converts a raw name into a ChannelType
func ParseChannelType(raw string) (ChannelType, error) {
	t := ChannelType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedType, raw)
	}
	return t, nil
}
