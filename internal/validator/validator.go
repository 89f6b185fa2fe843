// Package validator provides the destination grammars of every channel type
// and the sanitizers used by the attachment stager and the producer API.
package validator

import (
	"errors"
	"net"
	"net/mail"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validation errors
var (
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidDomain   = errors.New("invalid domain format")
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidPath     = errors.New("invalid file path")
	ErrInvalidEndpoint = errors.New("invalid socket endpoint")
	ErrInputTooLong    = errors.New("input exceeds maximum length")
	ErrEmptyInput      = errors.New("input cannot be empty")
)

// Regex patterns for validation
var (
	// Domain regex: allows lowercase alphanumeric, hyphens, and dots
	// Must start and end with alphanumeric, labels max 63 chars
	domainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

	phoneRegex      = regexp.MustCompile(`^[0-9+-]+$`)
	phoneStripRegex = regexp.MustCompile(`[^0-9+-]`)
)

// ValidateEmail validates a bare email address according to RFC 5322.
// Display-name forms such as "Alice <a@b.com>" are rejected.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)

	if email == "" {
		return ErrEmptyInput
	}

	// RFC 5321 specifies max email length of 254 characters
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	if err := ValidateDomain(email[at+1:]); err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// ValidateDomain validates domain name format against DNS standards.
// Returns nil if valid, or an appropriate error.
func ValidateDomain(domain string) error {
	domain = strings.TrimSpace(strings.ToLower(domain))

	if domain == "" {
		return ErrEmptyInput
	}

	// RFC 1035 specifies max domain length of 253 characters
	if len(domain) > 253 {
		return ErrInputTooLong
	}

	if !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}

	return nil
}

// NormalizePhone strips every character other than digits, '+' and '-'.
// Dashes are grouping separators and are dropped from the canonical form.
func NormalizePhone(raw string) string {
	phone := phoneStripRegex.ReplaceAllString(strings.TrimSpace(raw), "")
	return strings.ReplaceAll(phone, "-", "")
}

// ValidatePhone checks an already normalized phone number
func ValidatePhone(phone string) error {
	if phone == "" {
		return ErrEmptyInput
	}
	if !phoneRegex.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// ValidatePath accepts any string containing a path separator.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyInput
	}
	if !strings.ContainsRune(path, filepath.Separator) && !strings.ContainsRune(path, '/') {
		return ErrInvalidPath
	}
	return nil
}

// Endpoint is a parsed socket destination
type Endpoint struct {
	Host string
	Port int
}

// String returns host, or host:port when a port is set
func (e Endpoint) String() string {
	if e.Port > 0 {
		return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	}
	return e.Host
}

// ParseEndpoint parses "host" or "host:port" where host must be an IP literal.
// A port that is not a positive integer is dropped.
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, ErrEmptyInput
	}

	host, portStr := raw, ""
	if h, p, err := net.SplitHostPort(raw); err == nil {
		host, portStr = h, p
	}

	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil {
		return Endpoint{}, ErrInvalidEndpoint
	}

	ep := Endpoint{Host: ip.String()}
	if port, err := strconv.Atoi(portStr); err == nil && port > 0 && port <= 65535 {
		ep.Port = port
	}
	return ep, nil
}

// Pagination constants
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ValidatePagination validates and sanitizes pagination parameters.
// Returns sanitized limit and offset values.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// SanitizeFilename removes path separators and control characters from an attachment name.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")

	filename = stripControl(filename)
	filename = strings.TrimSpace(filename)

	// Limit length to 255 characters (common filesystem limit)
	if utf8.RuneCountInString(filename) > 255 {
		runes := []rune(filename)
		filename = string(runes[:255])
	}

	if filename == "" {
		return "unnamed"
	}

	return filename
}

// SanitizeString removes control characters, trims whitespace and enforces maxLength when positive.
func SanitizeString(input string, maxLength int) string {
	input = strings.TrimSpace(stripControl(input))

	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}

	return input
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
