package handler

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"

	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/validator"
)

// DefaultSMTPPort is used when no port is configured
const DefaultSMTPPort = 25

// NoSubject is written when a message has no subject
const NoSubject = "(no subject)"

// rcptError marks a recipient refused by the server
type rcptError struct {
	err error
}

func (e *rcptError) Error() string { return e.err.Error() }
func (e *rcptError) Unwrap() error { return e.err }

// EmailHandler delivers messages over SMTP, one envelope per recipient.
// The connection is kept open between calls and re-established when it dies.
type EmailHandler struct {
	Base

	cfg       config.EmailConfig
	tlsConfig *tls.Config
	client    *smtp.Client
	logger    *slog.Logger
}

// NewEmailHandler validates cfg and creates the handler. No connection is made yet.
func NewEmailHandler(cfg config.EmailConfig, logger *slog.Logger) (*EmailHandler, error) {
	if cfg.Host == "" {
		return nil, errors.New(`unknown "host" configuration`)
	}
	if cfg.From == "" {
		return nil, errors.New(`a "from" address must be specified`)
	}
	if validator.ValidateEmail(cfg.From) != nil {
		return nil, fmt.Errorf("%q is not a valid from address", cfg.From)
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultSMTPPort
	}
	switch cfg.Encryption {
	case "", "none", "ssl", "tls":
	default:
		return nil, fmt.Errorf("unknown encryption %q", cfg.Encryption)
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &EmailHandler{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host},
		logger:    logger,
	}
	h.Antiflood(cfg.Antiflood.Threshold, cfg.Antiflood.Sleep())
	return h, nil
}

// Send delivers body to every valid address in destinations
func (h *EmailHandler) Send(ctx context.Context, destinations models.Destinations, body, subject string, attachments models.Attachments) (int, error) {
	h.Reset()

	var recipients models.Destinations
	for _, d := range destinations {
		if validator.ValidateEmail(d.Address) != nil {
			h.Fail(d.Address, d.Name, fmt.Sprintf(`"%s" is not a valid email address.`, d.Address))
			continue
		}
		recipients.Add(d.Address, d.Name)
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	parts, err := loadAttachments(attachments)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		raw, err := h.compose(r, body, subject, parts)
		if err != nil {
			return sent, fmt.Errorf("failed to build message: %w", err)
		}

		client, err := h.connect()
		if err != nil {
			return sent, err
		}

		if err := h.deliver(client, r.Address, raw); err != nil {
			var refused *rcptError
			if errors.As(err, &refused) {
				h.Fail(r.Address, r.Name, "")
				h.logger.Warn("recipient refused", "recipient", r.Address, "error", err)
				_ = client.Reset()
				continue
			}
			h.disconnect()
			return sent, err
		}

		sent++
		if h.Sent(ctx) {
			h.disconnect()
		}
	}

	return sent, nil
}

// Close ends the SMTP session
func (h *EmailHandler) Close() error {
	if h.client == nil {
		return nil
	}
	err := h.client.Quit()
	if err != nil {
		_ = h.client.Close()
	}
	h.client = nil
	return err
}

func (h *EmailHandler) connect() (*smtp.Client, error) {
	if h.client != nil {
		if err := h.client.Noop(); err == nil {
			return h.client, nil
		}
		h.disconnect()
	}

	addr := net.JoinHostPort(h.cfg.Host, strconv.Itoa(h.cfg.Port))

	var (
		client *smtp.Client
		err    error
	)
	switch h.cfg.Encryption {
	case "ssl":
		client, err = smtp.DialTLS(addr, h.tlsConfig)
	case "tls":
		client, err = smtp.DialStartTLS(addr, h.tlsConfig)
	default:
		client, err = smtp.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if h.cfg.Username != "" {
		auth := sasl.NewPlainClient("", h.cfg.Username, h.cfg.Password)
		if err := client.Auth(auth); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp authentication failed: %w", err)
		}
	}

	h.client = client
	return client, nil
}

func (h *EmailHandler) disconnect() {
	if h.client != nil {
		_ = h.client.Close()
		h.client = nil
	}
}

func (h *EmailHandler) deliver(client *smtp.Client, to string, raw []byte) error {
	if err := client.Mail(h.cfg.From, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to, nil); err != nil {
		var smtpErr *smtp.SMTPError
		if errors.As(err, &smtpErr) {
			return &rcptError{err: err}
		}
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message not accepted: %w", err)
	}
	return nil
}

type attachmentPart struct {
	content  []byte
	mimeType string
	filename string
}

// loadAttachments reads the stored files; missing files are left out
func loadAttachments(attachments models.Attachments) ([]attachmentPart, error) {
	var parts []attachmentPart
	for _, a := range attachments {
		if a.Path == "" {
			continue
		}
		content, err := os.ReadFile(a.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read attachment %s: %w", a.Path, err)
		}
		parts = append(parts, attachmentPart{content: content, mimeType: a.Type, filename: a.Filename})
	}
	return parts, nil
}

func (h *EmailHandler) compose(to models.Destination, body, subject string, parts []attachmentPart) ([]byte, error) {
	if subject == "" {
		subject = NoSubject
	}

	builder := enmime.Builder().
		From(h.cfg.FromName, h.cfg.From).
		To(to.Name, to.Address).
		Subject(subject).
		HTML([]byte(body))

	for _, p := range parts {
		mimeType := p.mimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		builder = builder.AddAttachment(p.content, mimeType, p.filename)
	}

	root, err := builder.Build()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
