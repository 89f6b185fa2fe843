package handler

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

// SMS gateway methods
const (
	SMSMethodHTTP = "http"
	SMSMethodSMSD = "smsd"
)

var tagRegex = regexp.MustCompile(`<[^>]*>`)

// StripTags removes HTML tags from body
func StripTags(body string) string {
	return tagRegex.ReplaceAllString(body, "")
}

// smsPayload is the JSON document posted to the HTTP gateway
type smsPayload struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Checksum  string `json:"checksum"`
}

// SMSHandler hands text messages to an HTTP gateway or to an smsd spool directory
type SMSHandler struct {
	Base

	cfg    config.SMSConfig
	client *http.Client
}

// NewSMSHandler validates cfg and creates the handler; client may be nil
func NewSMSHandler(cfg config.SMSConfig, client *http.Client) (*SMSHandler, error) {
	if cfg.Method == "" {
		cfg.Method = SMSMethodHTTP
	}

	switch cfg.Method {
	case SMSMethodHTTP:
		if cfg.URL == "" {
			return nil, errors.New(`sms gateway "url" is not configured`)
		}
	case SMSMethodSMSD:
		if cfg.QueueDir == "" {
			return nil, errors.New(`smsd "queue" directory is not configured`)
		}
		info, err := os.Stat(cfg.QueueDir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("smsd queue directory %s does not exist", cfg.QueueDir)
		}
	default:
		return nil, fmt.Errorf("unknown sms method %q", cfg.Method)
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &SMSHandler{cfg: cfg, client: client}, nil
}

// Send delivers the tag-stripped body to every destination
func (h *SMSHandler) Send(ctx context.Context, destinations models.Destinations, body, _ string, _ models.Attachments) (int, error) {
	h.Reset()

	text := strings.TrimSpace(StripTags(body))
	if text == "" {
		return 0, nil
	}

	sent := 0
	for _, d := range destinations {
		var err error
		switch h.cfg.Method {
		case SMSMethodSMSD:
			err = h.spool(d.Address, text)
		default:
			err = h.post(ctx, d.Address, text)
		}

		if err != nil {
			h.Fail(d.Address, d.Name, err.Error())
			continue
		}
		sent++
	}
	return sent, nil
}

func checksum(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}

func (h *SMSHandler) post(ctx context.Context, recipient, text string) error {
	payload, err := json.Marshal(smsPayload{
		Recipient: recipient,
		Message:   text,
		Checksum:  checksum(recipient, text),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d for %s", resp.StatusCode, recipient)
	}
	return nil
}

func (h *SMSHandler) spool(recipient, text string) error {
	content := "To: " + recipient + "\r\n\r\n" + text
	path := filepath.Join(h.cfg.QueueDir, checksum(recipient, content))

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write smsd file: %w", err)
	}
	return nil
}
