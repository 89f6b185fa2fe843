package handler

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/validator"
)

// Socket frame delimiters
const (
	STX byte = 0x02
	ETX byte = 0x03
)

// DefaultSocketTimeout applies when no timeout is configured
const DefaultSocketTimeout = 5 * time.Second

// SocketHandler writes framed payloads to TCP endpoints, one connection per destination
type SocketHandler struct {
	Base

	cfg    config.SocketConfig
	dialer net.Dialer
}

// NewSocketHandler creates the handler
func NewSocketHandler(cfg config.SocketConfig) (*SocketHandler, error) {
	if cfg.AddressByte < 0 || cfg.AddressByte > 0xff {
		return nil, fmt.Errorf("address byte %d does not fit in one byte", cfg.AddressByte)
	}
	if cfg.DefaultPort < 0 || cfg.DefaultPort > 65535 {
		return nil, fmt.Errorf("invalid default port %d", cfg.DefaultPort)
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = DefaultSocketTimeout
	}

	return &SocketHandler{cfg: cfg, dialer: net.Dialer{Timeout: timeout}}, nil
}

// Frame wraps body as STX ADR body ETX
func Frame(address byte, body string) []byte {
	frame := make([]byte, 0, len(body)+3)
	frame = append(frame, STX, address)
	frame = append(frame, body...)
	return append(frame, ETX)
}

// Send writes body to every destination
func (h *SocketHandler) Send(ctx context.Context, destinations models.Destinations, body, _ string, _ models.Attachments) (int, error) {
	h.Reset()

	if body == "" {
		return 0, nil
	}

	frame := Frame(byte(h.cfg.AddressByte), body)
	sent := 0
	for _, d := range destinations {
		if err := h.write(ctx, d.Address, frame); err != nil {
			h.Fail(d.Address, "", err.Error())
			continue
		}
		sent++
	}
	return sent, nil
}

func (h *SocketHandler) write(ctx context.Context, destination string, frame []byte) error {
	ep, err := validator.ParseEndpoint(destination)
	if err != nil {
		return fmt.Errorf("%s: %w", destination, err)
	}
	if ep.Port == 0 {
		ep.Port = h.cfg.DefaultPort
	}
	if ep.Port == 0 {
		return fmt.Errorf("%s: no port configured", destination)
	}

	addr := net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
	conn, err := h.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(h.dialer.Timeout)); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to write to %s: %w", addr, err)
	}
	return nil
}
