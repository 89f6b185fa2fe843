package handler

import (
	"context"
	"fmt"
	"os"

	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

// FileHandler writes the body to every destination path
type FileHandler struct {
	Base

	cfg config.FileConfig
}

// NewFileHandler creates the handler
func NewFileHandler(cfg config.FileConfig) (*FileHandler, error) {
	return &FileHandler{cfg: cfg}, nil
}

// Send writes body to each path, truncating unless the handler appends
func (h *FileHandler) Send(_ context.Context, destinations models.Destinations, body, _ string, _ models.Attachments) (int, error) {
	h.Reset()

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if h.cfg.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	sent := 0
	for _, d := range destinations {
		if err := writeFile(d.Address, flags, body); err != nil {
			h.Fail(d.Address, "", err.Error())
			continue
		}
		sent++
	}
	return sent, nil
}

func writeFile(path string, flags int, body string) error {
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
