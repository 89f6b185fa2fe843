package handler

import (
	"log/slog"

	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

// NewDefaultRegistry registers the built-in handler for every enabled channel.
// Handlers are constructed on first Resolve, so a broken section only affects its own type.
func NewDefaultRegistry(cfg config.HandlersConfig, channels []models.ChannelType, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	for _, ch := range channels {
		switch ch {
		case models.ChannelEmail:
			r.Register(ch, func() (Handler, error) {
				return NewEmailHandler(cfg.Email, r.logger.With("handler", "email"))
			})
		case models.ChannelSMS:
			r.Register(ch, func() (Handler, error) {
				return NewSMSHandler(cfg.SMS, nil)
			})
		case models.ChannelSocket:
			r.Register(ch, func() (Handler, error) {
				return NewSocketHandler(cfg.Socket)
			})
		case models.ChannelFile:
			r.Register(ch, func() (Handler, error) {
				return NewFileHandler(cfg.File)
			})
		}
	}

	return r
}
