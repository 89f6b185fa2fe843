package handler

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

// Factory constructs and initializes a handler
type Factory func() (Handler, error)

type entry struct {
	handler Handler
	err     error
}

// Registry maps channel types to lazily constructed handler instances.
// Each factory runs at most once; its handler or its error is kept for the
// lifetime of the registry.
type Registry struct {
	mu        sync.Mutex
	factories map[models.ChannelType]Factory
	built     map[models.ChannelType]entry
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factories: make(map[models.ChannelType]Factory),
		built:     make(map[models.ChannelType]entry),
		logger:    logger,
	}
}

// Register sets the factory for channelType, dropping any instance built before
func (r *Registry) Register(channelType models.ChannelType, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[channelType] = factory
	delete(r.built, channelType)
}

// Registered reports whether a factory exists for channelType
func (r *Registry) Registered(channelType models.ChannelType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.factories[channelType]
	return ok
}

// Resolve returns the handler for channelType, constructing it on first use
func (r *Registry) Resolve(channelType models.ChannelType) (Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.built[channelType]; ok {
		return e.handler, e.err
	}

	factory, ok := r.factories[channelType]
	if !ok {
		return nil, apperrors.NewHandlerNotFoundError(string(channelType))
	}

	h, err := factory()
	if err != nil {
		err = apperrors.NewHandlerMisconfiguredError(string(channelType), err)
		r.logger.Error("handler initialization failed", "type", channelType, "error", err)
		h = nil
	} else {
		r.logger.Debug("handler initialized", "type", channelType)
	}

	r.built[channelType] = entry{handler: h, err: err}
	return h, err
}

// Close releases every constructed handler holding a transport
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for t, e := range r.built {
		if c, ok := e.handler.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		delete(r.built, t)
	}
	return errors.Join(errs...)
}
