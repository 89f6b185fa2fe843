package repository

import (
	"errors"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
)

// Common repository errors
var (
	ErrNotFound     = apperrors.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)
