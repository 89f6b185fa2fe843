package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAppError_CreatesErrorWithCorrectFields(t *testing.T) {
	baseErr := errors.New("base error")
	appErr := NewAppError(baseErr, "custom message", CodeNotFound)

	assert.Equal(t, baseErr, appErr.Err)
	assert.Equal(t, "custom message", appErr.Message)
	assert.Equal(t, CodeNotFound, appErr.Code)
}

func TestAppError_Error_ReturnsBaseErrorWhenNoMessage(t *testing.T) {
	baseErr := errors.New("base error")
	appErr := NewAppError(baseErr, "", CodeNotFound)

	assert.Equal(t, "base error", appErr.Error())
	assert.Equal(t, baseErr, appErr.Unwrap())
}

func TestWrap_WrapsErrorWithContext(t *testing.T) {
	wrapped := Wrap(ErrSourceNotFound, "stage /tmp/a.txt")

	assert.Contains(t, wrapped.Error(), "stage /tmp/a.txt")
	assert.ErrorIs(t, wrapped, ErrSourceNotFound)
	assert.Nil(t, Wrap(nil, "context"))
}

func TestIsNotFound_ReturnsTrueForNotFoundErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"ErrNotFound", ErrNotFound, true},
		{"ErrMessageNotFound", ErrMessageNotFound, true},
		{"wrapped ErrNotFound", Wrap(ErrNotFound, "context"), true},
		{"other error", errors.New("other"), false},
		{"ErrUnsupportedType", ErrUnsupportedType, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestHandlerErrors(t *testing.T) {
	notFound := NewHandlerNotFoundError("fax")
	assert.ErrorIs(t, notFound, ErrHandlerNotFound)
	assert.Equal(t, "fax handler: handler not found", notFound.Error())
	assert.True(t, IsHandlerError(notFound))

	misconfigured := NewHandlerMisconfiguredError("email", errors.New(`unknown "host" configuration`))
	assert.ErrorIs(t, misconfigured, ErrHandlerMisconfigured)
	assert.Contains(t, misconfigured.Error(), `unknown "host" configuration`)
	assert.True(t, IsHandlerError(Wrap(misconfigured, "resolve")))

	got := GetHandlerError(Wrap(misconfigured, "resolve"))
	if assert.NotNil(t, got) {
		assert.Equal(t, "email", got.Type)
	}
	assert.Nil(t, GetHandlerError(errors.New("plain")))
	assert.False(t, IsHandlerError(ErrInvalidMessage))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotFound, CodeNotFound},
		{ErrMessageNotFound, CodeNotFound},
		{ErrInvalidInput, CodeInvalidInput},
		{ErrUnsupportedType, CodeUnsupportedType},
		{ErrInvalidMessage, CodeInvalidMessage},
		{Wrap(ErrSourceNotFound, "x"), CodeSourceNotFound},
		{NewHandlerNotFoundError("fax"), CodeHandlerNotFound},
		{NewHandlerMisconfiguredError("sms", errors.New("no url")), CodeHandlerMisconfigured},
		{ErrUnauthorized, CodeUnauthorized},
		{errors.New("boom"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCode(tt.err))
		})
	}
}
