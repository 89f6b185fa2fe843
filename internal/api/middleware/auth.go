package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/logger"
)

// HeaderAPIKey carries the producer API key
const HeaderAPIKey = "X-API-Key"

// APIKeyAuth rejects requests that do not present apiKey, either in the
// X-API-Key header or as a bearer token. An empty apiKey disables the check.
func APIKeyAuth(apiKey string, security *logger.SecurityLogger) echo.MiddlewareFunc {
	if apiKey == "" && security != nil {
		security.GetLogger().Warn("API_KEY not set - producer API is unsecured")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}

			token := presentedKey(c.Request())
			if token == "" {
				return unauthorized(c, security, "missing api key")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				return unauthorized(c, security, "invalid api key")
			}

			return next(c)
		}
	}
}

func presentedKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); key != "" {
		return key
	}
	auth := r.Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func unauthorized(c echo.Context, security *logger.SecurityLogger, reason string) error {
	if security != nil {
		security.AuthFailure(c.RealIP(), c.Path(), reason)
	}
	return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
		"error": reason,
		"code":  apperrors.CodeUnauthorized,
	})
}
