package auth

import (
	"net/http"
	"strings"

	"portal-service/internal/domain/user"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Middleware struct {
	jwtService *JWTService
}

func NewMiddleware(jwtService *JWTService) *Middleware {
	return &Middleware{jwtService: jwtService}
}

// RequireJWT authenticates the bearer token and attaches the caller to both
// the echo context and the request context.
func (m *Middleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				return respondError(c, http.StatusUnauthorized, msgMissingAuthorization)
			}

			claims, err := m.jwtService.Verify(token)
			if err != nil {
				return respondError(c, http.StatusUnauthorized, msgInvalidOrExpiredToken)
			}

			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyRole, claims.Role)
			if claims.ClientID != nil {
				c.Set(ContextKeyClientID, *claims.ClientID)
			}

			req := c.Request()
			c.SetRequest(req.WithContext(user.WithActor(req.Context(), claims.Actor())))

			return next(c)
		}
	}
}

// RequireAdmin must run after RequireJWT.
func (m *Middleware) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !GetRole(c).IsAdmin() {
				return respondError(c, http.StatusForbidden, msgAdminRequired)
			}
			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(headerAuthorization)
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != authHeaderParts || strings.ToLower(parts[0]) != bearerScheme {
		return ""
	}

	return parts[1]
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyError: message})
}

func GetUserID(c echo.Context) (uuid.UUID, error) {
	userID := c.Get(ContextKeyUserID)
	if userID == nil {
		return uuid.Nil, apperrors.Unauthorized(msgUserNotAuthenticated)
	}

	id, ok := userID.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalServer(msgInvalidUserIDCtx, nil)
	}

	return id, nil
}

func GetClientID(c echo.Context) (uuid.UUID, error) {
	clientID := c.Get(ContextKeyClientID)
	if clientID == nil {
		return uuid.Nil, apperrors.Forbidden(msgClientNotFound)
	}

	id, ok := clientID.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalServer(msgInvalidClientIDCtx, nil)
	}

	return id, nil
}

func GetRole(c echo.Context) user.Role {
	role, _ := c.Get(ContextKeyRole).(user.Role)
	return role
}
