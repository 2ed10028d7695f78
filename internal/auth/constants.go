package auth

const (
	ContextKeyUserID   = "user_id"
	ContextKeyClientID = "client_id"
	ContextKeyRole     = "role"

	jsonKeyError = "error"

	headerAuthorization = "Authorization"

	bearerScheme    = "bearer"
	authHeaderParts = 2
)

const (
	msgMissingAuthorization    = "missing authorization token"
	msgInvalidOrExpiredToken   = "invalid or expired token"
	msgAdminRequired           = "admin role required"
	msgUserNotAuthenticated    = "user not authenticated"
	msgClientNotFound          = "client not found"
	msgInvalidUserIDCtx        = "invalid user ID in context"
	msgInvalidClientIDCtx      = "invalid client ID in context"
	msgUnexpectedSigningMethod = "unexpected signing method: %v"
	msgTokenParseFailed        = "failed to parse token: %w"
	msgInvalidTokenClaims      = "invalid token claims"
	msgUnknownRole             = "unknown role: %s"
)
