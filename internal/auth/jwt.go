package auth

import (
	"fmt"
	"time"

	"portal-service/internal/domain/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type JWTClaims struct {
	UserID uuid.UUID `json:"user_id"`
	// ClientID is empty for staff accounts.
	ClientID *uuid.UUID `json:"client_id,omitempty"`
	Role     user.Role  `json:"role"`
	jwt.RegisteredClaims
}

func (c *JWTClaims) Actor() user.Actor {
	return user.Actor{UserID: c.UserID, ClientID: c.ClientID, Role: c.Role}
}

type JWTService struct {
	secret []byte
	expiry time.Duration
}

func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		expiry: expiry,
	}
}

func (s *JWTService) Generate(actor user.Actor) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:   actor.UserID,
		ClientID: actor.ClientID,
		Role:     actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) Verify(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf(msgUnexpectedSigningMethod, token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, fmt.Errorf(msgTokenParseFailed, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, fmt.Errorf(msgInvalidTokenClaims)
	}

	switch claims.Role {
	case user.RoleAdmin, user.RoleClient:
	default:
		return nil, fmt.Errorf(msgUnknownRole, claims.Role)
	}

	return claims, nil
}
