package auth

import (
	"time"

	"chat-gateway/domain"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the data stored inside the JWT.
type CustomClaims struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity rebuilds the principal carried by the claims.
func (c *CustomClaims) Identity() domain.Identity {
	return domain.Identity{Name: c.Name, Role: c.Role}
}

// TokenManager issues and validates the HS256 tokens a client presents on
// the websocket bind and the record endpoints. The signing key comes from
// configuration, never from source.
type TokenManager struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(key []byte, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{key: key, issuer: issuer, ttl: ttl}
}

// Generate creates a signed JWT for the given principal.
func (t *TokenManager) Generate(identity domain.Identity, userID string) (string, error) {
	claims := &CustomClaims{
		UserID: userID,
		Name:   identity.Name,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    t.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

// Validate parses the token, checks signature and expiry, and returns the
// embedded claims.
func (t *TokenManager) Validate(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return t.key, nil
		})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}
