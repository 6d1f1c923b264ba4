package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"guardian-chat/errors"
)

// Claims defines the structure of the data stored inside the JWT.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates the join tokens handed to clients.
// When no secret is configured the server runs open and this type is
// never constructed.
type TokenManager struct {
	key      []byte
	duration time.Duration
}

func NewTokenManager(secret string, duration time.Duration) *TokenManager {
	return &TokenManager{key: []byte(secret), duration: duration}
}

// Generate creates a signed JWT carrying the username.
func (m *TokenManager) Generate(username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "guardian-chat",
		},
	}

	// HS256 (HMAC with SHA256) keeps the secret symmetric and server-side.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

// Validate parses and validates the signature and expiration of a JWT string.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		return nil, errors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.ErrInvalidToken
}
