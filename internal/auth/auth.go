// Package auth issues and verifies the signed tokens that identify
// players and operators.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RolePlayer   = "player"
	RoleOperator = "operator"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is who a verified token belongs to.
type Identity struct {
	PlayerID uuid.UUID
	Role     string
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for the given identity, valid for ttl.
func GenerateToken(secret string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.PlayerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies a token and returns the identity it carries.
func ParseToken(secret, tokenString string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	playerID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrUnauthorized)
	}
	role := c.Role
	if role == "" {
		role = RolePlayer
	}
	return Identity{PlayerID: playerID, Role: role}, nil
}

// FromRequest extracts and verifies the token on an HTTP request. It
// accepts an Authorization bearer header or, for websocket upgrades where
// browsers cannot set headers, a token query parameter.
func FromRequest(secret string, r *http.Request) (Identity, error) {
	tokenString := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		tokenString = strings.TrimPrefix(h, "Bearer ")
	} else if q := r.URL.Query().Get("token"); q != "" {
		tokenString = q
	}
	if tokenString == "" {
		return Identity{}, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	return ParseToken(secret, tokenString)
}
