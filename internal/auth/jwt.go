package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"marketplace/internal/domain"
)

type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Principal is the authenticated identity behind a request or session. For a
// storefront user ID is the storefront id, which is also its channel.
type Principal struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Login string `json:"login,omitempty"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperAdmin
}

// Owns reports whether p may act on behalf of storefrontID.
func (p Principal) Owns(storefrontID string) bool {
	return p.IsAdmin() || p.ID == storefrontID
}

type Claims struct {
	ClientID string `json:"client_id,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Login    string `json:"login,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify returns the principal carried by token. Any failure is reported as
// UNAUTHENTICATED.
func (v *Verifier) Verify(token string) (Principal, error) {
	token = StripBearer(token)
	if token == "" {
		return Principal{}, domain.Unauthenticated("missing bearer token")
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Principal{}, domain.Unauthenticated("token expired")
	case err != nil:
		return Principal{}, domain.Unauthenticated("invalid token")
	}

	p := Principal{ID: claims.ClientID, Role: claims.Role, Login: claims.Login}
	if p.ID == "" {
		p.ID = claims.Subject
	}
	if p.ID == "" {
		return Principal{}, domain.Unauthenticated("token has no subject")
	}
	if p.Role == "" {
		p.Role = RoleClient
	}
	if !p.Role.Valid() {
		return Principal{}, domain.Unauthenticated("unknown role " + string(p.Role))
	}
	return p, nil
}

// Sign issues a token for p valid for ttl.
func (v *Verifier) Sign(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  p.Role,
		Login: p.Login,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if p.Role == RoleClient {
		claims.ClientID = p.ID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// StripBearer removes a leading "Bearer " (any case) and surrounding space.
func StripBearer(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 7 && strings.EqualFold(s[:7], "bearer ") {
		s = strings.TrimSpace(s[7:])
	}
	return s
}
