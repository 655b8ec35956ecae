package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"accountd/internal/domain"
)

// ErrInvalidToken indicates the token failed signature or expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the authenticated identity inside the signed token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Issuer mints and parses signed bearer tokens for authenticated users.
type Issuer interface {
	Issue(user *domain.User) (string, error)
	Parse(tokenString string) (*Claims, error)
}

type jwtIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTIssuer returns an Issuer signing HS256 tokens with the given secret
// and validity duration.
func NewJWTIssuer(secret string, ttl time.Duration) Issuer {
	return &jwtIssuer{secret: []byte(secret), ttl: ttl}
}

func (i *jwtIssuer) Issue(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: user.Email,
		Role:  string(user.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *jwtIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
