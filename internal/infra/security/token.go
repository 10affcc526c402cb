package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"padicrib/internal/app/services/auth"
	domainuser "padicrib/internal/domain/user"
)

const issuer = "padicrib"

var ErrSecretRequired = errors.New("security: signing secret is required")

// Claims carries the session subject. The role is informational only; the
// user row is reloaded on every request.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 session tokens with the session secret.
type JWTIssuer struct {
	Secret []byte
	TTL    time.Duration
}

var _ auth.TokenIssuer = JWTIssuer{}

func (j JWTIssuer) Issue(u *domainuser.User, now time.Time) (string, time.Time, error) {
	if len(j.Secret) == 0 {
		return "", time.Time{}, ErrSecretRequired
	}
	ttl := j.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	exp := now.Add(ttl).UTC()
	claims := Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(int64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (j JWTIssuer) Parse(token string) (domainuser.ID, error) {
	if len(j.Secret) == 0 {
		return 0, ErrSecretRequired
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return 0, errors.New("security: invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("security: invalid token subject")
	}
	return domainuser.ID(id), nil
}
