package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or missing claims.
	ErrInvalidToken = errors.New("invalid token")
)

// SessionClaims holds JWT claims for a device-bound session token.
// Subject is the login email; DeviceKey is the hashed device identifier the
// token was issued under.
type SessionClaims struct {
	jwt.RegisteredClaims
	DeviceKey string `json:"device"`
}

// TokenProvider issues and validates session JWTs using HS256 with a single
// process-wide secret. The secret comes from config, which rejects the insecure
// development placeholder in production.
type TokenProvider struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenProvider returns a TokenProvider signing with secret. ttl is the
// absolute token lifetime (30 days by default at the config layer).
func NewTokenProvider(secret string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{secret: []byte(secret), ttl: ttl}
}

// Issue issues a session token embedding (sub=email, device=deviceKey,
// exp=now+ttl). Returns the signed token and its expiration time.
func (p *TokenProvider) Issue(email, deviceKey string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(p.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		DeviceKey: deviceKey,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify parses and validates the token (signature and exp) and returns the
// email and device key it carries. Callers must additionally re-check the
// device-email binding against the store; a token is only as valid as the row
// it was issued for.
func (p *TokenProvider) Verify(tokenString string) (email, deviceKey string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		return "", "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" || claims.DeviceKey == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.DeviceKey, nil
}
