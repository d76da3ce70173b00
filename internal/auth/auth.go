// Package auth issues and verifies the tokens that grant presenter authority.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnauthorized is returned for a wrong passphrase or an invalid token.
var ErrUnauthorized = errors.New("unauthorized")

// RolePresenter is the only role tokens are issued for.
const RolePresenter = "presenter"

// Claims are the JWT claims of a presenter token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authority signs presenter tokens with an HMAC secret. With no secret
// configured, authority is open: every presenter claim is accepted.
type Authority struct {
	secret         []byte
	passphraseHash []byte
	ttl            time.Duration
	now            func() time.Time
}

// New builds an authority. passphraseHash is a bcrypt hash; empty disables
// passphrase login.
func New(secret, passphraseHash string, ttl time.Duration) *Authority {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authority{
		secret:         []byte(secret),
		passphraseHash: []byte(passphraseHash),
		ttl:            ttl,
		now:            time.Now,
	}
}

// Enabled reports whether presenter claims need a token.
func (a *Authority) Enabled() bool { return len(a.secret) > 0 }

// HashPassphrase returns the bcrypt hash to configure as the presenter
// passphrase.
func HashPassphrase(passphrase string) (string, error) {
	if passphrase == "" {
		return "", errors.New("passphrase must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passphrase: %w", err)
	}
	return string(hash), nil
}

// Login exchanges the presenter passphrase for a token.
func (a *Authority) Login(passphrase string) (string, time.Time, error) {
	if !a.Enabled() || len(a.passphraseHash) == 0 {
		return "", time.Time{}, fmt.Errorf("%w: passphrase login is not configured", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(a.passphraseHash, []byte(passphrase)); err != nil {
		return "", time.Time{}, ErrUnauthorized
	}
	return a.Issue("presenter")
}

// Issue signs a presenter token for subject.
func (a *Authority) Issue(subject string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, errors.New("no signing secret configured")
	}
	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claims{
		Role: RolePresenter,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks a token's signature, expiry and role.
func (a *Authority) Verify(token string) (*Claims, error) {
	if !a.Enabled() {
		return &Claims{Role: RolePresenter}, nil
	}
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Role != RolePresenter {
		return nil, fmt.Errorf("%w: role %q", ErrUnauthorized, claims.Role)
	}
	return claims, nil
}
