// Package auth issues and verifies the bearer tokens that identify accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingKey   = errors.New("signing key is empty")
)

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Account is the authenticated caller of a request.
type Account struct {
	ID   string
	Role string
}

func (a Account) IsSystem() bool {
	return a.Role == RoleSystem
}

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingKey
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) CreateAccessToken(sub, role string) (string, error) {
	now := i.now()
	claims := Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// TokenSource mints a fresh token per call, for service-to-service clients.
func (i *Issuer) TokenSource(sub, role string) func() (string, error) {
	return func() (string, error) {
		return i.CreateAccessToken(sub, role)
	}
}

func (i *Issuer) ParseValidate(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Sub == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

type accountKey struct{}

func WithAccount(ctx context.Context, account Account) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFromContext returns the authenticated account, if any.
func AccountFromContext(ctx context.Context) (Account, bool) {
	account, ok := ctx.Value(accountKey{}).(Account)
	return account, ok && account.ID != ""
}
