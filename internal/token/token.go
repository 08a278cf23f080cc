// Package token firma y valida los session tokens (JWT HS256) que emite el
// login por wallet. No hay estado del lado del servidor.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

const (
	DefaultTTL    = 6 * time.Hour
	DefaultIssuer = "skillspassport"
	leeway        = 30 * time.Second
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidIssuer = errors.New("invalid issuer")
	ErrEmptySecret   = errors.New("token secret is empty")
)

// Claims: address y sub llevan la misma dirección en minúsculas.
type Claims struct {
	Address string `json:"address"`
	jwtv5.RegisteredClaims
}

// Issuer firma tokens con un secreto compartido.
type Issuer struct {
	Secret []byte
	TTL    time.Duration // "exp" - "iat"
	Iss    string        // "iss"

	now func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, iss string) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if strings.TrimSpace(iss) == "" {
		iss = DefaultIssuer
	}
	return &Issuer{Secret: []byte(secret), TTL: ttl, Iss: iss, now: time.Now}
}

func (i *Issuer) clock() time.Time {
	if i.now != nil {
		return i.now()
	}
	return time.Now()
}

// Issue firma un token para address y devuelve también su expiración.
func (i *Issuer) Issue(address string) (string, time.Time, error) {
	if len(i.Secret) == 0 {
		return "", time.Time{}, ErrEmptySecret
	}
	if !wallet.IsAddress(address) {
		return "", time.Time{}, wallet.ErrInvalidAddress
	}
	addr := wallet.Lower(address)
	now := i.clock().Truncate(time.Second)
	exp := now.Add(i.TTL)

	claims := Claims{
		Address: addr,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   addr,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(i.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse valida firma (solo HS256), iss, exp y nbf con 30s de tolerancia.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(i.Secret) == 0 {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	tok, err := jwtv5.ParseWithClaims(raw, claims,
		func(*jwtv5.Token) (any, error) { return i.Secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithLeeway(leeway),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(i.clock),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenInvalidIssuer) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrInvalidIssuer)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if !wallet.IsAddress(claims.Address) || !strings.EqualFold(claims.Address, claims.Subject) {
		return nil, fmt.Errorf("%w: address claim", ErrInvalidToken)
	}
	claims.Address = wallet.Lower(claims.Address)
	return claims, nil
}
