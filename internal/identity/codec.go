// Package identity turns internal numeric ids into opaque signed tokens and back.
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind scopes a token to one kind of entity so a task token is never accepted
// where a user id is expected
type Kind string

// Kind constants
const (
	KindUser  Kind = "user"
	KindAgent Kind = "agent"
	KindTask  Kind = "task"
)

const issuer = "dispatch-backend"

// ErrInvalidToken is returned for tokens that fail to decode
var ErrInvalidToken = errors.New("invalid identifier")

// Codec encodes and decodes opaque identifiers
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a codec signing with the given HMAC secret
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("identity secret is required")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// Encode returns the opaque identifier of id
func (c *Codec) Encode(id int64, kind Kind) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:   issuer,
		Subject:  strconv.FormatInt(id, 10),
		Audience: jwt.ClaimStrings{string(kind)},
		IssuedAt: jwt.NewNumericDate(c.now()),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign identifier: %w", err)
	}
	return token, nil
}

// Decode verifies token and returns the id it carries
func (c *Codec) Decode(token string, kind Kind) (int64, error) {
	if token == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(kind)),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return id, nil
}
