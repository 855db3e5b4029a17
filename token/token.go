// Package token issues and verifies the short-lived signed tokens that
// authorize retrieval of one cached file. Tokens are stateless HS256 JWTs:
// no server-side session store, reusable for any number of reads within
// their validity window.
package token

import (
	"errors"
	"fmt"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the default token validity window. Long enough for a client
// to start a transfer after receiving a link, short enough to bound exposure
// if the link leaks.
const DefaultTTL = 15 * time.Minute

var (
	// ErrExpired is returned when the token's expiry has passed.
	ErrExpired = errors.New("token: expired")
	// ErrInvalidSignature is returned when the signature does not match the
	// payload, including signatures produced under a different secret.
	ErrInvalidSignature = errors.New("token: invalid signature")
	// ErrMalformed is returned for tokens that do not parse as a signed
	// three-segment token or whose claims are not usable.
	ErrMalformed = errors.New("token: malformed")
)

// Claims is the token payload: subject is the cache key, kind names the
// artifact type, and the registered claims carry iat/exp.
type Claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Service issues and verifies file access tokens with a process-wide secret.
// Verification is a pure function of (token, current time, secret) and is
// safe for concurrent use without locking.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets the default validity window for issued tokens.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithNow sets the time function for testing.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a token service signing with the given secret.
func New(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	s := &Service{
		secret: secret,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the default validity window for issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token authorizing retrieval of the cached file identified by
// (key, kind), valid for the service's default TTL.
func (s *Service) Issue(key youtubetools.Key, kind youtubetools.Kind) (string, error) {
	return s.IssueTTL(key, kind, s.ttl)
}

// IssueTTL signs a token with an explicit validity window.
func (s *Service) IssueTTL(key youtubetools.Key, kind youtubetools.Kind, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns the cache key
// and kind it authorizes. Errors are terminal for the request; retrying
// verification is never meaningful.
func (s *Service) Verify(tokenString string) (youtubetools.Key, youtubetools.Kind, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return youtubetools.Key{}, "", ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return youtubetools.Key{}, "", ErrInvalidSignature
		default:
			return youtubetools.Key{}, "", ErrMalformed
		}
	}

	key, err := youtubetools.ParseKey(claims.Subject)
	if err != nil {
		return youtubetools.Key{}, "", ErrMalformed
	}
	kind, err := youtubetools.ParseKind(claims.Kind)
	if err != nil {
		return youtubetools.Key{}, "", ErrMalformed
	}
	return key, kind, nil
}
