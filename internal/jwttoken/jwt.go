package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "leaddesk/pkg/domain-errors"
)

// Claims are the access-token claims: the acting identity and its role. The
// token format is stable; collaborators issue and verify it through this
// package only.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies access tokens with an injected HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
	clock      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for issuance timestamps; verification uses
// the jwt library's own clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a token service. The signing key comes from configuration,
// never from package state, so tests can use their own.
func New(signingKey, issuer string, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// GenerateAccessToken issues a signed HS256 token for an identity. The JTI
// enables logout via the revocation list.
func (s *Service) GenerateAccessToken(userID int64, role string, expiresIn time.Duration) (string, error) {
	now := s.clock()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}
	return signed, nil
}

// ValidateToken verifies signature and expiry. Every failure mode maps to
// CodeUnauthorized; callers never see a partially valid token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
