// Package auth implements login and logout over the identity store.
package auth

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks TokenIssuer,RevocationList

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"leaddesk/internal/identity"
	dErrors "leaddesk/pkg/domain-errors"
)

// TokenIssuer mints signed access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID int64, role string, expiresIn time.Duration) (string, error)
}

// RevocationList invalidates token IDs until their natural expiry.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// TokenResponse is the login payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Service authenticates users and revokes tokens on logout.
type Service struct {
	users    identity.Store
	issuer   TokenIssuer
	revoked  RevocationList
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewService constructs the auth service.
func NewService(users identity.Store, issuer TokenIssuer, revoked RevocationList, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		issuer:   issuer,
		revoked:  revoked,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Login verifies credentials and returns a bearer token. Unknown users, bad
// passwords, and inactive accounts all produce the same unauthorized error so
// responses do not leak which usernames exist.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username and password are required")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.WarnContext(ctx, "login failed", "username", username, "reason", "unknown user")
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		s.logger.WarnContext(ctx, "login failed", "username", username, "reason", "bad password")
		return nil, invalidCredentials()
	}
	if !user.Active {
		s.logger.WarnContext(ctx, "login failed", "username", username, "reason", "inactive account")
		return nil, invalidCredentials()
	}

	token, err := s.issuer.GenerateAccessToken(user.ID, user.Role.String(), s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue access token")
	}

	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID, "role", user.Role.String())
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
	}, nil
}

// Logout revokes the token's JTI for the full access-token lifetime. The TTL
// is an upper bound on the token's remaining validity.
func (s *Service) Logout(ctx context.Context, userID int64, tokenID string) error {
	if tokenID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "token carries no id")
	}
	if err := s.revoked.Revoke(ctx, tokenID, s.tokenTTL); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke token")
	}
	s.logger.InfoContext(ctx, "logout", "user_id", userID)
	return nil
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}
