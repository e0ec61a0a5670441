//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"leaddesk/internal/auth/revocation"
	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/testutil/containers"
)

type RedisListSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *revocation.RedisList
}

func TestRedisListSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisListSuite))
}

func (s *RedisListSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.list = revocation.NewRedisList(s.redis.Client)
}

func (s *RedisListSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisListSuite) TestRevokeThenCheck() {
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := s.list.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.list.Revoke(ctx, jti, time.Minute))

	revoked, err = s.list.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *RedisListSuite) TestRevocationExpires() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.list.Revoke(ctx, jti, 500*time.Millisecond))

	revoked, err := s.list.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)

	s.Require().Eventually(func() bool {
		revoked, err := s.list.IsRevoked(ctx, jti)
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond, "revocation should expire with its TTL")
}

func (s *RedisListSuite) TestRevokeRejectsNonPositiveTTL() {
	ctx := context.Background()

	for _, ttl := range []time.Duration{0, -time.Second} {
		err := s.list.Revoke(ctx, uuid.NewString(), ttl)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	}
}

func (s *RedisListSuite) TestEmptyJTIIsNeverRevoked() {
	ctx := context.Background()

	s.Require().NoError(s.list.Revoke(ctx, "", time.Minute))

	revoked, err := s.list.IsRevoked(ctx, "")
	s.Require().NoError(err)
	s.False(revoked)
}
