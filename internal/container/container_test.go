package container

import (
	"context"
	"testing"
	"time"

	"github.com/AlexIndustrial/latebot/internal/config"
	"github.com/AlexIndustrial/latebot/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(redisURL string) *config.Config {
	return &config.Config{
		Environment: "test",
		RedisURL:    redisURL,
		BotToken:    "test-token",
		TargetName:  "John",
		PingUser:    "@john",
		Security: config.SecurityConfig{
			RequestLimit:          30,
			Window:                time.Minute,
			DDoSProtectionEnabled: true,
		},
	}
}

func TestNewWithRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log, err := logger.New("error")
	require.NoError(t, err)

	c, err := New(context.Background(), testConfig("redis://"+mr.Addr()), log)
	require.NoError(t, err)
	t.Cleanup(c.Cleanup)

	assert.NotNil(t, c.RedisClient)
	assert.Nil(t, c.Postgres)
	assert.NotNil(t, c.Telegram)
	assert.NotNil(t, c.VotingService)
	assert.NotNil(t, c.RateLimiter)
	assert.NotNil(t, c.Gate)
}

func TestNewWithoutAnyStoreFails(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)

	c, err := New(context.Background(), testConfig(""), log)
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestNewMilestoneChatDoesNotRequireRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log, err := logger.New("error")
	require.NoError(t, err)

	cfg := testConfig("redis://" + mr.Addr())
	cfg.NotificationChatID = 777

	c, err := New(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(c.Cleanup)

	assert.NotNil(t, c.VotingService)
}

func TestCleanupIsSafeToCallTwice(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log, err := logger.New("error")
	require.NoError(t, err)

	c, err := New(context.Background(), testConfig("redis://"+mr.Addr()), log)
	require.NoError(t, err)

	c.Cleanup()
	c.Cleanup()
}
