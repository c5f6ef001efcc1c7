package container

import (
	"context"
	"fmt"

	"github.com/AlexIndustrial/latebot/internal/config"
	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/internal/repository"
	"github.com/AlexIndustrial/latebot/internal/security"
	"github.com/AlexIndustrial/latebot/internal/service"
	"github.com/AlexIndustrial/latebot/pkg/database"
	"github.com/AlexIndustrial/latebot/pkg/logger"
	"github.com/AlexIndustrial/latebot/pkg/redis"
	"github.com/AlexIndustrial/latebot/pkg/telegram"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	Postgres    *database.PostgresDB
	RedisClient *redis.Client

	Telegram      *telegram.Client
	RateLimiter   *security.RateLimiter
	Gate          *security.RequestGate
	VotingService *service.VotingService
}

// New wires the whole dependency graph. Postgres is the primary vote store
// when DATABASE_URL is set; otherwise the Redis adapter serves both votes
// and milestone dedup. At least one backend must be configured.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without it")
		} else {
			c.RedisClient = client
			log.Info("Redis client initialized")
		}
	}

	var dayRepo repository.DayRepository
	switch {
	case cfg.DatabaseURL != "":
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			c.Cleanup()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			c.Cleanup()
			return nil, err
		}
		c.Postgres = db
		dayRepo = repository.NewPostgresDayRepository(db)
		log.Info("Using Postgres vote store")
	case c.RedisClient != nil:
		dayRepo = repository.NewRedisDayRepository(c.RedisClient)
		log.Info("Using Redis vote store")
	default:
		return nil, fmt.Errorf("no vote store configured: set DATABASE_URL or REDIS_URL")
	}

	c.Telegram = telegram.NewClient(cfg.BotToken, log)

	// Milestone broadcasts only make sense with a configured chat; dedup
	// additionally needs Redis and silently degrades without it
	var notifier *service.MilestoneNotifier
	if cfg.NotificationChatID != 0 {
		notifier = service.NewMilestoneNotifier(
			c.Telegram, c.RedisClient, cfg.NotificationChatID,
			cfg.TargetName, cfg.PingUser, log.Logger,
		)
	}

	c.VotingService = service.NewVotingService(dayRepo, notifier, nil, log.Logger)

	policy := domain.NewSecurityPolicy(
		cfg.Security.RequestLimit,
		cfg.Security.Window,
		cfg.Security.DDoSProtectionEnabled,
		cfg.Security.Whitelist,
		cfg.Security.Blacklist,
	)
	c.RateLimiter = security.NewRateLimiter(policy, nil, log)
	c.Gate = security.NewRequestGate(c.RateLimiter, log)

	return c, nil
}

// Cleanup releases backend connections
func (c *Container) Cleanup() {
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
}
