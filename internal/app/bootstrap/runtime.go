package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/urbanhaven-leadbot/internal/config"
	"github.com/wolfman30/urbanhaven-leadbot/internal/conversation"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreSQLite   = "sqlite"
)

// Resources are the shared clients a process opened at startup. Nil fields
// mean the backing service is not configured.
type Resources struct {
	Redis *redis.Client
	Pool  *pgxpool.Pool
	AWS   *aws.Config
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to DATABASE_URL, or returns nil when unset.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildSessionStore selects the session adapter named by SESSION_STORE.
func BuildSessionStore(cfg *appconfig.Config, res Resources, logger *logging.Logger) (conversation.SessionStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	kind := strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	switch kind {
	case "", StoreMemory:
		logger.Warn("using in-memory session store; sessions are lost on restart")
		return conversation.NewMemoryStore(), nil
	case StoreRedis:
		if res.Redis == nil {
			return nil, fmt.Errorf("bootstrap: SESSION_STORE=redis requires REDIS_ADDR")
		}
		logger.Info("using redis session store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
		return conversation.NewRedisStore(res.Redis, cfg.SessionTTL, nil), nil
	case StorePostgres:
		if res.Pool == nil {
			return nil, fmt.Errorf("bootstrap: SESSION_STORE=postgres requires DATABASE_URL")
		}
		logger.Info("using postgres session store")
		return conversation.NewPostgresStore(res.Pool), nil
	case StoreDynamoDB:
		if res.AWS == nil {
			return nil, fmt.Errorf("bootstrap: SESSION_STORE=dynamodb requires AWS configuration")
		}
		if strings.TrimSpace(cfg.SessionsTable) == "" {
			return nil, fmt.Errorf("bootstrap: SESSION_STORE=dynamodb requires SESSIONS_TABLE")
		}
		logger.Info("using dynamodb session store", "table", cfg.SessionsTable)
		return conversation.NewDynamoStore(dynamodb.NewFromConfig(*res.AWS), cfg.SessionsTable, cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown SESSION_STORE %q", cfg.SessionStore)
	}
}
