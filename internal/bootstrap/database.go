package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/surveystats/config"
	"github.com/target/surveystats/internal/migrate"
)

const connectTimeout = 5 * time.Second

// DatabaseConfig contains configuration for the Postgres and Redis result backends.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// PostgresDSN renders the connection URL, escaping credentials.
func PostgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectDB opens and pings the Postgres database backing the postgres result store.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", PostgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBConfig.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DBConfig.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConfig.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	loggerOrDefault(cfg.Logger).InfoContext(ctx, "database connected",
		"host", cfg.DBConfig.Host,
		"port", cfg.DBConfig.Port,
		"database", cfg.DBConfig.Name,
	)
	return db, nil
}

// ConnectRedis opens the client selected by cfg.RedisConfig and pings it.
//
//nolint:ireturn // the concrete client depends on the deployment mode.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	opts, err := redisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	switch {
	case cfg.RedisConfig.UseCluster:
		client = redis.NewClusterClient(opts.Cluster())
	case cfg.RedisConfig.UseSentinel:
		client = redis.NewFailoverClient(opts.Failover())
	default:
		client = redis.NewClient(opts.Simple())
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	loggerOrDefault(cfg.Logger).InfoContext(ctx, "redis connected",
		"mode", redisMode(cfg.RedisConfig),
		"addrs", redactAddrs(opts.Addrs),
		"db", opts.DB,
	)
	return client, nil
}

func redisMode(cfg config.RedisConfig) string {
	switch {
	case cfg.UseCluster:
		return "cluster"
	case cfg.UseSentinel:
		return "sentinel"
	default:
		return "direct"
	}
}

// redisOptions folds the env settings into one option set. A redis:// or rediss:// URI
// supplies address, credentials, DB and TLS; explicit settings win over the URI.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	uri := strings.TrimSpace(cfg.URI)
	if isRedisURL(uri) {
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts.Addrs = []string{parsed.Addr}
		opts.Username = parsed.Username
		opts.TLSConfig = parsed.TLSConfig
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
	} else if uri != "" {
		opts.Addrs = []string{uri}
	}

	switch {
	case cfg.UseCluster:
		if nodes := normalizeAddrs(cfg.ClusterNodes); len(nodes) > 0 {
			opts.Addrs = nodes
		}
		if len(opts.Addrs) == 0 {
			return nil, errors.New("redis cluster configuration requires at least one address")
		}
		// Cluster mode has no database selection.
		opts.DB = 0
	case cfg.UseSentinel:
		opts.Addrs = normalizeAddrs(cfg.SentinelNodes)
		if len(opts.Addrs) == 0 {
			return nil, errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		opts.MasterName = cfg.SentinelMasterName
		opts.SentinelPassword = cfg.SentinelPassword
	case len(opts.Addrs) == 0:
		return nil, errors.New("redis direct configuration requires a URI")
	}
	return opts, nil
}

func redactAddrs(addrs []string) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = redactAddr(a)
	}
	return out
}

// redactAddr strips credentials from a redis address before logging.
func redactAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// RunMigrations creates the job_results table and anything else the Postgres backend needs.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	applied, err := migrate.New(db, logger).Apply(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	loggerOrDefault(logger).InfoContext(ctx, "database migrations completed", "applied", applied)
	return nil
}

// PendingMigrations lists migration versions the database has not recorded yet.
func PendingMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) ([]string, error) {
	return migrate.New(db, logger).Pending(ctx)
}
