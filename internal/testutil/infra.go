package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/target/surveystats/internal/migrate"
)

const infraProbeTimeout = 2 * time.Second

// InfraConfig points integration tests at the Postgres, Redis and S3 instances
// from the docker-compose test profile. CI overrides the addresses through TEST_* variables.
type InfraConfig struct {
	DBHost     string `env:"DB_HOST"     envDefault:"localhost"`
	DBPort     string `env:"DB_PORT"     envDefault:"55432"`
	DBUser     string `env:"DB_USER"     envDefault:"surveystats"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"surveystats"`
	DBName     string `env:"DB_NAME"     envDefault:"surveystats"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:56379"`
	RedisDB   int    `env:"REDIS_DB"   envDefault:"1"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	// RequireInfra turns every "not available" skip into a failure.
	RequireInfra bool `env:"REQUIRE_INFRA"`
	RequireDB    bool `env:"REQUIRE_DB"`
	RequireRedis bool `env:"REQUIRE_REDIS"`
}

// LoadInfraConfig reads TEST_-prefixed environment variables.
func LoadInfraConfig() (InfraConfig, error) {
	var cfg InfraConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TEST_"}); err != nil {
		return InfraConfig{}, fmt.Errorf("parse test infra config: %w", err)
	}
	return cfg, nil
}

// PostgresDSN builds a URL-style DSN for the test database.
func (c InfraConfig) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func mustInfraConfig(t testing.TB) InfraConfig {
	t.Helper()
	cfg, err := LoadInfraConfig()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

// unavailable skips the test, or fails it when the caller insists on real infra.
func unavailable(t testing.TB, required bool, format string, args ...any) {
	t.Helper()
	if required {
		t.Fatalf(format, args...)
	}
	t.Skipf(format, args...)
}

// OpenTestDB connects to the test Postgres, applies migrations and empties job_results.
// The handle is closed when the test finishes.
func OpenTestDB(t testing.TB) *sql.DB {
	t.Helper()
	cfg := mustInfraConfig(t)
	required := cfg.RequireInfra || cfg.RequireDB

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		unavailable(t, required, "test database not available: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), infraProbeTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		unavailable(t, required, "test database not available at %s:%s: %v", cfg.DBHost, cfg.DBPort, pingErr)
	}

	if _, migrateErr := migrate.New(db, nil).Apply(context.Background()); migrateErr != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", migrateErr)
	}
	truncateResults(t, db)

	t.Cleanup(func() {
		truncateResults(t, db)
		if cerr := db.Close(); cerr != nil {
			t.Logf("close test db: %v", cerr)
		}
	})
	return db
}

func truncateResults(t testing.TB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "TRUNCATE job_results"); err != nil {
		t.Fatalf("truncate job_results: %v", err)
	}
}

// OpenTestRedis connects to the test Redis and returns a key prefix unique to the test.
// Keys under the prefix are removed when the test finishes, so tests can share one logical DB.
func OpenTestRedis(t testing.TB) (*redis.Client, string) {
	t.Helper()
	cfg := mustInfraConfig(t)

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), infraProbeTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		unavailable(t, cfg.RequireInfra || cfg.RequireRedis, "redis not available at %s: %v", cfg.RedisAddr, err)
	}

	name := strings.NewReplacer("/", ":", " ", "_").Replace(t.Name())
	prefix := fmt.Sprintf("surveystats:test:%s:%d:", name, time.Now().UnixNano())

	t.Cleanup(func() {
		dropKeys(t, client, prefix)
		if err := client.Close(); err != nil {
			t.Logf("close test redis: %v", err)
		}
	})
	return client, prefix
}

func dropKeys(t testing.TB, client *redis.Client, prefix string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		t.Logf("scan test keys: %v", err)
		return
	}
	if len(keys) > 0 {
		if err := client.Del(ctx, keys...).Err(); err != nil {
			t.Logf("delete test keys: %v", err)
		}
	}
}

// RequireS3 returns the infra config when an S3-compatible endpoint is configured, and skips otherwise.
func RequireS3(t testing.TB) InfraConfig {
	t.Helper()
	cfg := mustInfraConfig(t)
	if cfg.S3Endpoint == "" {
		unavailable(t, cfg.RequireInfra, "TEST_S3_ENDPOINT not set")
	}
	return cfg
}
