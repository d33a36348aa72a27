package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/domain/model"
)

// DefaultRedisResultPrefix namespaces artifact keys.
const DefaultRedisResultPrefix = "surveystats:result:"

// RedisResultRepo stores artifacts as Redis string values.
type RedisResultRepo struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisResultRepoOptions configures NewRedisResultRepo.
type RedisResultRepoOptions struct {
	Client redis.UniversalClient
	Prefix string
	// TTL of zero keeps artifacts until deleted.
	TTL time.Duration
}

// NewRedisResultRepo creates a RedisResultRepo.
func NewRedisResultRepo(opts RedisResultRepoOptions) (*RedisResultRepo, error) {
	if opts.Client == nil {
		return nil, ErrResultStoreNotConfigured
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultRedisResultPrefix
	}
	return &RedisResultRepo{client: opts.Client, prefix: prefix, ttl: max(opts.TTL, 0)}, nil
}

func (r *RedisResultRepo) key(id int64) string {
	return r.prefix + strconv.FormatInt(id, 10)
}

// Write stores the artifact for id.
func (r *RedisResultRepo) Write(ctx context.Context, id int64, artifact []byte) error {
	if err := validateJobID(id); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(id), artifact, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Read returns the artifact for id.
func (r *RedisResultRepo) Read(ctx context.Context, id int64) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return b, nil
}

// LastJobID scans the keys under the prefix and returns the highest job id among them.
// A cluster client scans every master.
func (r *RedisResultRepo) LastJobID(ctx context.Context) (int64, error) {
	var mu sync.Mutex
	var last int64
	scan := func(ctx context.Context, c redis.Cmdable) error {
		iter := c.Scan(ctx, 0, globEscaper.Replace(r.prefix)+"*", 1000).Iterator()
		for iter.Next(ctx) {
			if id, ok := parseJobID(strings.TrimPrefix(iter.Val(), r.prefix), ""); ok {
				mu.Lock()
				last = max(last, id)
				mu.Unlock()
			}
		}
		return iter.Err()
	}

	var err error
	if cluster, ok := r.client.(*redis.ClusterClient); ok {
		err = cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return scan(ctx, node)
		})
	} else {
		err = scan(ctx, r.client)
	}
	if err != nil {
		return 0, fmt.Errorf("scan redis: %w", err)
	}
	return last, nil
}

// Health checks the Redis connection.
func (r *RedisResultRepo) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// globEscaper quotes the SCAN MATCH metacharacters in a literal prefix.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

var (
	_ core.ResultStore   = (*RedisResultRepo)(nil)
	_ core.ResultCatalog = (*RedisResultRepo)(nil)
	_ core.HealthChecker = (*RedisResultRepo)(nil)
)
