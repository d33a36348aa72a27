package config

import (
	"strings"
	"time"
)

// ResultsBackend selects where job artifacts are persisted.
type ResultsBackend string

const (
	// ResultsBackendMemory keeps artifacts in process memory.
	ResultsBackendMemory ResultsBackend = "memory"
	// ResultsBackendFile writes one JSON file per job.
	ResultsBackendFile ResultsBackend = "file"
	// ResultsBackendSQLite stores artifacts in an embedded SQLite database.
	ResultsBackendSQLite ResultsBackend = "sqlite"
	// ResultsBackendRedis stores artifacts as Redis keys.
	ResultsBackendRedis ResultsBackend = "redis"
	// ResultsBackendPostgres stores artifacts in the job_results table.
	ResultsBackendPostgres ResultsBackend = "postgres"
	// ResultsBackendS3 stores artifacts as objects in an S3-compatible bucket.
	ResultsBackendS3 ResultsBackend = "s3"
)

// ValidResultsBackends lists every supported backend.
func ValidResultsBackends() []ResultsBackend {
	return []ResultsBackend{
		ResultsBackendMemory,
		ResultsBackendFile,
		ResultsBackendSQLite,
		ResultsBackendRedis,
		ResultsBackendPostgres,
		ResultsBackendS3,
	}
}

// Valid reports whether b is a supported backend.
func (b ResultsBackend) Valid() bool {
	for _, v := range ValidResultsBackends() {
		if b == v {
			return true
		}
	}
	return false
}

// ResultsConfig configures the result store.
type ResultsConfig struct {
	Backend ResultsBackend `env:"RESULTS_BACKEND" envDefault:"memory"`

	// Dir is the output directory of the file backend.
	Dir string `env:"RESULTS_DIR" envDefault:"results"`

	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string `env:"RESULTS_SQLITE_PATH" envDefault:"results/results.db"`

	// RedisPrefix namespaces keys of the redis backend.
	RedisPrefix string `env:"RESULTS_REDIS_PREFIX" envDefault:"surveystats:result:"`
	// RedisTTL expires artifacts in the redis backend. Zero keeps them forever.
	RedisTTL time.Duration `env:"RESULTS_REDIS_TTL" envDefault:"0s"`

	S3 S3ResultsConfig `envPrefix:"RESULTS_S3_"`
}

// S3ResultsConfig configures the object storage backend.
type S3ResultsConfig struct {
	Endpoint        string `env:"ENDPOINT"          envDefault:"localhost:9000"`
	Bucket          string `env:"BUCKET"            envDefault:"surveystats-results"`
	Prefix          string `env:"PREFIX"            envDefault:"results/"`
	AccessKey       string `env:"ACCESS_KEY"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	UseSSL          bool   `env:"USE_SSL"           envDefault:"false"`
	CreateBucket    bool   `env:"CREATE_BUCKET"     envDefault:"true"`
}

// Sanitize normalises the backend name and falls back to memory for unknown values.
func (r *ResultsConfig) Sanitize() {
	r.Backend = ResultsBackend(strings.ToLower(strings.TrimSpace(string(r.Backend))))
	if !r.Backend.Valid() {
		r.Backend = ResultsBackendMemory
	}
	r.Dir = strings.TrimSpace(r.Dir)
	if r.Dir == "" {
		r.Dir = "results"
	}
	if r.RedisTTL < 0 {
		r.RedisTTL = 0
	}
	r.S3.Endpoint = strings.TrimSpace(r.S3.Endpoint)
	r.S3.Bucket = strings.TrimSpace(r.S3.Bucket)
}
