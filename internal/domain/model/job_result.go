//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrResultNotFound is returned by result stores when no artifact exists for a job.
var ErrResultNotFound = errors.New("job result not found")

// JobResult represents a persisted artifact row.
type JobResult struct {
	JobID     int64           `json:"job_id"     db:"job_id"`
	Result    json.RawMessage `json:"result"     db:"result"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// JobView is what callers observe when polling a job.
// Artifact is nil for running jobs and for done jobs that produced no data.
type JobView struct {
	ID       int64
	Status   JobStatus
	Artifact json.RawMessage
}
