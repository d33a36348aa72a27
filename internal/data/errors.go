package data

import (
	"errors"
	"strconv"
	"strings"
)

// Shared sentinel errors for result stores.
var (
	ErrResultStoreNotConfigured = errors.New("result store not configured")
	ErrJobIDRequired            = errors.New("job_id must be positive")
)

const artifactExt = ".json"

func validateJobID(id int64) error {
	if id < 1 {
		return ErrJobIDRequired
	}
	return nil
}

// parseJobID reads a positive job id from a key or file name with the given suffix.
func parseJobID(name, suffix string) (int64, bool) {
	digits, ok := strings.CutSuffix(name, suffix)
	if !ok || digits == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
