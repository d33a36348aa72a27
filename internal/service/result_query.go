package service

import (
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	apperrors "github.com/target/surveystats/internal/errors"
)

// ValidateQuery reports whether expr is a valid JMESPath expression. An empty expression is valid.
func ValidateQuery(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return apperrors.ValidationField("query", fmt.Sprintf("invalid query: %v", err))
	}
	return nil
}

// QueryArtifact projects a stored artifact through a JMESPath expression.
// An empty expression returns the decoded artifact unchanged.
func QueryArtifact(artifact json.RawMessage, expr string) (any, error) {
	if err := ValidateQuery(expr); err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(artifact, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode stored artifact")
	}
	if strings.TrimSpace(expr) == "" {
		return doc, nil
	}

	out, err := jmespath.Search(expr, doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "evaluate query")
	}
	return out, nil
}
