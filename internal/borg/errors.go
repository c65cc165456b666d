package borg

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError describes one structural problem with a workflow
// document. Validation collects every problem instead of stopping at the
// first, so an editor UI can highlight all of them at once.
type ValidationError struct {
	Kind     string `json:"kind"`
	NodeID   string `json:"node_id,omitempty"`
	EdgeID   string `json:"edge_id,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error" | "warning"
}

// Validation error kinds.
const (
	ValidationNoTrigger      = "no_trigger"
	ValidationDuplicateNode  = "duplicate_node"
	ValidationUnknownKind    = "unknown_kind"
	ValidationDanglingEdge   = "dangling_edge"
	ValidationBadPort        = "bad_port"
	ValidationOrphanNode     = "orphan_node"
	ValidationCycle          = "cycle"
	ValidationMissingModel   = "missing_model"
	ValidationMissingBranch  = "missing_branch"
	ValidationBadExpression  = "bad_expression"
)

func (e ValidationError) Error() string {
	var ref string
	switch {
	case e.NodeID != "":
		ref = " node=" + e.NodeID
	case e.EdgeID != "":
		ref = " edge=" + e.EdgeID
	}
	return fmt.Sprintf("%s:%s %s", e.Kind, ref, e.Message)
}

// ValidationErrors aggregates the full list of problems found in one
// validation pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "workflow validation failed: " + strings.Join(msgs, "; ")
}

// HasErrors reports whether any entry has error severity (warnings alone
// do not block execution).
func (e ValidationErrors) HasErrors() bool {
	for _, ve := range e {
		if ve.Severity != "warning" {
			return true
		}
	}
	return false
}

// AdapterErrorKind classifies adapter failures so callers can decide
// whether a retry can help.
type AdapterErrorKind string

const (
	ErrRateLimited          AdapterErrorKind = "rate_limited"
	ErrTimeout              AdapterErrorKind = "timeout"
	ErrInvalidConfiguration AdapterErrorKind = "invalid_configuration"
	ErrProviderRejected     AdapterErrorKind = "provider_rejected"
	ErrProviderUnavailable  AdapterErrorKind = "provider_unavailable"
)

// AdapterError is a typed failure from an external collaborator (LLM
// provider, action endpoint, data source).
type AdapterError struct {
	Kind    AdapterErrorKind
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Retryable reports whether re-invoking with the same input could
// plausibly succeed. Configuration problems never are.
func (e *AdapterError) Retryable() bool {
	switch e.Kind {
	case ErrRateLimited, ErrTimeout, ErrProviderUnavailable:
		return true
	}
	return false
}

// NewAdapterError constructs a typed adapter failure.
func NewAdapterError(kind AdapterErrorKind, message string, err error) *AdapterError {
	return &AdapterError{Kind: kind, Message: message, Err: err}
}

// IsRetryable reports whether err (anywhere in its chain) is a retryable
// adapter error.
func IsRetryable(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return false
}

// ErrNotFound is the generic missing-entity sentinel shared by
// repositories.
var ErrNotFound = errors.New("not found")
