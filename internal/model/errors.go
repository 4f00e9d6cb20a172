package model

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a graph error so callers can decide between retrying with
// fresh data and aborting.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindTypeMismatch Kind = "TYPE_MISMATCH"
	KindConflict     Kind = "CONFLICT"
	KindStoreFailure Kind = "STORE_FAILURE"
)

// GraphError is the typed error returned by the persistence engine and the
// backing store. Two GraphErrors match under errors.Is when their kinds match,
// so the sentinels below work as targets.
type GraphError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *GraphError) Error() string {
	if e.Message == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GraphError) Unwrap() error { return e.Err }

func (e *GraphError) Is(target error) bool {
	t, ok := target.(*GraphError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound     = &GraphError{Kind: KindNotFound}
	ErrTypeMismatch = &GraphError{Kind: KindTypeMismatch}
	ErrConflict     = &GraphError{Kind: KindConflict}
	ErrStoreFailure = &GraphError{Kind: KindStoreFailure}
)

func NewNotFound(format string, args ...any) *GraphError {
	return &GraphError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewTypeMismatch(format string, args ...any) *GraphError {
	return &GraphError{Kind: KindTypeMismatch, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(format string, args ...any) *GraphError {
	return &GraphError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewStoreFailure(err error) *GraphError {
	return &GraphError{Kind: KindStoreFailure, Err: err}
}

// Endpoint roles used as keys in ValidationError messages.
const (
	EndpointStart = "start"
	EndpointEnd   = "end"
)

// ValidationError reports relation endpoint constraint violations keyed by
// endpoint role. It is non-retryable: the proposed relation breaks the data
// model, not a transient fault.
type ValidationError struct {
	RelationType string
	Messages     map[string][]string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("relation validation failed")
	if e.RelationType != "" {
		sb.WriteString(" for ")
		sb.WriteString(e.RelationType)
	}
	roles := make([]string, 0, len(e.Messages))
	for role := range e.Messages {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		sb.WriteString(fmt.Sprintf(" [%s: %s]", role, strings.Join(e.Messages[role], "; ")))
	}
	return sb.String()
}
