package creek

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph construction and execution failures.
var (
	ErrInvalidNodeID         = errors.New("invalid node ID")
	ErrNodeAlreadyExists     = errors.New("node already exists")
	ErrNodeNotFound          = errors.New("node not found")
	ErrCycleDetected         = errors.New("cycle detected in DAG")
	ErrUnknownPlaceholder    = errors.New("placeholder not declared")
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrArityMismatch         = errors.New("arity mismatch")
	ErrNoOutputs             = errors.New("graph declares no outputs")
	ErrIncompatibleSnapshot  = errors.New("incompatible snapshot")
	ErrUnserializableNode    = errors.New("node is not serializable")
	ErrUnregisteredValueType = errors.New("value type not registered")
)

// PreparationError reports that a preparable node's training step failed.
// The whole preparation is aborted; no partial PreparedGraph is returned.
type PreparationError struct {
	Node NodeID
	Err  error
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("preparing node %q: %v", e.Node, e.Err)
}

func (e *PreparationError) Unwrap() error { return e.Err }

// ApplyError reports a per-record transformer failure during streaming
// execution. It surfaces through the Err method of the reader that pulled
// the failing record; the PreparedGraph itself remains valid for
// subsequent calls.
type ApplyError struct {
	Node NodeID
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("applying node %q: %v", e.Node, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
