package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidGraph is matched by every ValidationError.
	ErrInvalidGraph = errors.New("invalid scenario graph")
	// ErrCycleDetected is matched by every CycleDetectedError.
	ErrCycleDetected = errors.New("dependency cycle detected")
	// ErrInvalidIterations indicates a non-positive iteration count.
	ErrInvalidIterations = errors.New("iterations must be positive")
	// ErrNilGraph indicates a nil graph was passed to a core entry point.
	ErrNilGraph = errors.New("scenario graph is nil")
)

// ValidationError carries every structural violation found in a graph.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	switch len(e.Violations) {
	case 0:
		return ErrInvalidGraph.Error()
	case 1:
		return fmt.Sprintf("%s: %s", ErrInvalidGraph, e.Violations[0])
	default:
		return fmt.Sprintf("%s: %d violations: %s", ErrInvalidGraph, len(e.Violations), strings.Join(e.Violations, "; "))
	}
}

// Is lets errors.Is match against ErrInvalidGraph.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidGraph
}

// CycleDetectedError names the node that closed a dependency cycle.
type CycleDetectedError struct {
	Node string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("%s at node %q", ErrCycleDetected, e.Node)
}

// Is lets errors.Is match against ErrCycleDetected.
func (e *CycleDetectedError) Is(target error) bool {
	return target == ErrCycleDetected
}
