// Package graph holds the canonical node/edge model of a diagram.
//
// # Ownership
//
// A Graph is owned by exactly one session goroutine, the only caller of its
// mutating methods. Every mutation builds a new immutable View and publishes it
// with a single revision bump, so readers (the layout worker, exporters) can
// hold a View from another goroutine without locking.
package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph mutations.
var (
	// ErrInvalidReference is returned when an edge endpoint or parent does
	// not exist, or an edge would connect a node to itself.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrNotFound is returned when a mutation targets an absent id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidKind is returned for empty or unregistered node/relation kinds.
	ErrInvalidKind = errors.New("invalid kind")

	// ErrDuplicateID is returned when inserting a node or edge whose id is taken.
	ErrDuplicateID = errors.New("duplicate id")
)

// ReferenceError reports which reference of which operation was invalid.
type ReferenceError struct {
	Op   string // "add_edge", "add_node", "update_node"
	Role string // "source", "target", "parent"
	ID   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", e.Op, e.Role, e.ID, ErrInvalidReference)
}

func (e *ReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// NotFoundError reports the absent id a mutation targeted.
type NotFoundError struct {
	Op string
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Op, e.ID, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
