// Package remote is the adapter boundary to the persistent backend.
//
// Both implementations (a hosted PostgREST backend and a local SQLite
// database) expose the same table-oriented surface and classify every
// failure into a typed kind at this boundary, so callers never inspect
// error prose.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a backend failure.
type Kind int

const (
	// KindTransient covers network faults, timeouts, and server errors.
	// The caller rolls back its optimistic change; no automatic retry.
	KindTransient Kind = iota

	// KindNotProvisioned means the target table or function does not
	// exist in the backend schema. Callers degrade to local-only data
	// instead of failing the user-visible operation.
	KindNotProvisioned

	// KindFatal covers malformed requests and other non-recoverable
	// client-side failures.
	KindFatal
)

// String returns the kind name for log output.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotProvisioned:
		return "not_provisioned"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every backend operation.
type Error struct {
	Kind    Kind
	Table   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("remote %s (%s): %s", e.Kind, e.Table, e.Message)
	}
	return fmt.Sprintf("remote %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotProvisioned reports whether err (or any error in its chain) is a
// backend error indicating a missing table or function.
func IsNotProvisioned(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindNotProvisioned
}

// Filter is a set of equality conditions matched against row columns.
type Filter map[string]any

// Order describes a sort applied to a Select.
type Order struct {
	Column string
	Desc   bool
}

// Client is the persistence surface consumed per collection. Rows travel
// as JSON documents; the caller owns (de)serialization into domain types.
type Client interface {
	// Select returns the rows of table matching filter, sorted by order
	// when order.Column is non-empty.
	Select(ctx context.Context, table string, filter Filter, order Order) ([]json.RawMessage, error)

	// Insert stores a single row and returns its stored representation,
	// including any server-assigned id.
	Insert(ctx context.Context, table string, row any) (json.RawMessage, error)

	// InsertMany stores a batch of rows in one write and returns their
	// stored representations in input order.
	InsertMany(ctx context.Context, table string, rows []any) ([]json.RawMessage, error)

	// Update applies patch to every row matching filter.
	Update(ctx context.Context, table string, patch map[string]any, filter Filter) error

	// Delete removes every row matching filter.
	Delete(ctx context.Context, table string, filter Filter) error

	// RPC invokes a named backend procedure.
	RPC(ctx context.Context, fn string, args map[string]any) error

	// Close releases the underlying connection.
	Close() error
}
