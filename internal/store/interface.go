// Package store abstracts the backing property-graph database. The engine
// only depends on the interfaces here: transactional node handles for
// mutations, and parameterized query execution for reads.
package store

import (
	"context"

	"github.com/agenthands/lattice/internal/model"
)

// Record is one row of a query result, keyed by the RETURN aliases.
type Record map[string]any

// Result is the eagerly collected outcome of a parameterized query.
type Result struct {
	Records []Record
}

// GraphStore is the backing store. WithTx runs fn inside a single write
// transaction: commit when fn returns nil, rollback otherwise. Execute runs
// a parameterized read query outside any caller transaction.
type GraphStore interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
	Execute(ctx context.Context, query string, params map[string]any) (*Result, error)
	Close(ctx context.Context) error
}

// Tx is scoped write access within one store transaction.
type Tx interface {
	// NodeByUniqueID resolves a node by its unique identifier property,
	// returning model.ErrNotFound when no node carries it.
	NodeByUniqueID(id string) (NodeHandle, error)
	// CreateNode creates an empty node and returns its handle. The handle's
	// sequence id is store-issued and usable for identifier assignment.
	CreateNode() (NodeHandle, error)
	// CreateRelation creates a typed edge between two handles fetched or
	// created in this transaction.
	CreateRelation(start, end NodeHandle, relationType string, metadata map[string]any) error
	// DeleteRelation removes the typed edge between two node identifiers.
	// Missing edges are a no-op.
	DeleteRelation(startID, endID, relationType string) error
}

// NodeHandle is a structural handle on one stored node, valid for the
// lifetime of its transaction.
type NodeHandle interface {
	SequenceID() int64
	Property(name string) (any, bool)
	// Properties returns a copy of the node's current properties.
	Properties() map[string]any
	SetProperty(name string, value any)
	RemoveProperty(name string)
	// Relations enumerates the node's incident relations, inbound and
	// outbound, as value objects keyed by unique node identifiers.
	Relations() (in []model.Relation, out []model.Relation, err error)
	// Delete removes the node's incident relations and then the node.
	Delete() error
}
