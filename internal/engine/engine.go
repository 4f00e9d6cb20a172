// Package engine is the node persistence engine: transactional CRUD of
// nodes and their properties with optimistic concurrency, audit stamping and
// identifier assignment, plus execution of compiled search queries.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/relation"
	"github.com/agenthands/lattice/internal/store"
)

// auditDateLayout is the stamp format for createdOn/lastUpdatedOn. The
// version key is derived from the same formatted stamp.
const auditDateLayout = "2006-01-02T15:04:05.000-0700"

// Engine owns all node and relation mutations for one graph namespace.
type Engine struct {
	store     store.GraphStore
	graphID   string
	validator *relation.Validator
}

func New(gs store.GraphStore, graphID string) *Engine {
	e := &Engine{store: gs, graphID: graphID}
	e.validator = relation.NewValidator(e)
	return e
}

// Validator exposes the relation validator, e.g. to register additional
// relation-type constraints.
func (e *Engine) Validator() *relation.Validator { return e.validator }

// GraphID returns the engine's graph namespace.
func (e *Engine) GraphID() string { return e.graphID }

func auditTimestamp() string {
	return time.Now().UTC().Format(auditDateLayout)
}

// versionKeyFromDate derives the concurrency token from a formatted audit
// stamp by re-parsing it to milliseconds. Two writes landing in the same
// millisecond produce the same token; that collision is a known limitation
// kept for compatibility.
func versionKeyFromDate(date string) string {
	ts, err := time.Parse(auditDateLayout, date)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(ts.UnixMilli(), 10)
}

// identifier builds a node identifier from the graph namespace and a
// store-issued sequence id.
func (e *Engine) identifier(seq int64) string {
	return fmt.Sprintf("%s_%d", e.graphID, seq)
}

func (e *Engine) rootIdentifier() string {
	return fmt.Sprintf("%s_%s", e.graphID, model.NodeTypeRoot)
}

// nodeFromHandle builds a Node value object from a stored handle. System
// identity properties become struct fields; everything else, audit stamps
// and version key included, stays in Metadata.
func (e *Engine) nodeFromHandle(h store.NodeHandle, withRelations bool) (*model.Node, error) {
	node := &model.Node{GraphID: e.graphID, Metadata: map[string]any{}}
	if v, ok := h.Property(model.PropUniqueID); ok {
		node.Identifier, _ = v.(string)
	}
	if v, ok := h.Property(model.PropNodeType); ok {
		node.NodeType, _ = v.(string)
	}
	if v, ok := h.Property(model.PropObjectType); ok {
		node.ObjectType, _ = v.(string)
	}
	for key, value := range h.Properties() {
		switch key {
		case model.PropUniqueID, model.PropNodeType, model.PropObjectType:
		default:
			node.Metadata[key] = value
		}
	}
	if withRelations {
		in, out, err := h.Relations()
		if err != nil {
			return nil, err
		}
		node.InRelations = in
		node.OutRelations = out
	}
	return node, nil
}

// GetNode looks up a node by identifier, relations included. It is the
// lookup capability the relation validator and the bus consumer run on.
func (e *Engine) GetNode(ctx context.Context, nodeID string) (*model.Node, error) {
	var node *model.Node
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.NodeByUniqueID(nodeID)
		if err != nil {
			return err
		}
		node, err = e.nodeFromHandle(h, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// GetNodeProperty returns one property value; a missing property yields nil
// without error, a missing node is ErrNotFound.
func (e *Engine) GetNodeProperty(ctx context.Context, nodeID, name string) (any, error) {
	var value any
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.NodeByUniqueID(nodeID)
		if err != nil {
			return err
		}
		value, _ = h.Property(name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}
