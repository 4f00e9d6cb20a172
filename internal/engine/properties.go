package engine

import (
	"context"
	"errors"

	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/store"
)

// stampProperties refreshes lastUpdatedOn and the version key after a
// property mutation, returning the new key.
func stampProperties(h store.NodeHandle, date string) string {
	h.SetProperty(model.PropLastUpdatedOn, date)
	vk := versionKeyFromDate(date)
	if vk != "" {
		h.SetProperty(model.PropVersionKey, vk)
	}
	return vk
}

// UpdateProperty sets one property on an existing node; a nil value removes
// it. Returns the node's new version key.
func (e *Engine) UpdateProperty(ctx context.Context, nodeID, name string, value any) (string, error) {
	var versionKey string
	normalized, err := model.NormalizeMetadata(map[string]any{name: value})
	if err != nil {
		return "", err
	}
	err = e.store.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.NodeByUniqueID(nodeID)
		if err != nil {
			return err
		}
		if normalized[name] == nil {
			h.RemoveProperty(name)
		} else {
			h.SetProperty(name, normalized[name])
		}
		versionKey = stampProperties(h, auditTimestamp())
		return nil
	})
	return versionKey, err
}

// UpdateProperties sets or removes the named properties on an existing node.
// An empty map is a no-op: no stamp, no new version key.
func (e *Engine) UpdateProperties(ctx context.Context, nodeID string, metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	normalized, err := model.NormalizeMetadata(metadata)
	if err != nil {
		return "", err
	}
	var versionKey string
	err = e.store.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.NodeByUniqueID(nodeID)
		if err != nil {
			return err
		}
		for key, value := range normalized {
			if value == nil {
				h.RemoveProperty(key)
			} else {
				h.SetProperty(key, value)
			}
		}
		versionKey = stampProperties(h, auditTimestamp())
		return nil
	})
	return versionKey, err
}

// RemoveProperty removes one property; removing a property that does not
// exist is a no-op, not an error.
func (e *Engine) RemoveProperty(ctx context.Context, nodeID, name string) (string, error) {
	return e.RemoveProperties(ctx, nodeID, []string{name})
}

// RemoveProperties removes the named properties and refreshes the stamps.
func (e *Engine) RemoveProperties(ctx context.Context, nodeID string, names []string) (string, error) {
	var versionKey string
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.NodeByUniqueID(nodeID)
		if err != nil {
			return err
		}
		for _, name := range names {
			h.RemoveProperty(name)
		}
		versionKey = stampProperties(h, auditTimestamp())
		return nil
	})
	return versionKey, err
}

// DeleteNode removes the node's incident relations in both directions and
// then the node itself. Irreversible; NotFound propagates.
func (e *Engine) DeleteNode(ctx context.Context, nodeID string) error {
	return e.store.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.NodeByUniqueID(nodeID)
		if err != nil {
			return err
		}
		return h.Delete()
	})
}

// UpsertRootNode idempotently ensures the namespace's distinguished root
// node exists. An existing root's counters are never overwritten.
func (e *Engine) UpsertRootNode(ctx context.Context) (*model.Node, error) {
	var node *model.Node
	rootID := e.rootIdentifier()
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.NodeByUniqueID(rootID)
		if err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
			h, err = tx.CreateNode()
			if err != nil {
				return err
			}
			h.SetProperty(model.PropUniqueID, rootID)
			h.SetProperty(model.PropNodeType, model.NodeTypeRoot)
			h.SetProperty(model.PropCreatedOn, auditTimestamp())
			h.SetProperty("nodesCount", int64(0))
			h.SetProperty("relationsCount", int64(0))
		}
		node, err = e.nodeFromHandle(h, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// CreateRelation validates the relation's endpoint constraints and then
// writes the edge. Validation failures abort before the write transaction
// opens; both endpoint handles are resolved inside it.
func (e *Engine) CreateRelation(ctx context.Context, rel model.Relation) error {
	metadata, err := model.NormalizeMetadata(rel.Metadata)
	if err != nil {
		return err
	}
	if err := e.validator.Validate(ctx, rel.RelationType, rel.StartNodeID, rel.EndNodeID); err != nil {
		return err
	}
	return e.store.WithTx(ctx, func(tx store.Tx) error {
		start, err := tx.NodeByUniqueID(rel.StartNodeID)
		if err != nil {
			return err
		}
		end, err := tx.NodeByUniqueID(rel.EndNodeID)
		if err != nil {
			return err
		}
		return tx.CreateRelation(start, end, rel.RelationType, metadata)
	})
}

// DeleteRelation removes the typed edge between two nodes; a missing edge is
// a no-op.
func (e *Engine) DeleteRelation(ctx context.Context, rel model.Relation) error {
	return e.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.DeleteRelation(rel.StartNodeID, rel.EndNodeID, rel.RelationType)
	})
}
