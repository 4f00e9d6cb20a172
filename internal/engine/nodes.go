package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/store"
)

// validateNodeUpdate enforces type immutability: a stored node's nodeType
// and objectType never change.
func validateNodeUpdate(h store.NodeHandle, node *model.Node) error {
	if stored, ok := h.Property(model.PropNodeType); ok {
		if storedType, _ := stored.(string); storedType != node.NodeType {
			return model.NewTypeMismatch("cannot update a node of type %s to %s", storedType, node.NodeType)
		}
	}
	if stored, ok := h.Property(model.PropObjectType); ok {
		if storedType, _ := stored.(string); storedType != node.ObjectType {
			return model.NewTypeMismatch("cannot update a node of object type %s to %s", storedType, node.ObjectType)
		}
	}
	return nil
}

// validateVersionKey applies the optimistic-concurrency check before any
// property write. Nodes written before versioning carry no stored key and
// pass. In import mode a blank supplied key also passes: bulk replays do not
// carry read tokens.
func validateVersionKey(h store.NodeHandle, node *model.Node, importMode bool) error {
	stored, ok := h.Property(model.PropVersionKey)
	if !ok {
		return nil
	}
	storedKey, _ := stored.(string)
	supplied := node.VersionKey()
	if supplied == "" && importMode {
		return nil
	}
	if supplied != storedKey {
		return model.NewConflict("stale version key for node %s", node.Identifier)
	}
	return nil
}

// setNodeData applies the node's metadata to the handle; a nil value removes
// the property.
func setNodeData(h store.NodeHandle, node *model.Node) {
	for key, value := range node.Metadata {
		if value == nil {
			h.RemoveProperty(key)
		} else {
			h.SetProperty(key, value)
		}
	}
}

// stampAndVersion writes the audit stamp and the fresh version key, and
// reflects the key into the node's metadata for the caller. The lastUpdatedOn
// stamp is suppressed when the caller supplied the internal replay marker.
func stampAndVersion(h store.NodeHandle, node *model.Node, date string) {
	if node.Metadata == nil || node.Metadata[model.PropInternalLastUpdatedOn] == nil {
		h.SetProperty(model.PropLastUpdatedOn, date)
	}
	vk := versionKeyFromDate(date)
	if vk == "" {
		return
	}
	h.SetProperty(model.PropVersionKey, vk)
	if node.Metadata == nil {
		node.Metadata = map[string]any{}
	}
	node.Metadata[model.PropVersionKey] = vk
}

func normalizeNode(node *model.Node) error {
	if node == nil {
		return fmt.Errorf("node is nil")
	}
	if node.NodeType == "" {
		return fmt.Errorf("node type is required")
	}
	metadata, err := model.NormalizeMetadata(node.Metadata)
	if err != nil {
		return err
	}
	node.Metadata = metadata
	return nil
}

// UpsertNode creates the node if its identifier is unknown, otherwise
// updates it after the type-immutability and version-key checks. The
// returned node carries the assigned identifier and the new version key in
// its metadata.
func (e *Engine) UpsertNode(ctx context.Context, node *model.Node) (*model.Node, error) {
	if err := normalizeNode(node); err != nil {
		return nil, err
	}
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		date := auditTimestamp()
		h, err := e.fetchForUpsert(tx, node, date)
		if err != nil {
			return err
		}
		setNodeData(h, node)
		stampAndVersion(h, node, date)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// fetchForUpsert resolves the node's handle, recovering NotFound into the
// create path with system properties and createdOn stamped.
func (e *Engine) fetchForUpsert(tx store.Tx, node *model.Node, date string) (store.NodeHandle, error) {
	if node.Identifier != "" {
		h, err := tx.NodeByUniqueID(node.Identifier)
		if err == nil {
			if err := validateNodeUpdate(h, node); err != nil {
				return nil, err
			}
			if err := validateVersionKey(h, node, false); err != nil {
				return nil, err
			}
			return h, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
	}
	h, err := tx.CreateNode()
	if err != nil {
		return nil, err
	}
	if node.Identifier == "" {
		node.Identifier = e.identifier(h.SequenceID())
	}
	h.SetProperty(model.PropUniqueID, node.Identifier)
	h.SetProperty(model.PropNodeType, node.NodeType)
	h.SetProperty(model.PropCreatedOn, date)
	if node.ObjectType != "" {
		h.SetProperty(model.PropObjectType, node.ObjectType)
	}
	return h, nil
}

// AddNode always creates a new node; it never reads existing state.
func (e *Engine) AddNode(ctx context.Context, node *model.Node) (*model.Node, error) {
	if err := normalizeNode(node); err != nil {
		return nil, err
	}
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		date := auditTimestamp()
		h, err := tx.CreateNode()
		if err != nil {
			return err
		}
		if node.Identifier == "" {
			node.Identifier = e.identifier(h.SequenceID())
		}
		h.SetProperty(model.PropUniqueID, node.Identifier)
		h.SetProperty(model.PropNodeType, node.NodeType)
		if node.ObjectType != "" {
			h.SetProperty(model.PropObjectType, node.ObjectType)
		}
		setNodeData(h, node)
		h.SetProperty(model.PropCreatedOn, date)
		h.SetProperty(model.PropLastUpdatedOn, date)
		vk := versionKeyFromDate(date)
		if vk != "" {
			h.SetProperty(model.PropVersionKey, vk)
			if node.Metadata == nil {
				node.Metadata = map[string]any{}
			}
			node.Metadata[model.PropVersionKey] = vk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// UpdateNode requires the node to exist; NotFound propagates instead of
// creating.
func (e *Engine) UpdateNode(ctx context.Context, node *model.Node) (*model.Node, error) {
	if err := normalizeNode(node); err != nil {
		return nil, err
	}
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		date := auditTimestamp()
		h, err := tx.NodeByUniqueID(node.Identifier)
		if err != nil {
			return err
		}
		if err := validateNodeUpdate(h, node); err != nil {
			return err
		}
		if err := validateVersionKey(h, node, false); err != nil {
			return err
		}
		setNodeData(h, node)
		stampAndVersion(h, node, date)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// ImportOutcome reports per-node results of a bulk import.
type ImportOutcome struct {
	Imported []string
	Failed   map[string]string
}

// ImportNodes applies upsert logic per node inside one store transaction.
// The batch is atomic at the store level, but a version-key conflict on one
// record only fails that record: it is reported in the outcome and the rest
// of the batch proceeds.
func (e *Engine) ImportNodes(ctx context.Context, nodes []*model.Node) (*ImportOutcome, error) {
	outcome := &ImportOutcome{Failed: map[string]string{}}
	for _, node := range nodes {
		if err := normalizeNode(node); err != nil {
			return nil, err
		}
	}
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		date := auditTimestamp()
		for _, node := range nodes {
			var h store.NodeHandle
			var err error
			if node.Identifier != "" {
				h, err = tx.NodeByUniqueID(node.Identifier)
			} else {
				err = model.NewNotFound("blank identifier")
			}
			switch {
			case err == nil:
				if verr := validateVersionKey(h, node, true); verr != nil {
					outcome.Failed[node.Identifier] = verr.Error()
					continue
				}
			case errors.Is(err, model.ErrNotFound):
				h, err = tx.CreateNode()
				if err != nil {
					return err
				}
				h.SetProperty(model.PropCreatedOn, date)
				if node.Identifier == "" {
					node.Identifier = e.identifier(h.SequenceID())
				}
			default:
				return err
			}
			h.SetProperty(model.PropUniqueID, node.Identifier)
			h.SetProperty(model.PropNodeType, node.NodeType)
			if node.ObjectType != "" {
				h.SetProperty(model.PropObjectType, node.ObjectType)
			}
			setNodeData(h, node)
			h.SetProperty(model.PropLastUpdatedOn, date)
			if vk := versionKeyFromDate(date); vk != "" {
				h.SetProperty(model.PropVersionKey, vk)
			}
			outcome.Imported = append(outcome.Imported, node.Identifier)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
