// Package relation decides whether a proposed relation is structurally legal
// before it is persisted. Endpoint node types are the one invariant the
// backing store does not enforce natively.
package relation

import (
	"context"
	"fmt"
	"sync"

	"github.com/agenthands/lattice/internal/model"
)

// NodeGetter is the lookup capability the validator needs; the persistence
// engine satisfies it.
type NodeGetter interface {
	GetNode(ctx context.Context, id string) (*model.Node, error)
}

// Constraint lists the node types allowed at each endpoint of a relation
// type. An empty list leaves that endpoint unconstrained (the node still has
// to exist).
type Constraint struct {
	AllowedStartTypes []string
	AllowedEndTypes   []string
}

// Validator checks relations against a table of per-type constraints. New
// relation types register a table entry; dispatch never changes.
type Validator struct {
	nodes NodeGetter

	mu          sync.RWMutex
	constraints map[string]Constraint
}

func NewValidator(nodes NodeGetter) *Validator {
	v := &Validator{nodes: nodes, constraints: map[string]Constraint{}}
	v.Register(model.RelationHasSubSet, Constraint{
		AllowedStartTypes: []string{model.NodeTypeSet},
		AllowedEndTypes:   []string{model.NodeTypeSet},
	})
	v.Register(model.RelationHasSequenceMember, Constraint{
		AllowedStartTypes: []string{model.NodeTypeSet, model.NodeTypeData},
		AllowedEndTypes:   []string{model.NodeTypeData},
	})
	v.Register(model.RelationIsParentOf, Constraint{})
	v.Register(model.RelationAssociatedTo, Constraint{})
	return v
}

// Register adds or replaces the constraint for a relation type.
func (v *Validator) Register(relationType string, c Constraint) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.constraints[relationType] = c
}

type endpointResult struct {
	role     string
	messages []string
}

// Validate runs both endpoint checks concurrently and aggregates their
// violation messages by endpoint role. Neither lookup short-circuits the
// other; the aggregation waits for both regardless of which fails first.
// A nil return means the relation is structurally legal.
func (v *Validator) Validate(ctx context.Context, relationType, startNodeID, endNodeID string) error {
	v.mu.RLock()
	constraint, ok := v.constraints[relationType]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("relation type %q is not registered", relationType)
	}

	results := make(chan endpointResult, 2)
	go func() {
		results <- endpointResult{model.EndpointStart, v.checkEndpoint(ctx, startNodeID, constraint.AllowedStartTypes)}
	}()
	go func() {
		results <- endpointResult{model.EndpointEnd, v.checkEndpoint(ctx, endNodeID, constraint.AllowedEndTypes)}
	}()

	messages := map[string][]string{}
	for i := 0; i < 2; i++ {
		res := <-results
		if len(res.messages) > 0 {
			messages[res.role] = res.messages
		}
	}
	if len(messages) > 0 {
		return &model.ValidationError{RelationType: relationType, Messages: messages}
	}
	return nil
}

func (v *Validator) checkEndpoint(ctx context.Context, nodeID string, allowed []string) []string {
	node, err := v.nodes.GetNode(ctx, nodeID)
	if err != nil {
		return []string{fmt.Sprintf("unable to resolve node %s: %v", nodeID, err)}
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, t := range allowed {
		if node.NodeType == t {
			return nil
		}
	}
	return []string{fmt.Sprintf("node %s has type %s, expected one of %v", nodeID, node.NodeType, allowed)}
}
