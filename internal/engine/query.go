package engine

import (
	"context"
	"fmt"

	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/search"
)

// nodeFromProps maps a stored property bag to a Node value object.
func (e *Engine) nodeFromProps(props map[string]any) *model.Node {
	node := &model.Node{GraphID: e.graphID, Metadata: map[string]any{}}
	for key, value := range props {
		switch key {
		case model.PropUniqueID:
			node.Identifier, _ = value.(string)
		case model.PropNodeType:
			node.NodeType, _ = value.(string)
		case model.PropObjectType:
			node.ObjectType, _ = value.(string)
		default:
			node.Metadata[key] = value
		}
	}
	return node
}

// SearchNodes compiles the criteria and executes the rendered query. Full
// node rows map to Node value objects; projected rows carry the requested
// fields in Metadata.
func (e *Engine) SearchNodes(ctx context.Context, sc *search.SearchCriteria) ([]*model.Node, error) {
	query, params := sc.Compile()
	result, err := e.store.Execute(ctx, query, params)
	if err != nil {
		return nil, err
	}
	nodes := make([]*model.Node, 0, len(result.Records))
	for _, rec := range result.Records {
		if props, ok := rec["n"].(map[string]any); ok {
			nodes = append(nodes, e.nodeFromProps(props))
			continue
		}
		projected := &model.Node{GraphID: e.graphID, Metadata: map[string]any{}}
		for key, value := range rec {
			projected.Metadata[key] = value
		}
		nodes = append(nodes, projected)
	}
	return nodes, nil
}

// CountNodes executes the criteria as a count query.
func (e *Engine) CountNodes(ctx context.Context, sc *search.SearchCriteria) (int64, error) {
	counting := *sc
	counting.CountQuery = true
	query, params := counting.Compile()
	result, err := e.store.Execute(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if len(result.Records) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	for _, value := range result.Records[0] {
		switch n := value.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case float64:
			return int64(n), nil
		}
	}
	return 0, fmt.Errorf("count query returned no numeric column")
}
