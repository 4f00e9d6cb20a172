package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/search"
	"github.com/agenthands/lattice/internal/store"
)

func TestSearchNodes_MapsNodeRows(t *testing.T) {
	e, ms := newTestEngine()

	var executed string
	var executedParams map[string]any
	ms.QueryHandler = func(query string, params map[string]any) (*store.Result, error) {
		executed = query
		executedParams = params
		return &store.Result{Records: []store.Record{
			{"n": map[string]any{
				model.PropUniqueID:   "domain_7",
				model.PropNodeType:   model.NodeTypeData,
				model.PropObjectType: "Content",
				"status":             "Live",
			}},
		}}, nil
	}

	sc := &search.SearchCriteria{NodeType: model.NodeTypeData}
	nodes, err := e.SearchNodes(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, "MATCH (n:NODE) WHERE ( n.IL_SYS_NODE_TYPE = $p1 ) RETURN n ", executed)
	assert.Equal(t, model.NodeTypeData, executedParams["p1"])

	require.Len(t, nodes, 1)
	assert.Equal(t, "domain_7", nodes[0].Identifier)
	assert.Equal(t, model.NodeTypeData, nodes[0].NodeType)
	assert.Equal(t, "Content", nodes[0].ObjectType)
	assert.Equal(t, "Live", nodes[0].Metadata["status"])
	assert.Equal(t, "domain", nodes[0].GraphID)
}

func TestSearchNodes_ProjectedRows(t *testing.T) {
	e, ms := newTestEngine()
	ms.QueryHandler = func(query string, params map[string]any) (*store.Result, error) {
		return &store.Result{Records: []store.Record{
			{"name": "Unit 1", "status": "Live"},
			{"name": "Unit 2", "status": "Draft"},
		}}, nil
	}

	sc := &search.SearchCriteria{Fields: []string{"name", "status"}}
	nodes, err := e.SearchNodes(context.Background(), sc)
	require.NoError(t, err)

	require.Len(t, nodes, 2)
	assert.Empty(t, nodes[0].Identifier)
	assert.Equal(t, "Unit 1", nodes[0].Metadata["name"])
	assert.Equal(t, "Draft", nodes[1].Metadata["status"])
}

func TestCountNodes(t *testing.T) {
	e, ms := newTestEngine()

	var executed string
	ms.QueryHandler = func(query string, params map[string]any) (*store.Result, error) {
		executed = query
		return &store.Result{Records: []store.Record{{"count(n)": int64(42)}}}, nil
	}

	sc := &search.SearchCriteria{NodeType: model.NodeTypeData}
	count, err := e.CountNodes(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, int64(42), count)
	assert.Contains(t, executed, "RETURN count(n)")
	// The caller's criteria stays a row query.
	assert.False(t, sc.CountQuery)
}

func TestCountNodes_NoRows(t *testing.T) {
	e, ms := newTestEngine()
	ms.QueryHandler = func(query string, params map[string]any) (*store.Result, error) {
		return &store.Result{}, nil
	}

	_, err := e.CountNodes(context.Background(), &search.SearchCriteria{})
	assert.Error(t, err)
}
