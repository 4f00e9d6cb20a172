package search

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Empty(t *testing.T) {
	sc := &SearchCriteria{}
	query, params := sc.Compile()

	assert.Equal(t, "MATCH (n:NODE) RETURN n ", query)
	assert.Empty(t, params)
}

func TestCompile_FullCriteria(t *testing.T) {
	// Typed lookup with an OR filter block, paginated.
	sc := &SearchCriteria{
		NodeType:      "DATA_NODE",
		ObjectType:    "Item",
		StartPosition: 20,
		ResultSize:    10,
	}
	sc.AddMetadata(NewMetadataCriterion(LogicalOr,
		&Filter{Property: "status", Value: "Live"},
		&Filter{Property: "name", Operator: OpLike, Value: "abc"},
	))

	query, params := sc.Compile()

	assert.Equal(t,
		"MATCH (n:NODE) WHERE ( n.IL_SYS_NODE_TYPE = $p1 AND n.IL_FUNC_OBJECT_TYPE = $p2 "+
			"AND (n.status = $p3 OR n.name =~ $p4) ) RETURN n SKIP $p5 LIMIT $p6 ",
		query)
	assert.Equal(t, map[string]any{
		"p1": "DATA_NODE",
		"p2": "Item",
		"p3": "Live",
		"p4": ".*abc.*",
		"p5": 20,
		"p6": 10,
	}, params)
}

func TestCompile_Deterministic(t *testing.T) {
	sc := &SearchCriteria{NodeType: "DATA_NODE"}
	sc.AddMetadata(NewMetadataCriterion(LogicalAnd,
		&Filter{Property: "status", Value: "Live"},
		&Filter{Property: "grade", Operator: OpGreaterThan, Value: 3},
	))
	sc.SortBy("name", SortAsc)

	q1, p1 := sc.Compile()
	q2, p2 := sc.Compile()

	assert.Equal(t, q1, q2)
	assert.Equal(t, p1, p2)
}

func TestCompile_ValuesNeverInQueryText(t *testing.T) {
	// A hostile value must end up in the parameter map, never in the text.
	hostile := `Live" OR 1=1 //`
	sc := &SearchCriteria{NodeType: "DATA_NODE"}
	sc.AddMetadata(NewMetadataCriterion(LogicalAnd,
		&Filter{Property: "status", Value: hostile},
	))

	query, params := sc.Compile()

	assert.NotContains(t, query, hostile)
	assert.Equal(t, hostile, params["p2"])
}

func TestCompile_CountQuery(t *testing.T) {
	sc := &SearchCriteria{NodeType: "DATA_NODE", CountQuery: true, ResultSize: 10}
	query, params := sc.Compile()

	// Count queries carry no projection, sort, or pagination.
	assert.Equal(t, "MATCH (n:NODE) WHERE ( n.IL_SYS_NODE_TYPE = $p1 ) RETURN count(n) ", query)
	assert.Equal(t, map[string]any{"p1": "DATA_NODE"}, params)
}

func TestCompile_FieldsAndSort(t *testing.T) {
	sc := &SearchCriteria{Fields: []string{"name", "status"}}
	sc.SortBy("name", SortAsc)
	sc.SortBy("createdOn", SortDesc)

	query, _ := sc.Compile()

	assert.Equal(t, "MATCH (n:NODE) RETURN n.name AS name, n.status AS status "+
		"ORDER BY n.name, n.createdOn DESC ", query)
}

func TestCompile_TagJoin(t *testing.T) {
	sc := &SearchCriteria{Tag: &TagCriterion{Tags: []string{"science", "class 9"}}}
	query, params := sc.Compile()

	assert.Equal(t, "MATCH (n:NODE) MATCH (tg:TAG)-[:hasTag]->(n) WHERE tg.name IN $p1 RETURN n ", query)
	assert.Equal(t, []any{"science", "class 9"}, params["p1"])
}

func TestCompile_RelationTraversal(t *testing.T) {
	sc := &SearchCriteria{NodeType: "DATA_NODE"}
	sc.AddRelationCriterion(&RelationCriterion{
		RelationType: "hasSequenceMember",
		ObjectType:   "Content",
	})
	sc.AddRelationCriterion(&RelationCriterion{RelationType: "associatedTo"})

	query, params := sc.Compile()

	// Each traversal gets its own alias; a bare traversal emits no WHERE.
	assert.Equal(t,
		"MATCH (n:NODE) WHERE ( n.IL_SYS_NODE_TYPE = $p1 ) "+
			"MATCH (n)-[:hasSequenceMember]->(m1:NODE) WHERE ( m1.IL_FUNC_OBJECT_TYPE = $p2 ) "+
			"MATCH (n)-[:associatedTo]->(m2:NODE) RETURN n ",
		query)
	assert.Equal(t, "Content", params["p2"])
}

func TestCompile_RelationWithNestedMetadata(t *testing.T) {
	rc := &RelationCriterion{RelationType: "hasSubset"}
	rc.AddMetadata(NewMetadataCriterion(LogicalAnd,
		&Filter{Property: "status", Value: "Live"},
	))
	sc := &SearchCriteria{}
	sc.AddRelationCriterion(rc)

	query, params := sc.Compile()

	assert.Equal(t,
		"MATCH (n:NODE) MATCH (n)-[:hasSubset]->(m1:NODE) WHERE ( (m1.status = $p1) ) RETURN n ",
		query)
	assert.Equal(t, "Live", params["p1"])
}

func TestCompile_InOperator(t *testing.T) {
	sc := &SearchCriteria{}
	sc.AddMetadata(NewMetadataCriterion(LogicalAnd,
		&Filter{Property: "status", Operator: OpIn, Value: []string{"Live", "Draft"}},
	))

	query, params := sc.Compile()

	assert.Contains(t, query, "n.status IN $p1")
	assert.Equal(t, []any{"Live", "Draft"}, params["p1"])
}

func TestCompile_InCoercesScalarAndNil(t *testing.T) {
	scalar := &SearchCriteria{}
	scalar.AddMetadata(NewMetadataCriterion(LogicalAnd,
		&Filter{Property: "status", Operator: OpIn, Value: "Live"},
	))
	_, params := scalar.Compile()
	assert.Equal(t, []any{"Live"}, params["p1"])

	empty := &SearchCriteria{}
	empty.AddMetadata(NewMetadataCriterion(LogicalAnd,
		&Filter{Property: "status", Operator: OpIn, Value: nil},
	))
	_, params = empty.Compile()
	assert.Equal(t, []any{}, params["p1"])
}

func TestCompile_UnknownOperatorDefaultsToEqual(t *testing.T) {
	sc := &SearchCriteria{}
	sc.AddMetadata(NewMetadataCriterion(LogicalAnd,
		&Filter{Property: "status", Operator: "matches", Value: "Live"},
	))

	query, _ := sc.Compile()
	assert.Contains(t, query, "n.status = $p1")
}

func TestCompile_EmptyMetadataCriterionSkipped(t *testing.T) {
	sc := &SearchCriteria{NodeType: "DATA_NODE"}
	sc.AddMetadata(&MetadataCriterion{})

	query, _ := sc.Compile()
	assert.Equal(t, "MATCH (n:NODE) WHERE ( n.IL_SYS_NODE_TYPE = $p1 ) RETURN n ", query)
}

func TestCompile_PaginationOnlyWhenPositive(t *testing.T) {
	sc := &SearchCriteria{StartPosition: 0, ResultSize: 0}
	query, _ := sc.Compile()
	assert.NotContains(t, query, "SKIP")
	assert.NotContains(t, query, "LIMIT")
}

func TestCriteria_JSONRoundTrip(t *testing.T) {
	payload := `{
		"nodeType": "DATA_NODE",
		"objectType": "Item",
		"metadata": [{"op": "OR", "filters": [
			{"property": "status", "value": "Live"},
			{"property": "grade", "operator": ">=", "value": 5}
		]}],
		"relations": [{"relationType": "hasSequenceMember", "objectType": "Content"}],
		"sortOrder": [{"field": "name", "order": "DESC"}],
		"startPosition": 20,
		"resultSize": 10
	}`

	var sc SearchCriteria
	require.NoError(t, json.Unmarshal([]byte(payload), &sc))

	query, params := sc.Compile()
	assert.True(t, strings.HasPrefix(query, "MATCH (n:NODE) WHERE ( n.IL_SYS_NODE_TYPE = $p1 "))
	assert.Contains(t, query, "n.grade >= $p4")
	assert.Contains(t, query, "ORDER BY n.name DESC ")
	assert.Equal(t, "Content", params["p5"])
	assert.Equal(t, 20, params["p6"])
	assert.Equal(t, 10, params["p7"])
}
