package consumer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lattice/internal/engine"
	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/store/memstore"
)

// seedGraph builds a child content node held by two sequences and one
// unrelated parent.
func seedGraph(t *testing.T) (*engine.Engine, *memstore.Store, string, []string) {
	t.Helper()
	ms := memstore.New()
	e := engine.New(ms, "domain")
	ctx := context.Background()

	child, err := e.UpsertNode(ctx, &model.Node{
		NodeType: model.NodeTypeData,
		Metadata: map[string]any{"status": "Live"},
	})
	require.NoError(t, err)

	var parents []string
	for i := 0; i < 2; i++ {
		parent, err := e.UpsertNode(ctx, &model.Node{
			NodeType: model.NodeTypeSet,
			Metadata: map[string]any{"status": "Live"},
		})
		require.NoError(t, err)
		require.NoError(t, e.CreateRelation(ctx, model.Relation{
			RelationType: model.RelationHasSequenceMember,
			StartNodeID:  parent.Identifier,
			EndNodeID:    child.Identifier,
		}))
		parents = append(parents, parent.Identifier)
	}

	other, err := e.UpsertNode(ctx, &model.Node{
		NodeType: model.NodeTypeSet,
		Metadata: map[string]any{"status": "Live"},
	})
	require.NoError(t, err)
	require.NoError(t, e.CreateRelation(ctx, model.Relation{
		RelationType: model.RelationIsParentOf,
		StartNodeID:  other.Identifier,
		EndNodeID:    child.Identifier,
	}))
	parents = append(parents, other.Identifier)

	return e, ms, child.Identifier, parents
}

func TestProcess_RetiredDraftsSequenceParents(t *testing.T) {
	e, ms, childID, parents := seedGraph(t)
	p := NewRetireProcessor(e)

	require.NoError(t, p.Process(context.Background(), childID, "Retired", "Live"))

	for _, parentID := range parents[:2] {
		props, _ := ms.NodeProps(parentID)
		assert.Equal(t, "Draft", props["status"])
	}
	// Parents holding the child through other relation types are untouched.
	props, _ := ms.NodeProps(parents[2])
	assert.Equal(t, "Live", props["status"])
}

func TestProcess_LiveToDraftCascades(t *testing.T) {
	e, ms, childID, parents := seedGraph(t)
	p := NewRetireProcessor(e)

	require.NoError(t, p.Process(context.Background(), childID, "Draft", "Live"))

	props, _ := ms.NodeProps(parents[0])
	assert.Equal(t, "Draft", props["status"])
}

func TestProcess_OtherTransitionsIgnored(t *testing.T) {
	e, ms, childID, parents := seedGraph(t)
	p := NewRetireProcessor(e)

	require.NoError(t, p.Process(context.Background(), childID, "Draft", "Review"))
	require.NoError(t, p.Process(context.Background(), childID, "Live", "Draft"))

	props, _ := ms.NodeProps(parents[0])
	assert.Equal(t, "Live", props["status"])
}

func TestProcessMessage_DecodesLifecyclePayload(t *testing.T) {
	e, ms, childID, parents := seedGraph(t)
	p := NewRetireProcessor(e)

	payload := []byte(`{"edata": {"eks": {"cid": "` + childID + `", "state": "Retired", "prevstate": "Live"}}}`)
	p.ProcessMessage(context.Background(), payload)

	props, _ := ms.NodeProps(parents[0])
	assert.Equal(t, "Draft", props["status"])
}

func TestProcessMessage_PoisonPayloadsSwallowed(t *testing.T) {
	e, _, _, _ := seedGraph(t)
	p := NewRetireProcessor(e)

	// Neither may panic or error upward.
	p.ProcessMessage(context.Background(), []byte(`{not json`))
	p.ProcessMessage(context.Background(), []byte(`{"edata": {"eks": {}}}`))
}
