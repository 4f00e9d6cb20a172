package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lattice/internal/engine"
	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/reqctx"
	"github.com/agenthands/lattice/internal/store"
	"github.com/agenthands/lattice/internal/store/memstore"
)

func newTestServer() (*gin.Engine, *memstore.Store) {
	gin.SetMode(gin.TestMode)
	ms := memstore.New()
	srv := &Server{Engine: engine.New(ms, "domain")}
	return srv.SetupRouter(), ms
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpsertAndGetNode(t *testing.T) {
	r, _ := newTestServer()

	w := doJSON(t, r, http.MethodPost, "/v1/graph/nodes", map[string]any{
		"nodeType": model.NodeTypeData,
		"metadata": map[string]any{"name": "Unit 1"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Node model.Node `json:"node"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "domain_1", created.Node.Identifier)
	assert.NotEmpty(t, created.Node.VersionKey())

	w = doJSON(t, r, http.MethodGet, "/v1/graph/nodes/domain_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unit 1")
}

func TestGetNode_Missing(t *testing.T) {
	r, _ := newTestServer()
	w := doJSON(t, r, http.MethodGet, "/v1/graph/nodes/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpsertNode_StaleKeyIsConflict(t *testing.T) {
	r, _ := newTestServer()

	w := doJSON(t, r, http.MethodPost, "/v1/graph/nodes", map[string]any{
		"nodeType": model.NodeTypeData,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/graph/nodes", map[string]any{
		"identifier": "domain_1",
		"nodeType":   model.NodeTypeData,
		"metadata":   map[string]any{model.PropVersionKey: "12345"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateNode_TypeChangeIsBadRequest(t *testing.T) {
	r, _ := newTestServer()

	w := doJSON(t, r, http.MethodPost, "/v1/graph/nodes", map[string]any{
		"nodeType": model.NodeTypeData,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/v1/graph/nodes/domain_1", map[string]any{
		"nodeType": model.NodeTypeSet,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRelation_ValidationIsBadRequest(t *testing.T) {
	r, ms := newTestServer()

	for _, nodeType := range []string{model.NodeTypeSet, model.NodeTypeData} {
		w := doJSON(t, r, http.MethodPost, "/v1/graph/nodes", map[string]any{"nodeType": nodeType})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/v1/graph/relations", map[string]any{
		"relationType": model.RelationHasSubSet,
		"startNodeId":  "domain_1",
		"endNodeId":    "domain_2",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "end")
	assert.Equal(t, 0, ms.RelationCount())

	w = doJSON(t, r, http.MethodPost, "/v1/graph/relations", map[string]any{
		"relationType": model.RelationHasSequenceMember,
		"startNodeId":  "domain_1",
		"endNodeId":    "domain_2",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ms.RelationCount())
}

func TestSearchAndCount(t *testing.T) {
	r, ms := newTestServer()
	ms.QueryHandler = func(query string, params map[string]any) (*store.Result, error) {
		if strings.Contains(query, "count(n)") {
			return &store.Result{Records: []store.Record{{"count(n)": int64(3)}}}, nil
		}
		return &store.Result{Records: []store.Record{
			{"n": map[string]any{model.PropUniqueID: "domain_9", model.PropNodeType: model.NodeTypeData}},
		}}, nil
	}

	w := doJSON(t, r, http.MethodPost, "/v1/graph/search", map[string]any{
		"nodeType": model.NodeTypeData,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "domain_9")

	w = doJSON(t, r, http.MethodPost, "/v1/graph/count", map[string]any{
		"nodeType": model.NodeTypeData,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":3`)
}

func TestImportNodes(t *testing.T) {
	r, _ := newTestServer()

	w := doJSON(t, r, http.MethodPost, "/v1/graph/nodes/import", map[string]any{
		"nodes": []map[string]any{
			{"nodeType": model.NodeTypeData, "metadata": map[string]any{"name": "a"}},
			{"nodeType": model.NodeTypeData, "metadata": map[string]any{"name": "b"}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Imported []string          `json:"imported"`
		Failed   map[string]string `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Imported, 2)
	assert.Empty(t, resp.Failed)
}

func TestRequestContextMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestContext())

	var gotRequestID, gotConsumer, gotChannel string
	r.GET("/probe", func(c *gin.Context) {
		ctx := c.Request.Context()
		gotRequestID = reqctx.RequestID(ctx)
		gotConsumer = reqctx.ConsumerID(ctx)
		gotChannel = reqctx.ChannelID(ctx)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Consumer-ID", "consumer-1")
	req.Header.Set("X-Channel-ID", "channel-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "consumer-1", gotConsumer)
	assert.Equal(t, "channel-1", gotChannel)
}
