package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/agenthands/lattice/internal/model"
)

// convertValue flattens driver entity types so records stay store-agnostic:
// callers see property maps, never bolt types.
func convertValue(v any) any {
	switch t := v.(type) {
	case dbtype.Node:
		return t.Props
	case dbtype.Relationship:
		return t.Props
	default:
		return v
	}
}

// Neo4jStore implements GraphStore on a bolt endpoint via the Neo4j driver.
// Works against Neo4j and Memgraph.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jStore(uri, username, password string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Connected to graph store")
	return &Neo4jStore{driver: driver}, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) Execute(ctx context.Context, query string, params map[string]any) (*Result, error) {
	eager, err := neo4j.ExecuteQuery(ctx, s.driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, model.NewStoreFailure(fmt.Errorf("failed to execute query: %w", err))
	}
	result := &Result{Records: make([]Record, 0, len(eager.Records))}
	for _, rec := range eager.Records {
		row := make(Record, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = convertValue(rec.Values[i])
		}
		result.Records = append(result.Records, row)
	}
	return result, nil
}

func (s *Neo4jStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		tx := &neo4jTx{ctx: ctx, tx: mtx}
		if err := fn(tx); err != nil {
			return nil, err
		}
		return nil, tx.flush()
	})
	if err != nil {
		var gerr *model.GraphError
		var verr *model.ValidationError
		if errors.As(err, &gerr) || errors.As(err, &verr) {
			return err
		}
		return model.NewStoreFailure(err)
	}
	return nil
}

type neo4jTx struct {
	ctx     context.Context
	tx      neo4j.ManagedTransaction
	handles []*neo4jNode
}

func (t *neo4jTx) run(query string, params map[string]any) ([]Record, error) {
	res, err := t.tx.Run(t.ctx, query, params)
	if err != nil {
		return nil, err
	}
	raw, err := res.Collect(t.ctx)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(raw))
	for _, rec := range raw {
		row := make(Record, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = convertValue(rec.Values[i])
		}
		records = append(records, row)
	}
	return records, nil
}

func (t *neo4jTx) NodeByUniqueID(id string) (NodeHandle, error) {
	records, err := t.run(nodeByUniqueIDQuery, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, model.NewNotFound("node not found: %s", id)
	}
	rec := records[0]
	props, _ := rec["props"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	h := &neo4jNode{
		tx:        t,
		elementID: rec["eid"].(string),
		seq:       rec["seq"].(int64),
		props:     props,
		pending:   map[string]any{},
	}
	t.handles = append(t.handles, h)
	return h, nil
}

func (t *neo4jTx) CreateNode() (NodeHandle, error) {
	records, err := t.run(createNodeQuery, nil)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("create node returned no record")
	}
	rec := records[0]
	h := &neo4jNode{
		tx:        t,
		elementID: rec["eid"].(string),
		seq:       rec["seq"].(int64),
		props:     map[string]any{},
		pending:   map[string]any{},
	}
	t.handles = append(t.handles, h)
	return h, nil
}

func (t *neo4jTx) CreateRelation(start, end NodeHandle, relationType string, metadata map[string]any) error {
	if err := checkRelationTypeName(relationType); err != nil {
		return err
	}
	sh, ok := start.(*neo4jNode)
	if !ok {
		return fmt.Errorf("start handle is not a bolt node handle")
	}
	eh, ok := end.(*neo4jNode)
	if !ok {
		return fmt.Errorf("end handle is not a bolt node handle")
	}
	props := metadata
	if props == nil {
		props = map[string]any{}
	}
	_, err := t.run(fmt.Sprintf(createRelationQueryTpl, relationType), map[string]any{
		"startEid": sh.elementID,
		"endEid":   eh.elementID,
		"props":    props,
	})
	return err
}

func (t *neo4jTx) DeleteRelation(startID, endID, relationType string) error {
	if err := checkRelationTypeName(relationType); err != nil {
		return err
	}
	_, err := t.run(fmt.Sprintf(deleteRelationQueryTpl, relationType), map[string]any{
		"startId": startID,
		"endId":   endID,
	})
	return err
}

// flush applies each handle's buffered property writes as a single SET. A
// null map entry removes the property on the server side.
func (t *neo4jTx) flush() error {
	for _, h := range t.handles {
		if h.deleted || len(h.pending) == 0 {
			continue
		}
		_, err := t.run(applyPropertiesQuery, map[string]any{"eid": h.elementID, "props": h.pending})
		if err != nil {
			return err
		}
		h.pending = map[string]any{}
	}
	return nil
}

// neo4jNode caches the node's properties at lookup time and buffers writes
// until the transaction flushes.
type neo4jNode struct {
	tx        *neo4jTx
	elementID string
	seq       int64
	props     map[string]any
	pending   map[string]any
	deleted   bool
}

func (h *neo4jNode) SequenceID() int64 { return h.seq }

func (h *neo4jNode) Property(name string) (any, bool) {
	v, ok := h.props[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (h *neo4jNode) Properties() map[string]any {
	cp := make(map[string]any, len(h.props))
	for k, v := range h.props {
		if v != nil {
			cp[k] = v
		}
	}
	return cp
}

func (h *neo4jNode) SetProperty(name string, value any) {
	h.props[name] = value
	h.pending[name] = value
}

func (h *neo4jNode) RemoveProperty(name string) {
	delete(h.props, name)
	h.pending[name] = nil
}

func (h *neo4jNode) Relations() ([]model.Relation, []model.Relation, error) {
	in, err := h.collectRelations(inRelationsQuery)
	if err != nil {
		return nil, nil, err
	}
	out, err := h.collectRelations(outRelationsQuery)
	if err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

func (h *neo4jNode) collectRelations(query string) ([]model.Relation, error) {
	records, err := h.tx.run(query, map[string]any{"eid": h.elementID})
	if err != nil {
		return nil, err
	}
	rels := make([]model.Relation, 0, len(records))
	for _, rec := range records {
		rel := model.Relation{}
		rel.RelationType, _ = rec["relType"].(string)
		rel.StartNodeID, _ = rec["startId"].(string)
		rel.EndNodeID, _ = rec["endId"].(string)
		if props, ok := rec["props"].(map[string]any); ok && len(props) > 0 {
			rel.Metadata = props
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

func (h *neo4jNode) Delete() error {
	_, err := h.tx.run(deleteNodeQuery, map[string]any{"eid": h.elementID})
	if err != nil {
		return err
	}
	h.deleted = true
	h.pending = map[string]any{}
	return nil
}

// checkRelationTypeName guards the one spot where a name is interpolated
// into query text. Relation type names are identifiers, not values.
func checkRelationTypeName(name string) error {
	if name == "" {
		return fmt.Errorf("relation type is empty")
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("invalid relation type name: %s", name)
			}
		default:
			return fmt.Errorf("invalid relation type name: %s", name)
		}
	}
	return nil
}
