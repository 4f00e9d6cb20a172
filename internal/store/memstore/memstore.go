// Package memstore is an in-memory GraphStore used by unit tests and local
// runs without a bolt endpoint. Transactions are serialized under one mutex
// and roll back by snapshot restore, so a failed operation leaves no partial
// writes behind.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/store"
)

type relation struct {
	relType  string
	startSeq int64
	endSeq   int64
	props    map[string]any
}

type Store struct {
	mu    sync.Mutex
	seq   int64
	nodes map[int64]map[string]any
	rels  []relation

	// QueryHandler, when set, serves Execute calls; tests use it to can
	// results for compiled queries. Unset, Execute fails: this store has no
	// query language.
	QueryHandler func(query string, params map[string]any) (*store.Result, error)
}

func New() *Store {
	return &Store{nodes: map[int64]map[string]any{}}
}

func (s *Store) Close(ctx context.Context) error { return nil }

func (s *Store) Execute(ctx context.Context, query string, params map[string]any) (*store.Result, error) {
	s.mu.Lock()
	handler := s.QueryHandler
	s.mu.Unlock()
	if handler == nil {
		return nil, model.NewStoreFailure(fmt.Errorf("memstore cannot execute queries"))
	}
	return handler(query, params)
}

func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapNodes, snapRels, snapSeq := s.snapshot()
	if err := fn(&tx{store: s}); err != nil {
		s.nodes, s.rels, s.seq = snapNodes, snapRels, snapSeq
		var gerr *model.GraphError
		var verr *model.ValidationError
		if errors.As(err, &gerr) || errors.As(err, &verr) {
			return err
		}
		return model.NewStoreFailure(err)
	}
	return nil
}

func (s *Store) snapshot() (map[int64]map[string]any, []relation, int64) {
	nodes := make(map[int64]map[string]any, len(s.nodes))
	for seq, props := range s.nodes {
		cp := make(map[string]any, len(props))
		for k, v := range props {
			cp[k] = v
		}
		nodes[seq] = cp
	}
	rels := make([]relation, len(s.rels))
	copy(rels, s.rels)
	return nodes, rels, s.seq
}

func (s *Store) findByUniqueID(id string) (int64, bool) {
	for seq, props := range s.nodes {
		if props[model.PropUniqueID] == id {
			return seq, true
		}
	}
	return 0, false
}

// NodeProps returns a copy of a stored node's properties, for test
// assertions outside any transaction.
func (s *Store) NodeProps(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.findByUniqueID(id)
	if !ok {
		return nil, false
	}
	props := s.nodes[seq]
	cp := make(map[string]any, len(props))
	for k, v := range props {
		cp[k] = v
	}
	return cp, true
}

// RelationCount reports the number of stored relations, for test assertions.
func (s *Store) RelationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rels)
}

type tx struct {
	store *Store
}

func (t *tx) NodeByUniqueID(id string) (store.NodeHandle, error) {
	seq, ok := t.store.findByUniqueID(id)
	if !ok {
		return nil, model.NewNotFound("node not found: %s", id)
	}
	return &handle{store: t.store, seq: seq}, nil
}

func (t *tx) CreateNode() (store.NodeHandle, error) {
	t.store.seq++
	seq := t.store.seq
	t.store.nodes[seq] = map[string]any{}
	return &handle{store: t.store, seq: seq}, nil
}

func (t *tx) CreateRelation(start, end store.NodeHandle, relationType string, metadata map[string]any) error {
	sh, ok := start.(*handle)
	if !ok {
		return fmt.Errorf("start handle is not a memstore handle")
	}
	eh, ok := end.(*handle)
	if !ok {
		return fmt.Errorf("end handle is not a memstore handle")
	}
	for _, r := range t.store.rels {
		if r.relType == relationType && r.startSeq == sh.seq && r.endSeq == eh.seq {
			return nil
		}
	}
	t.store.rels = append(t.store.rels, relation{
		relType:  relationType,
		startSeq: sh.seq,
		endSeq:   eh.seq,
		props:    metadata,
	})
	return nil
}

func (t *tx) DeleteRelation(startID, endID, relationType string) error {
	startSeq, okS := t.store.findByUniqueID(startID)
	endSeq, okE := t.store.findByUniqueID(endID)
	if !okS || !okE {
		return nil
	}
	kept := t.store.rels[:0]
	for _, r := range t.store.rels {
		if r.relType == relationType && r.startSeq == startSeq && r.endSeq == endSeq {
			continue
		}
		kept = append(kept, r)
	}
	t.store.rels = kept
	return nil
}

type handle struct {
	store *Store
	seq   int64
}

func (h *handle) SequenceID() int64 { return h.seq }

func (h *handle) props() map[string]any { return h.store.nodes[h.seq] }

func (h *handle) Property(name string) (any, bool) {
	v, ok := h.props()[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (h *handle) Properties() map[string]any {
	props := h.props()
	cp := make(map[string]any, len(props))
	for k, v := range props {
		if v != nil {
			cp[k] = v
		}
	}
	return cp
}

func (h *handle) SetProperty(name string, value any) {
	h.props()[name] = value
}

func (h *handle) RemoveProperty(name string) {
	delete(h.props(), name)
}

func (h *handle) uniqueID(seq int64) string {
	if props, ok := h.store.nodes[seq]; ok {
		if id, ok := props[model.PropUniqueID].(string); ok {
			return id
		}
	}
	return ""
}

func (h *handle) Relations() ([]model.Relation, []model.Relation, error) {
	var in, out []model.Relation
	for _, r := range h.store.rels {
		rel := model.Relation{
			RelationType: r.relType,
			StartNodeID:  h.uniqueID(r.startSeq),
			EndNodeID:    h.uniqueID(r.endSeq),
			Metadata:     r.props,
		}
		if r.endSeq == h.seq {
			in = append(in, rel)
		}
		if r.startSeq == h.seq {
			out = append(out, rel)
		}
	}
	return in, out, nil
}

func (h *handle) Delete() error {
	kept := h.store.rels[:0]
	for _, r := range h.store.rels {
		if r.startSeq == h.seq || r.endSeq == h.seq {
			continue
		}
		kept = append(kept, r)
	}
	h.store.rels = kept
	delete(h.store.nodes, h.seq)
	return nil
}
