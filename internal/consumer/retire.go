// Package consumer processes content lifecycle events from the message bus.
// The bus client itself is external; this package only decodes event
// payloads and drives the engine's lookup and property-update surface.
package consumer

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/reqctx"
)

const (
	statusRetired = "Retired"
	statusDraft   = "Draft"
	statusLive    = "Live"
)

// NodeUpdater is the slice of the engine the processor needs.
type NodeUpdater interface {
	GetNode(ctx context.Context, id string) (*model.Node, error)
	UpdateProperties(ctx context.Context, nodeID string, metadata map[string]any) (string, error)
}

// RetireProcessor marks the parents of retired content as Draft: when a
// child leaves the published lifecycle, every sequence that contains it has
// to be re-reviewed.
type RetireProcessor struct {
	engine NodeUpdater
}

func NewRetireProcessor(engine NodeUpdater) *RetireProcessor {
	return &RetireProcessor{engine: engine}
}

type lifecycleEvent struct {
	EData struct {
		EKS struct {
			ContentID string `json:"cid"`
			State     string `json:"state"`
			PrevState string `json:"prevstate"`
		} `json:"eks"`
	} `json:"edata"`
}

// ProcessMessage decodes one bus payload and cascades when applicable.
// Decode failures are logged and swallowed so a poison message cannot stall
// the consumer loop.
func (p *RetireProcessor) ProcessMessage(ctx context.Context, payload []byte) {
	var event lifecycleEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("consumer: dropping undecodable message: %v", err)
		return
	}
	eks := event.EData.EKS
	if eks.ContentID == "" || eks.State == "" {
		return
	}
	if err := p.Process(ctx, eks.ContentID, eks.State, eks.PrevState); err != nil {
		log.Printf("consumer: failed to process %s: %v", eks.ContentID, err)
	}
}

// Process applies the cascade for one lifecycle change: on Retired, or on a
// Live→Draft fall-back, every parent holding the content through a
// hasSequenceMember relation is moved to Draft using that parent's current
// version key. Per-parent failures are logged; the rest still proceed.
func (p *RetireProcessor) Process(ctx context.Context, contentID, state, prevState string) error {
	retired := strings.EqualFold(state, statusRetired)
	fellBack := strings.EqualFold(state, statusDraft) && strings.EqualFold(prevState, statusLive)
	if !retired && !fellBack {
		return nil
	}

	ctx = reqctx.WithRequestID(ctx, uuid.New().String())
	node, err := p.engine.GetNode(ctx, contentID)
	if err != nil {
		return err
	}
	for _, rel := range node.InRelations {
		if !strings.EqualFold(rel.RelationType, model.RelationHasSequenceMember) {
			continue
		}
		parentID := rel.StartNodeID
		parent, err := p.engine.GetNode(ctx, parentID)
		if err != nil {
			log.Printf("consumer: parent %s of %s not readable: %v", parentID, contentID, err)
			continue
		}
		_, err = p.engine.UpdateProperties(ctx, parentID, map[string]any{
			"status":             statusDraft,
			model.PropVersionKey: parent.VersionKey(),
		})
		if err != nil {
			log.Printf("consumer: failed to draft parent %s of %s: %v", parentID, contentID, err)
		}
	}
	return nil
}
