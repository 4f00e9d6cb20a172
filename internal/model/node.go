package model

// System property names stamped on every stored node. The store indexes on
// IL_UNIQUE_ID; the rest are managed by the persistence engine.
const (
	PropUniqueID              = "IL_UNIQUE_ID"
	PropNodeType              = "IL_SYS_NODE_TYPE"
	PropObjectType            = "IL_FUNC_OBJECT_TYPE"
	PropCreatedOn             = "createdOn"
	PropLastUpdatedOn         = "lastUpdatedOn"
	PropVersionKey            = "versionKey"
	PropInternalLastUpdatedOn = "SYS_INTERNAL_LAST_UPDATED_ON"
)

// System node types. NodeType is a closed category; ObjectType carries the
// domain subtype.
const (
	NodeTypeData       = "DATA_NODE"
	NodeTypeRoot       = "ROOT_NODE"
	NodeTypeSet        = "SET"
	NodeTypeTag        = "TAG"
	NodeTypeDefinition = "DEFINITION_NODE"
)

// Relation types known to the platform.
const (
	RelationHasSubSet         = "hasSubset"
	RelationHasSequenceMember = "hasSequenceMember"
	RelationIsParentOf        = "isParentOf"
	RelationAssociatedTo      = "associatedTo"
)

// Node is a typed vertex in the property graph. NodeType and ObjectType are
// immutable once set; updates that change them are rejected.
type Node struct {
	GraphID      string         `json:"graphId,omitempty"`
	Identifier   string         `json:"identifier"`
	NodeType     string         `json:"nodeType"`
	ObjectType   string         `json:"objectType,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	InRelations  []Relation     `json:"inRelations,omitempty"`
	OutRelations []Relation     `json:"outRelations,omitempty"`
}

// VersionKey returns the optimistic-concurrency token carried in the node's
// metadata, or "" if none is set.
func (n *Node) VersionKey() string {
	if n.Metadata == nil {
		return ""
	}
	if vk, ok := n.Metadata[PropVersionKey].(string); ok {
		return vk
	}
	return ""
}

// Relation is a directed, typed edge between two node identifiers. Relations
// are not independently versioned; they change only inside node mutation
// transactions.
type Relation struct {
	RelationType string         `json:"relationType"`
	StartNodeID  string         `json:"startNodeId"`
	EndNodeID    string         `json:"endNodeId"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
