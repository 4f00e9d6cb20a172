// Package search holds the criteria model and its Cypher compiler. A
// SearchCriteria is a predicate tree describing a node query independent of
// the rendered query text; Compile turns it into a parameterized Cypher
// string for the backing store.
package search

// Logical combinators for filter lists. AND is the default; anything other
// than OR normalizes to AND.
const (
	LogicalAnd = "AND"
	LogicalOr  = "OR"
)

// Filter operators. Equality is the default; unknown operators normalize to
// equality.
const (
	OpEqual          = "="
	OpNotEqual       = "!="
	OpGreaterThan    = ">"
	OpGreaterOrEqual = ">="
	OpLessThan       = "<"
	OpLessOrEqual    = "<="
	OpLike           = "like"
	OpIn             = "in"
)

// Sort directions.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// Filter is a single predicate on a metadata property. With OpIn the value is
// bound as a sequence parameter rather than a scalar.
type Filter struct {
	Property string `json:"property"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value"`
}

func (f *Filter) op() string {
	switch f.Operator {
	case OpNotEqual, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual, OpLike, OpIn:
		return f.Operator
	default:
		return OpEqual
	}
}

// MetadataCriterion combines filters and nested sub-criteria with a single
// combinator. Nested criteria render inside their own parentheses.
type MetadataCriterion struct {
	Op       string               `json:"op,omitempty"`
	Filters  []*Filter            `json:"filters,omitempty"`
	Metadata []*MetadataCriterion `json:"metadata,omitempty"`
}

func (mc *MetadataCriterion) op() string {
	if mc.Op == LogicalOr {
		return LogicalOr
	}
	return LogicalAnd
}

// AddFilter appends a filter predicate.
func (mc *MetadataCriterion) AddFilter(f *Filter) {
	mc.Filters = append(mc.Filters, f)
}

// AddMetadata appends a nested sub-criterion.
func (mc *MetadataCriterion) AddMetadata(sub *MetadataCriterion) {
	mc.Metadata = append(mc.Metadata, sub)
}

// NewMetadataCriterion builds a criterion over the given filters.
func NewMetadataCriterion(op string, filters ...*Filter) *MetadataCriterion {
	return &MetadataCriterion{Op: op, Filters: filters}
}

// RelationCriterion matches nodes carrying an outgoing relation of the named
// type to a target node, optionally constrained by the target's object type
// and metadata.
type RelationCriterion struct {
	RelationType string               `json:"relationType"`
	ObjectType   string               `json:"objectType,omitempty"`
	Op           string               `json:"op,omitempty"`
	Metadata     []*MetadataCriterion `json:"metadata,omitempty"`
}

func (rc *RelationCriterion) op() string {
	if rc.Op == LogicalOr {
		return LogicalOr
	}
	return LogicalAnd
}

// AddMetadata appends a criterion evaluated against the related node.
func (rc *RelationCriterion) AddMetadata(sub *MetadataCriterion) {
	rc.Metadata = append(rc.Metadata, sub)
}

// TagCriterion matches nodes carrying any of the given tags. Tag matching is
// a distinct join clause, not part of the metadata tree.
type TagCriterion struct {
	Tags []string `json:"tags"`
}

// Sort is one ordering term. Order defaults to ascending.
type Sort struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"`
}

// SearchCriteria is the root of the predicate tree.
type SearchCriteria struct {
	NodeType      string               `json:"nodeType,omitempty"`
	ObjectType    string               `json:"objectType,omitempty"`
	Op            string               `json:"op,omitempty"`
	Metadata      []*MetadataCriterion `json:"metadata,omitempty"`
	Relations     []*RelationCriterion `json:"relations,omitempty"`
	Tag           *TagCriterion        `json:"tag,omitempty"`
	CountQuery    bool                 `json:"countQuery,omitempty"`
	StartPosition int                  `json:"startPosition,omitempty"`
	ResultSize    int                  `json:"resultSize,omitempty"`
	Fields        []string             `json:"fields,omitempty"`
	SortOrder     []Sort               `json:"sortOrder,omitempty"`
}

func (sc *SearchCriteria) op() string {
	if sc.Op == LogicalOr {
		return LogicalOr
	}
	return LogicalAnd
}

// AddMetadata appends a top-level metadata criterion.
func (sc *SearchCriteria) AddMetadata(mc *MetadataCriterion) {
	sc.Metadata = append(sc.Metadata, mc)
}

// AddRelationCriterion appends a relation traversal criterion.
func (sc *SearchCriteria) AddRelationCriterion(rc *RelationCriterion) {
	sc.Relations = append(sc.Relations, rc)
}

// SortBy appends an ordering term.
func (sc *SearchCriteria) SortBy(field, order string) {
	sc.SortOrder = append(sc.SortOrder, Sort{Field: field, Order: order})
}
