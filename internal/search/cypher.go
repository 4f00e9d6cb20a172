package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agenthands/lattice/internal/model"
)

// compilation is the per-call state of one Compile invocation. Parameter
// indices increase monotonically and are never reused or reset, so every
// bound value gets a unique placeholder for the lifetime of the call.
type compilation struct {
	sb       strings.Builder
	params   map[string]any
	pIndex   int
	relIndex int
}

// bind allocates the next placeholder for a caller-controlled value and
// returns its query-text form. Values never appear as literal query text.
func (c *compilation) bind(value any) string {
	name := "p" + strconv.Itoa(c.pIndex)
	c.pIndex++
	c.params[name] = value
	return "$" + name
}

func (c *compilation) relAlias() string {
	alias := "m" + strconv.Itoa(c.relIndex)
	c.relIndex++
	return alias
}

// Compile renders the criteria into a Cypher query and its parameter map.
// Clause order is fixed: match, filter block, tag join, relation traversals,
// projection (or count), sort, skip, limit. Compiling the same tree twice
// yields identical text.
func (sc *SearchCriteria) Compile() (string, map[string]any) {
	c := &compilation{params: map[string]any{}, pIndex: 1, relIndex: 1}
	c.sb.WriteString("MATCH (n:NODE) ")

	if sc.NodeType != "" || sc.ObjectType != "" || len(sc.Metadata) > 0 {
		c.sb.WriteString("WHERE ( ")
		emitted := false
		if sc.NodeType != "" {
			c.sb.WriteString("n." + model.PropNodeType + " = " + c.bind(sc.NodeType) + " ")
			emitted = true
		}
		if sc.ObjectType != "" {
			if emitted {
				c.sb.WriteString("AND ")
			}
			c.sb.WriteString("n." + model.PropObjectType + " = " + c.bind(sc.ObjectType) + " ")
			emitted = true
		}
		if len(sc.Metadata) > 0 {
			clauses := make([]string, 0, len(sc.Metadata))
			for _, mc := range sc.Metadata {
				if clause := mc.cypher(c, "n"); clause != "" {
					clauses = append(clauses, clause)
				}
			}
			if len(clauses) > 0 {
				if emitted {
					c.sb.WriteString("AND ")
				}
				c.sb.WriteString(strings.Join(clauses, " "+sc.op()+" "))
				c.sb.WriteString(" ")
			}
		}
		c.sb.WriteString(") ")
	}

	if sc.Tag != nil && len(sc.Tag.Tags) > 0 {
		sc.Tag.cypher(c, "n")
	}
	for _, rc := range sc.Relations {
		rc.cypher(c, "n")
	}

	if sc.CountQuery {
		c.sb.WriteString("RETURN count(n) ")
		return c.sb.String(), c.params
	}

	if len(sc.Fields) == 0 {
		c.sb.WriteString("RETURN n ")
	} else {
		c.sb.WriteString("RETURN ")
		for i, field := range sc.Fields {
			c.sb.WriteString("n." + field + " AS " + field)
			if i < len(sc.Fields)-1 {
				c.sb.WriteString(", ")
			}
		}
		c.sb.WriteString(" ")
	}
	if len(sc.SortOrder) > 0 {
		c.sb.WriteString("ORDER BY ")
		for i, sort := range sc.SortOrder {
			c.sb.WriteString("n." + sort.Field)
			if sort.Order == SortDesc {
				c.sb.WriteString(" DESC")
			}
			if i < len(sc.SortOrder)-1 {
				c.sb.WriteString(",")
			}
			c.sb.WriteString(" ")
		}
	}
	if sc.StartPosition > 0 {
		c.sb.WriteString("SKIP " + c.bind(sc.StartPosition) + " ")
	}
	if sc.ResultSize > 0 {
		c.sb.WriteString("LIMIT " + c.bind(sc.ResultSize) + " ")
	}
	return c.sb.String(), c.params
}

// cypher renders the criterion's predicate over the given node alias,
// returning "" when the criterion is empty.
func (mc *MetadataCriterion) cypher(c *compilation, alias string) string {
	parts := make([]string, 0, len(mc.Filters)+len(mc.Metadata))
	for _, f := range mc.Filters {
		parts = append(parts, f.cypher(c, alias))
	}
	for _, sub := range mc.Metadata {
		if clause := sub.cypher(c, alias); clause != "" {
			parts = append(parts, clause)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " "+mc.op()+" ") + ")"
}

func (f *Filter) cypher(c *compilation, alias string) string {
	prop := alias + "." + f.Property
	switch f.op() {
	case OpIn:
		return prop + " IN " + c.bind(sequence(f.Value))
	case OpLike:
		// Substring match; the pattern is still a bound parameter.
		return prop + " =~ " + c.bind(".*"+fmt.Sprintf("%v", f.Value)+".*")
	default:
		return prop + " " + f.op() + " " + c.bind(f.Value)
	}
}

// sequence coerces an IN operand to a list so the driver binds it as one.
func sequence(value any) []any {
	switch t := value.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, 0, len(t))
		for _, s := range t {
			out = append(out, s)
		}
		return out
	case nil:
		return []any{}
	default:
		return []any{value}
	}
}

// cypher appends the tag join clause. Tag values are bound as one sequence
// parameter.
func (tc *TagCriterion) cypher(c *compilation, alias string) {
	c.sb.WriteString("MATCH (tg:TAG)-[:hasTag]->(" + alias + ") ")
	c.sb.WriteString("WHERE tg.name IN " + c.bind(sequence(tc.Tags)) + " ")
}

// cypher appends one relation traversal clause. Nested metadata criteria are
// compiled against the traversal alias with the same parameter counter.
func (rc *RelationCriterion) cypher(c *compilation, alias string) {
	rel := c.relAlias()
	c.sb.WriteString("MATCH (" + alias + ")-[:" + rc.RelationType + "]->(" + rel + ":NODE) ")
	conditions := make([]string, 0, len(rc.Metadata)+1)
	if rc.ObjectType != "" {
		conditions = append(conditions, rel+"."+model.PropObjectType+" = "+c.bind(rc.ObjectType))
	}
	for _, mc := range rc.Metadata {
		if clause := mc.cypher(c, rel); clause != "" {
			conditions = append(conditions, clause)
		}
	}
	if len(conditions) > 0 {
		c.sb.WriteString("WHERE ( ")
		c.sb.WriteString(strings.Join(conditions, " "+rc.op()+" "))
		c.sb.WriteString(" ) ")
	}
}
