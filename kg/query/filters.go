package query

import "fmt"

// VersionFilter compiles the "as of version" predicate for an edge
// variable. A nil Version means the live view: max_version IS NULL.
// Otherwise: min_version <= v AND (max_version IS NULL OR max_version > v).
type VersionFilter struct {
	Version *string
}

// Live is the VersionFilter selecting the currently-live edge.
func Live() VersionFilter { return VersionFilter{} }

// AsOf returns the VersionFilter selecting the edge live at version v.
func AsOf(v string) VersionFilter { return VersionFilter{Version: &v} }

// IntoQueryPart compiles the filter against edgeVar's min_version/
// max_version properties.
func (f VersionFilter) IntoQueryPart(edgeVar string) QueryPart {
	qp := NewQueryPart()
	if f.Version == nil {
		return qp.Where(fmt.Sprintf("%s.max_version IS NULL", edgeVar))
	}
	paramKey := edgeVar + "_as_of_version"
	return qp.
		Where(fmt.Sprintf("%s.min_version <= $%s", edgeVar, paramKey)).
		Where(fmt.Sprintf("(%s.max_version IS NULL OR %s.max_version > $%s)", edgeVar, edgeVar, paramKey)).
		Param(paramKey, *f.Version)
}

// AttributeFilter asserts that an entity has an attribute with a given
// attribute_id whose value matches a nested PropFilter, optionally
// constrained by space_id and a VersionFilter.
type AttributeFilter struct {
	AttributeID string
	Value       PropFilter[string]
	SpaceID     *PropFilter[string]
	Version     VersionFilter
}

// IntoQueryPart compiles the attribute filter as a MATCH on an attribute
// edge from entityVar, bound to a fresh edge/value variable scoped by
// index so repeated application across several AttributeFilters on the
// same entity does not collide.
func (f AttributeFilter) IntoQueryPart(entityVar string, index int) (QueryPart, error) {
	edgeVar := fmt.Sprintf("attr%d", index)
	qp := NewQueryPart().
		Match(fmt.Sprintf("(%s)-[%s:ATTRIBUTE {attribute_id: $%s_attribute_id}]->(%s_value)", entityVar, edgeVar, edgeVar, edgeVar)).
		Param(edgeVar+"_attribute_id", f.AttributeID)

	valQP := f.Value.IntoQueryPart(edgeVar+"_value", "raw")
	verQP := f.Version.IntoQueryPart(edgeVar)
	merged, err := qp.Merge(valQP)
	if err != nil {
		return QueryPart{}, err
	}
	merged, err = merged.Merge(verQP)
	if err != nil {
		return QueryPart{}, err
	}
	if f.SpaceID != nil {
		spaceQP := f.SpaceID.IntoQueryPart(edgeVar, "space_id")
		merged, err = merged.Merge(spaceQP)
		if err != nil {
			return QueryPart{}, err
		}
	}
	return merged, nil
}

// EdgeFilter filters edges into/out of an entity by label, target id,
// and version.
type EdgeFilter struct {
	Label   string
	ToID    PropFilter[string]
	Version VersionFilter
}

// IntoQueryPart compiles the edge filter as an outbound MATCH from
// entityVar.
func (f EdgeFilter) IntoQueryPart(entityVar string, index int) (QueryPart, error) {
	edgeVar := fmt.Sprintf("edge%d", index)
	qp := NewQueryPart().Match(fmt.Sprintf("(%s)-[%s:%s]->(%s_to:Entity)", entityVar, edgeVar, f.Label, edgeVar))
	idQP := f.ToID.IntoQueryPart(edgeVar+"_to", "id")
	verQP := f.Version.IntoQueryPart(edgeVar)
	merged, err := qp.Merge(idQP)
	if err != nil {
		return QueryPart{}, err
	}
	return merged.Merge(verQP)
}

// EntityRelationFilter constrains an entity by an outbound
// first-class-relation edge: relation-type + to-id + version.
type EntityRelationFilter struct {
	RelationType PropFilter[string]
	ToID         PropFilter[string]
	Version      VersionFilter
}

// EntityFilter is the conjunction of an id filter, zero or more
// AttributeFilters, an optional EntityRelationFilter, and an optional
// space_id constraint. When AttributeFilters are present, the space_id
// constraint applies to each of their attribute edges that carries no
// space constraint of its own.
type EntityFilter struct {
	ID         PropFilter[string]
	Attributes []AttributeFilter
	Relation   *EntityRelationFilter
	SpaceID    *PropFilter[string]
}

// IntoQueryPart compiles the full entity filter against the conventional
// node variable "e".
func (f EntityFilter) IntoQueryPart() (QueryPart, error) {
	const entityVar = "e"
	qp := NewQueryPart().Match(fmt.Sprintf("(%s:Entity)", entityVar))

	var err error
	if !f.ID.IsZero() {
		qp, err = qp.Merge(f.ID.IntoQueryPart(entityVar, "id"))
		if err != nil {
			return QueryPart{}, err
		}
	}
	for i, af := range f.Attributes {
		if af.SpaceID == nil {
			af.SpaceID = f.SpaceID
		}
		part, aerr := af.IntoQueryPart(entityVar, i)
		if aerr != nil {
			return QueryPart{}, aerr
		}
		qp, err = qp.Merge(part)
		if err != nil {
			return QueryPart{}, err
		}
	}
	if f.Relation != nil {
		rel := EdgeFilter{Label: "RELATION", ToID: f.Relation.ToID, Version: f.Relation.Version}
		part, rerr := rel.IntoQueryPart(entityVar, len(f.Attributes))
		if rerr != nil {
			return QueryPart{}, rerr
		}
		typeQP := f.Relation.RelationType.IntoQueryPart(fmt.Sprintf("edge%d", len(f.Attributes)), "relation_type")
		qp, err = qp.Merge(part)
		if err != nil {
			return QueryPart{}, err
		}
		qp, err = qp.Merge(typeQP)
		if err != nil {
			return QueryPart{}, err
		}
	}
	if f.SpaceID != nil && len(f.Attributes) == 0 {
		qp, err = qp.Merge(f.SpaceID.IntoQueryPart(entityVar, "space_id"))
		if err != nil {
			return QueryPart{}, err
		}
	}
	return qp.Return(entityVar), nil
}

// SortDirection is the direction of a FieldOrderBy term.
type SortDirection string

const (
	Asc  SortDirection = "ASC"
	Desc SortDirection = "DESC"
)

// FieldOrderBy orders by an entity or attribute field, with a stable
// tie-break on entity id so pagination (skip/limit) is deterministic
// across calls.
type FieldOrderBy struct {
	Field     string
	Direction SortDirection
}

// IntoQueryPart compiles the ORDER BY clause with the entity-id tie-break
// appended.
func (o FieldOrderBy) IntoQueryPart(entityVar string) QueryPart {
	return NewQueryPart().
		Order(fmt.Sprintf("%s.`%s` %s", entityVar, o.Field, o.Direction)).
		Order(fmt.Sprintf("%s.id ASC", entityVar))
}
