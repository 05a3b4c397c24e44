// Package space implements space metadata lookups and the parent/
// subspace hierarchy resolver, including the pluralism read-time
// fallback.
package space

import (
	"context"
	"fmt"

	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/block"
	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/query"
	"github.com/kgindex/kgnode/kg/store"
	"github.com/kgindex/kgnode/kg/value"
)

// GovernanceType is a space's governance kind.
type GovernanceType string

const (
	Public   GovernanceType = "PUBLIC"
	Personal GovernanceType = "PERSONAL"
)

// Space is the tenant record: space entities live under the reserved
// indexer space.
type Space struct {
	ID                        string
	Network                   string
	Governance                GovernanceType
	DaoAddress                string
	SpacePluginAddress        string
	VotingPluginAddress       string
	MemberAccessPluginAddress string
	PersonalPluginAddress     string
}

// Resolver looks up and creates Space entities and resolves the
// parent/subspace hierarchy.
type Resolver struct {
	backend graph.Backend
	attrs   *store.AttributeStore
}

func NewResolver(backend graph.Backend) *Resolver {
	return &Resolver{backend: backend, attrs: store.NewAttributeStore(backend)}
}

// Create writes a new Space entity (or augments an existing one) under
// the reserved indexer space.
func (r *Resolver) Create(ctx context.Context, b block.Metadata, sp Space) error {
	attrs := store.Attributes{}
	put := func(attrID, raw string) {
		if raw == "" {
			return
		}
		v, _ := value.New(raw, schema.Text, value.Options{})
		attrs[attrID] = v
	}
	put(schema.NetworkAttr, sp.Network)
	put(schema.GovernanceTypeAttr, string(sp.Governance))
	put(schema.SpaceDaoAddressAttr, sp.DaoAddress)
	put(schema.SpacePluginAddressAttr, sp.SpacePluginAddress)
	put(schema.VotingPluginAddressAttr, sp.VotingPluginAddress)
	put(schema.MemberAccessPluginAddressAttr, sp.MemberAccessPluginAddress)
	put(schema.PersonalPluginAddressAttr, sp.PersonalPluginAddress)
	return r.attrs.InsertAttributesBulk(ctx, b, schema.IndexerSpaceID, "0", map[string]store.Attributes{sp.ID: attrs})
}

func (r *Resolver) byAttribute(ctx context.Context, attrID, addr string) (Space, bool, error) {
	v, found, err := r.findSpaceIDByAttribute(ctx, attrID, addr)
	if err != nil || !found {
		return Space{}, found, err
	}
	return r.ByID(ctx, v)
}

func (r *Resolver) findSpaceIDByAttribute(ctx context.Context, attrID, raw string) (string, bool, error) {
	valueFilter := query.PropFilter[string]{}.Eq(raw)
	af := query.AttributeFilter{AttributeID: attrID, Value: valueFilter, Version: query.Live()}
	ef := query.EntityFilter{Attributes: []query.AttributeFilter{af}, SpaceID: ptrStr(schema.IndexerSpaceID)}
	qp, err := ef.IntoQueryPart()
	if err != nil {
		return "", false, err
	}
	qp = qp.Return("e.id AS id").LimitN(1)
	stmt, params := qp.Cypher()
	cur, err := r.backend.Execute(ctx, stmt, params)
	if err != nil {
		return "", false, fmt.Errorf("space: lookup: %w", err)
	}
	defer cur.Close(ctx)
	row, ok, err := cur.Next(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	id, _ := row["e.id"].(string)
	if id == "" {
		id, _ = row["id"].(string)
	}
	return id, id != "", nil
}

func ptrStr(s string) *query.PropFilter[string] {
	f := query.PropFilter[string]{}.Eq(s)
	return &f
}

// ByDaoAddress, ByVotingPluginAddress, etc. follow the lookup contract:
// space metadata is read from its own attributes under the indexer
// space.

func (r *Resolver) ByDaoAddress(ctx context.Context, addr string) (Space, bool, error) {
	return r.byAttribute(ctx, schema.SpaceDaoAddressAttr, addr)
}

func (r *Resolver) BySpacePluginAddress(ctx context.Context, addr string) (Space, bool, error) {
	return r.byAttribute(ctx, schema.SpacePluginAddressAttr, addr)
}

func (r *Resolver) ByVotingPluginAddress(ctx context.Context, addr string) (Space, bool, error) {
	return r.byAttribute(ctx, schema.VotingPluginAddressAttr, addr)
}

func (r *Resolver) ByMemberAccessPluginAddress(ctx context.Context, addr string) (Space, bool, error) {
	return r.byAttribute(ctx, schema.MemberAccessPluginAddressAttr, addr)
}

func (r *Resolver) ByPersonalPluginAddress(ctx context.Context, addr string) (Space, bool, error) {
	return r.byAttribute(ctx, schema.PersonalPluginAddressAttr, addr)
}

// ByID fetches a space's metadata by its own entity id.
func (r *Resolver) ByID(ctx context.Context, id string) (Space, bool, error) {
	get := func(attrID string) string {
		v, found, _ := r.attrs.FindTriple(ctx, attrID, id, schema.IndexerSpaceID, nil)
		if !found {
			return ""
		}
		return v.Raw
	}
	network := get(schema.NetworkAttr)
	if network == "" {
		// presence check: a space with no NETWORK attribute recorded
		// at all is treated as not found, distinguishing it from a
		// space whose network happens to be the empty string (which
		// the ingestion pipeline never produces).
		found, err := r.exists(ctx, id)
		if err != nil || !found {
			return Space{}, false, err
		}
	}
	return Space{
		ID:                        id,
		Network:                   network,
		Governance:                GovernanceType(get(schema.GovernanceTypeAttr)),
		DaoAddress:                get(schema.SpaceDaoAddressAttr),
		SpacePluginAddress:        get(schema.SpacePluginAddressAttr),
		VotingPluginAddress:       get(schema.VotingPluginAddressAttr),
		MemberAccessPluginAddress: get(schema.MemberAccessPluginAddressAttr),
		PersonalPluginAddress:     get(schema.PersonalPluginAddressAttr),
	}, true, nil
}

func (r *Resolver) exists(ctx context.Context, id string) (bool, error) {
	cur, err := r.backend.Execute(ctx, "MATCH (e:Entity {id: $id}) RETURN e.id AS id", map[string]any{"id": id})
	if err != nil {
		return false, err
	}
	defer cur.Close(ctx)
	_, ok, err := cur.Next(ctx)
	return ok, err
}
