package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/kgindex/kgnode/internal/metrics"
	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/block"
	"github.com/kgindex/kgnode/kg/space"
	"github.com/kgindex/kgnode/kg/store"
	"github.com/kgindex/kgnode/kg/value"
	"github.com/tidwall/btree"
	"golang.org/x/sync/errgroup"
)

// editVersion is the constant version string used for every mutation
// this pipeline issues, until an external version scheme is wired in.
const editVersion = "0"

// ContentFetcher is the content-addressed store collaborator edit
// application needs: given a stripped content_uri, fetch and optionally
// pin its bytes.
type ContentFetcher interface {
	GetBytes(ctx context.Context, cid string, pin bool) ([]byte, error)
}

// EditDecoder decodes the tagged IPFS metadata envelope and the
// type-specific payloads it tags, all from the same fetched byte slice
// (the envelope and the typed payload share one wire encoding, decoded
// twice against different message shapes, matching the source schema).
type EditDecoder interface {
	DecodeActionType(raw []byte) (ActionType, error)
	DecodeEdit(raw []byte) (Edit, error)
	DecodeImport(raw []byte) (Import, error)
}

// Pipeline dispatches one Bundle at a time through the fixed 9-category
// sequence, issuing versioned mutations through the store layer.
type Pipeline struct {
	spaces    *space.Resolver
	attrs     *store.AttributeStore
	relations *store.RelationStore
	cursor    *CursorStore
	ipfs      ContentFetcher
	decoder   EditDecoder

	// appliedEdits records the ids of edits whose ops this Pipeline has
	// already applied, so a later occurrence of the same edit id skips op
	// application. The edit is still fetched and decoded each time, and
	// the set is held in memory only, so it does not survive a restart;
	// an ordered set keyed by edit id, not a bare map, so a
	// future range-scan over "edits applied since cursor X" is cheap.
	appliedEdits *btree.BTreeG[string]

	metrics *metrics.Metrics
}

// NewPipeline constructs a Pipeline. m may be nil, in which case
// per-category event counts and ingestion lag go unobserved.
func NewPipeline(spaces *space.Resolver, attrs *store.AttributeStore, relations *store.RelationStore, cursor *CursorStore, ipfs ContentFetcher, decoder EditDecoder, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		spaces:       spaces,
		attrs:        attrs,
		relations:    relations,
		cursor:       cursor,
		ipfs:         ipfs,
		decoder:      decoder,
		appliedEdits: btree.NewBTreeG(func(a, b string) bool { return a < b }),
		metrics:      m,
	}
}

// recordEvents increments the per-category event counter by n, a no-op
// when the pipeline was constructed without a Metrics.
func (p *Pipeline) recordEvents(category string, n int) {
	if p.metrics == nil || n == 0 {
		return
	}
	p.metrics.EventsProcessed.WithLabelValues(category).Add(float64(n))
}

func (p *Pipeline) blockMeta(b Bundle) block.Metadata {
	return block.Metadata{Cursor: b.Cursor, Number: b.Number, Timestamp: b.Timestamp}
}

// ProcessBundle applies every event category in b in a fixed order,
// then persists the new cursor. A BackendError/ConsistencyError aborts
// the bundle without advancing the cursor; the caller is expected to
// retry the same bundle on the next attempt.
func (p *Pipeline) ProcessBundle(ctx context.Context, b Bundle) error {
	bm := p.blockMeta(b)

	if err := p.handleSpacesCreated(ctx, bm, b.SpacesCreated); err != nil {
		return err
	}
	p.recordEvents("spaces_created", len(b.SpacesCreated))

	if err := p.handlePersonalPluginsCreated(ctx, bm, b.PersonalPluginsCreated); err != nil {
		return err
	}
	p.recordEvents("personal_plugins_created", len(b.PersonalPluginsCreated))

	if err := p.handleGovernancePluginsCreated(ctx, bm, b.GovernancePluginsCreated); err != nil {
		return err
	}
	p.recordEvents("governance_plugins_created", len(b.GovernancePluginsCreated))

	if err := p.handleInitialEditorsAdded(ctx, bm, b.InitialEditorsAdded); err != nil {
		return err
	}
	p.recordEvents("initial_editors_added", len(b.InitialEditorsAdded))

	if err := p.handleMembership(ctx, bm, b.MembersAdded, schema.SpaceMemberRelation, true); err != nil {
		return err
	}
	p.recordEvents("members_added", len(b.MembersAdded))

	if err := p.handleMembership(ctx, bm, b.MembersRemoved, schema.SpaceMemberRelation, false); err != nil {
		return err
	}
	p.recordEvents("members_removed", len(b.MembersRemoved))

	if err := p.handleMembership(ctx, bm, b.EditorsAdded, schema.SpaceEditorRelation, true); err != nil {
		return err
	}
	p.recordEvents("editors_added", len(b.EditorsAdded))

	if err := p.handleMembership(ctx, bm, b.EditorsRemoved, schema.SpaceEditorRelation, false); err != nil {
		return err
	}
	p.recordEvents("editors_removed", len(b.EditorsRemoved))

	if err := p.handleSubspaces(ctx, bm, b.SubspacesAdded, true); err != nil {
		return err
	}
	p.recordEvents("subspaces_added", len(b.SubspacesAdded))

	if err := p.handleSubspaces(ctx, bm, b.SubspacesRemoved, false); err != nil {
		return err
	}
	p.recordEvents("subspaces_removed", len(b.SubspacesRemoved))

	if err := p.handleProposalsCreated(ctx, bm, b.ProposalsCreated); err != nil {
		return err
	}
	p.recordEvents("proposals_created", len(b.ProposalsCreated))

	if err := p.handleVotesCast(ctx, bm, b.VotesCast); err != nil {
		return err
	}
	p.recordEvents("votes_cast", len(b.VotesCast))

	if err := p.handleEditsPublished(ctx, bm, b.EditsPublished); err != nil {
		return err
	}
	p.recordEvents("edits_published", len(b.EditsPublished))

	if err := p.handleExecutedProposals(ctx, bm, b.ExecutedProposals); err != nil {
		return err
	}
	p.recordEvents("executed_proposals", len(b.ExecutedProposals))

	if p.metrics != nil {
		p.metrics.IngestionLagSeconds.Set(time.Since(b.Timestamp).Seconds())
	}

	return p.cursor.Advance(ctx, bm, b.Cursor, b.Number)
}

func (p *Pipeline) handleSpacesCreated(ctx context.Context, b block.Metadata, events []SpaceCreatedEvent) error {
	for _, e := range events {
		if err := p.spaces.Create(ctx, b, space.Space{
			ID: e.SpaceID, Network: e.Network, Governance: space.Public,
			DaoAddress: e.DaoAddress, SpacePluginAddress: e.SpacePluginAddress,
		}); err != nil {
			return fmt.Errorf("ingest: spaces_created: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) handlePersonalPluginsCreated(ctx context.Context, b block.Metadata, events []PersonalPluginCreatedEvent) error {
	for _, e := range events {
		if err := p.spaces.Create(ctx, b, space.Space{ID: e.SpaceID, Governance: space.Personal, PersonalPluginAddress: e.PersonalPluginAddress}); err != nil {
			return fmt.Errorf("ingest: personal_plugins_created: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) handleGovernancePluginsCreated(ctx context.Context, b block.Metadata, events []GovernancePluginCreatedEvent) error {
	for _, e := range events {
		if err := p.spaces.Create(ctx, b, space.Space{ID: e.SpaceID, VotingPluginAddress: e.VotingPluginAddress, MemberAccessPluginAddress: e.MemberAccessPluginAddress}); err != nil {
			return fmt.Errorf("ingest: governance_plugins_created: %w", err)
		}
	}
	return nil
}

func accountID(addressHex string) string {
	return value.DeriveID("ACCOUNT", value.ChecksumAddress(addressHex))
}

func (p *Pipeline) handleInitialEditorsAdded(ctx context.Context, b block.Metadata, events []InitialEditorsAddedEvent) error {
	for _, e := range events {
		for _, addr := range e.AddressesHex {
			if err := p.upsertMembership(ctx, b, e.SpaceID, addr, schema.SpaceEditorRelation, true); err != nil {
				return fmt.Errorf("ingest: initial_editors_added: %w", err)
			}
		}
	}
	return nil
}

func (p *Pipeline) upsertMembership(ctx context.Context, b block.Metadata, spaceID, addressHex, relationType string, add bool) error {
	acct := accountID(addressHex)
	relID := value.DeriveID(relationType, acct, spaceID)
	if add {
		return p.relations.InsertRelation(ctx, b, spaceID, editVersion, store.RelationRecord{
			ID: relID, From: acct, To: spaceID, RelationType: relationType, Index: "0",
		})
	}
	return p.relations.DeleteRelation(ctx, b, spaceID, editVersion, relID)
}

func (p *Pipeline) handleMembership(ctx context.Context, b block.Metadata, events []MembershipEvent, relationType string, add bool) error {
	for _, e := range events {
		if err := p.upsertMembership(ctx, b, e.SpaceID, e.AddressHex, relationType, add); err != nil {
			return fmt.Errorf("ingest: membership(%s): %w", relationType, err)
		}
	}
	return nil
}

func (p *Pipeline) handleSubspaces(ctx context.Context, b block.Metadata, events []SubspaceEvent, add bool) error {
	for _, e := range events {
		relID := value.DeriveID(schema.ParentSpaceRelation, e.ChildSpaceID, e.ParentSpaceID)
		var err error
		if add {
			err = p.relations.InsertRelation(ctx, b, schema.IndexerSpaceID, editVersion, store.RelationRecord{
				ID: relID, From: e.ChildSpaceID, To: e.ParentSpaceID, RelationType: schema.ParentSpaceRelation, Index: "0",
			})
		} else {
			err = p.relations.DeleteRelation(ctx, b, schema.IndexerSpaceID, editVersion, relID)
		}
		if err != nil {
			return fmt.Errorf("ingest: subspaces: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) handleProposalsCreated(ctx context.Context, b block.Metadata, events []ProposalCreatedEvent) error {
	for _, e := range events {
		statusVal, err := value.New(string(schema.ProposalPending), schema.Text, value.Options{})
		if err != nil {
			return err
		}
		if err := p.attrs.InsertTriple(ctx, b, e.SpaceID, editVersion, e.ProposalID, schema.ProposalStatusAttr, statusVal); err != nil {
			return fmt.Errorf("ingest: proposal_created: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) handleVotesCast(ctx context.Context, b block.Metadata, events []VoteCastEvent) error {
	for _, e := range events {
		var voteType string
		switch e.VoteType {
		case 2:
			voteType = "ACCEPT"
		case 3:
			voteType = "REJECT"
		default:
			log.Warn("ingest: vote_cast: unrecognized vote type, skipping", "proposal", e.ProposalID, "vote_type", e.VoteType)
			continue
		}
		acct := accountID(e.VoterHex)
		relID := value.DeriveID(schema.VoteCastRelation, acct, e.ProposalID)
		if err := p.relations.InsertRelation(ctx, b, e.SpaceID, editVersion, store.RelationRecord{
			ID: relID, From: acct, To: e.ProposalID, RelationType: schema.VoteCastRelation, Index: voteType,
		}); err != nil {
			return fmt.Errorf("ingest: votes_cast: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) handleExecutedProposals(ctx context.Context, b block.Metadata, events []ExecutedProposalEvent) error {
	for _, e := range events {
		status := schema.ProposalRejected
		if e.Accepted {
			status = schema.ProposalAccepted
		}
		statusVal, err := value.New(string(status), schema.Text, value.Options{})
		if err != nil {
			return err
		}
		// status update only: never replays the proposal's own ops, per
		// the resolved executed-proposal Open Question.
		if err := p.attrs.InsertTriple(ctx, b, e.SpaceID, editVersion, e.ProposalID, schema.ProposalStatusAttr, statusVal); err != nil {
			return fmt.Errorf("ingest: executed_proposals: %w", err)
		}
	}
	return nil
}

// resolvedEdit is one Edit paired with the space id it was resolved
// against.
type resolvedEdit struct {
	spaceID string
	edit    Edit
}

func (p *Pipeline) handleEditsPublished(ctx context.Context, b block.Metadata, events []EditPublishedEvent) error {
	for _, e := range events {
		edits, err := p.fetchEdits(ctx, e)
		if err != nil {
			var nf *store.NotFoundWarning
			if errors.As(err, &nf) || errors.Is(err, store.ErrDecode) {
				log.Warn("ingest: edits_published: skipping event", "content_uri", e.ContentURI, "err", err)
				continue
			}
			return fmt.Errorf("ingest: edits_published: %w", err)
		}
		for _, re := range edits {
			if _, already := p.appliedEdits.Get(re.edit.ID); already {
				continue
			}
			if err := p.applyOps(ctx, b, re.spaceID, re.edit.Ops); err != nil {
				return fmt.Errorf("ingest: edits_published: proposal %s: %w", re.edit.ID, err)
			}
			p.appliedEdits.Set(re.edit.ID)
		}
	}
	return nil
}

// fetchEdits resolves the owning space, fetches the IPFS payload, and
// decodes it per ActionType, grounded directly on the fetch_edit
// dispatch: AddEdit yields one Edit, ImportSpace fans out (bounded
// concurrency 10) to each referenced sub-edit, anything else yields
// nothing.
func (p *Pipeline) fetchEdits(ctx context.Context, e EditPublishedEvent) ([]resolvedEdit, error) {
	sp, found, err := p.spaces.BySpacePluginAddress(ctx, e.PluginAddress)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Warn("ingest: edits_published: matching space not found for plugin address", "plugin_address", e.PluginAddress)
		return nil, nil
	}

	cid := strings.TrimPrefix(e.ContentURI, "ipfs://")
	raw, err := p.ipfs.GetBytes(ctx, cid, true)
	if err != nil {
		return nil, &store.NotFoundWarning{Category: "edits_published", Target: e.ContentURI}
	}

	action, err := p.decoder.DecodeActionType(raw)
	if err != nil {
		log.Warn("ingest: edits_published: invalid metadata envelope, skipping", "content_uri", e.ContentURI)
		return nil, nil
	}

	switch action {
	case ActionAddEdit:
		edit, err := p.decoder.DecodeEdit(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrDecode, err)
		}
		return []resolvedEdit{{spaceID: sp.ID, edit: edit}}, nil
	case ActionImportSpace:
		imp, err := p.decoder.DecodeImport(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrDecode, err)
		}
		return p.fetchImportEdits(ctx, sp.ID, imp)
	default:
		return nil, nil
	}
}

func (p *Pipeline) fetchImportEdits(ctx context.Context, spaceID string, imp Import) ([]resolvedEdit, error) {
	results := make([]resolvedEdit, len(imp.EditContentURIs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(10)
	for i, uri := range imp.EditContentURIs {
		i, uri := i, uri
		g.Go(func() error {
			cid := strings.TrimPrefix(uri, "ipfs://")
			raw, err := p.ipfs.GetBytes(gctx, cid, true)
			if err != nil {
				return err
			}
			edit, err := p.decoder.DecodeEdit(raw)
			if err != nil {
				return fmt.Errorf("%w: %v", store.ErrDecode, err)
			}
			results[i] = resolvedEdit{spaceID: spaceID, edit: edit}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// applyOps interprets one edit's op list in order, each as a single
// store operation against space at editVersion. Grounded directly on
// process_ops's (OpType, Op) dispatch table.
func (p *Pipeline) applyOps(ctx context.Context, b block.Metadata, spaceID string, ops []Op) error {
	for _, op := range ops {
		var err error
		switch {
		case op.Type == OpSetTriple && op.Triple != nil && op.Triple.Value != nil:
			var v value.Value
			v, err = value.ParseWire(op.Triple.Value.Raw, op.Triple.Value.Type, value.Options{})
			if err == nil {
				err = p.attrs.InsertTriple(ctx, b, spaceID, editVersion, op.Triple.Entity, op.Triple.Attribute, v)
			}
		case op.Type == OpDeleteTriple && op.Triple != nil:
			err = p.attrs.DeleteTriple(ctx, b, spaceID, editVersion, op.Triple.Entity, op.Triple.Attribute)
		case op.Type == OpCreateRelation && op.Relation != nil:
			err = p.relations.InsertRelation(ctx, b, spaceID, editVersion, store.RelationRecord{
				ID: op.Relation.ID, From: op.Relation.FromEntity, To: op.Relation.ToEntity,
				RelationType: op.Relation.RelationType, Index: op.Relation.Index,
			})
		case op.Type == OpDeleteRelation && op.Relation != nil:
			// retires the relation's own 4-edge bundle atomically (V4),
			// rather than a blanket attribute-entity delete: this
			// store's relation and attribute edges are modeled
			// separately, unlike the single generic Entity::delete the
			// source handler reuses for both.
			err = p.relations.DeleteRelation(ctx, b, spaceID, editVersion, op.Relation.ID)
		default:
			log.Warn("ingest: unhandled op, skipping", "type", op.Type.String())
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
