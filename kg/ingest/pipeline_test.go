package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/graph/graphtest"
	"github.com/kgindex/kgnode/kg/space"
	"github.com/kgindex/kgnode/kg/store"
	"github.com/stretchr/testify/require"
)

// fakeContentFetcher serves canned bytes by CID, recording how many
// times each CID was fetched so replay-idempotence tests can assert on
// fetch counts.
type fakeContentFetcher struct {
	byCID   map[string][]byte
	fetches map[string]int
}

func newFakeContentFetcher() *fakeContentFetcher {
	return &fakeContentFetcher{byCID: map[string][]byte{}, fetches: map[string]int{}}
}

func (f *fakeContentFetcher) put(cid string, raw []byte) { f.byCID[cid] = raw }

func (f *fakeContentFetcher) GetBytes(ctx context.Context, cid string, pin bool) ([]byte, error) {
	f.fetches[cid]++
	raw, ok := f.byCID[cid]
	if !ok {
		return nil, fmt.Errorf("fake ipfs: no content for %s", cid)
	}
	return raw, nil
}

// fakeDecoder maps exact raw payloads (as produced by fakeContentFetcher)
// to canned decode results, standing in for kg/wire's real protobuf
// decode so these tests exercise Pipeline's dispatch logic in isolation.
type fakeDecoder struct {
	actions map[string]ActionType
	edits   map[string]Edit
	imports map[string]Import
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{actions: map[string]ActionType{}, edits: map[string]Edit{}, imports: map[string]Import{}}
}

func (d *fakeDecoder) DecodeActionType(raw []byte) (ActionType, error) {
	a, ok := d.actions[string(raw)]
	if !ok {
		return ActionUnknown, fmt.Errorf("fake decoder: no action type for payload")
	}
	return a, nil
}

func (d *fakeDecoder) DecodeEdit(raw []byte) (Edit, error) {
	e, ok := d.edits[string(raw)]
	if !ok {
		return Edit{}, fmt.Errorf("fake decoder: no edit for payload")
	}
	return e, nil
}

func (d *fakeDecoder) DecodeImport(raw []byte) (Import, error) {
	i, ok := d.imports[string(raw)]
	if !ok {
		return Import{}, fmt.Errorf("fake decoder: no import for payload")
	}
	return i, nil
}

func testBundle(number uint64, cursor string) Bundle {
	return Bundle{Cursor: cursor, Number: number, Timestamp: time.Now()}
}

func TestProcessBundleSpacesCreatedAndMembership(t *testing.T) {
	fake := graphtest.New()
	spaces := space.NewResolver(fake)
	attrs := store.NewAttributeStore(fake)
	relations := store.NewRelationStore(fake)
	cursorStore := NewCursorStore(attrs)
	p := NewPipeline(spaces, attrs, relations, cursorStore, newFakeContentFetcher(), newFakeDecoder(), nil)

	b := testBundle(1, "c1")
	b.SpacesCreated = []SpaceCreatedEvent{{SpaceID: "space1", Network: "mainnet", DaoAddress: "0xDAO"}}
	b.InitialEditorsAdded = []InitialEditorsAddedEvent{{SpaceID: "space1", AddressesHex: []string{"0xAAA"}}}
	b.MembersAdded = []MembershipEvent{{SpaceID: "space1", AddressHex: "0xBBB"}}

	require.NoError(t, p.ProcessBundle(context.Background(), b))
	require.NotEmpty(t, fake.Runs)
}

func TestProcessBundleVotesCastSkipsUnrecognizedType(t *testing.T) {
	fake := graphtest.New()
	spaces := space.NewResolver(fake)
	attrs := store.NewAttributeStore(fake)
	relations := store.NewRelationStore(fake)
	cursorStore := NewCursorStore(attrs)
	p := NewPipeline(spaces, attrs, relations, cursorStore, newFakeContentFetcher(), newFakeDecoder(), nil)

	b := testBundle(1, "c1")
	b.VotesCast = []VoteCastEvent{{SpaceID: "space1", ProposalID: "prop1", VoterHex: "0xAAA", VoteType: 9}}

	require.NoError(t, p.ProcessBundle(context.Background(), b))
	// no vote relation written for an unrecognized vote type: the only
	// Run calls left are the cursor/block-number writes from Advance.
	require.Len(t, fake.Runs, 2)
}

func TestProcessBundleExecutedProposalSetsStatusOnly(t *testing.T) {
	fake := graphtest.New()
	spaces := space.NewResolver(fake)
	attrs := store.NewAttributeStore(fake)
	relations := store.NewRelationStore(fake)
	cursorStore := NewCursorStore(attrs)
	p := NewPipeline(spaces, attrs, relations, cursorStore, newFakeContentFetcher(), newFakeDecoder(), nil)

	b := testBundle(1, "c1")
	b.ExecutedProposals = []ExecutedProposalEvent{{SpaceID: "space1", ProposalID: "prop1", Accepted: true}}

	require.NoError(t, p.ProcessBundle(context.Background(), b))
	// one status write, then the two cursor/block-number writes from
	// Advance.
	require.Len(t, fake.Runs, 3)
	require.Contains(t, fake.Runs[0].Statement, "ATTRIBUTE")
	require.Equal(t, string(schema.ProposalAccepted), fake.Runs[0].Params["raw"])
}

func TestProcessBundleEditsPublishedAddEdit(t *testing.T) {
	fake := graphtest.New()
	spaces := space.NewResolver(fake)
	attrs := store.NewAttributeStore(fake)
	relations := store.NewRelationStore(fake)
	cursorStore := NewCursorStore(attrs)
	fetcher := newFakeContentFetcher()
	decoder := newFakeDecoder()
	p := NewPipeline(spaces, attrs, relations, cursorStore, fetcher, decoder, nil)

	const payload = "edit-payload-1"
	fetcher.put("cid1", []byte(payload))
	decoder.actions[payload] = ActionAddEdit
	decoder.edits[payload] = Edit{
		ID:   "edit1",
		Name: "first edit",
		Ops: []Op{{
			Type:   OpSetTriple,
			Triple: &TripleOp{Entity: "entity1", Attribute: "attr1", Value: &WireValue{Type: "TEXT", Raw: "hello"}},
		}},
	}

	// BySpacePluginAddress resolves via findSpaceIDByAttribute (one row,
	// the matching space id) then ByID, whose first attribute read
	// (NETWORK) must come back non-empty so it skips the exists()
	// not-found fallback; the rest of ByID's attribute reads default to
	// the fake's empty cursor, which FindTriple treats as not-found.
	fake.SeedRows(graphtestRow("id", "space1"))
	fake.SeedRows(graphtestRow("raw", "mainnet", "value_type", "TEXT"))

	b := testBundle(1, "c1")
	b.EditsPublished = []EditPublishedEvent{{PluginAddress: "0xPLUGIN", ContentURI: "ipfs://cid1"}}

	require.NoError(t, p.ProcessBundle(context.Background(), b))
	require.Equal(t, 1, fetcher.fetches["cid1"])
	require.NotEmpty(t, fake.Runs)
}

func TestProcessBundleEditsPublishedReplayIsIdempotent(t *testing.T) {
	fake := graphtest.New()
	spaces := space.NewResolver(fake)
	attrs := store.NewAttributeStore(fake)
	relations := store.NewRelationStore(fake)
	cursorStore := NewCursorStore(attrs)
	fetcher := newFakeContentFetcher()
	decoder := newFakeDecoder()
	p := NewPipeline(spaces, attrs, relations, cursorStore, fetcher, decoder, nil)

	const payload = "edit-payload-replay"
	fetcher.put("cidr", []byte(payload))
	decoder.actions[payload] = ActionAddEdit
	decoder.edits[payload] = Edit{
		ID: "edit-replay",
		Ops: []Op{{
			Type:   OpSetTriple,
			Triple: &TripleOp{Entity: "entity1", Attribute: "attr1", Value: &WireValue{Type: "TEXT", Raw: "v1"}},
		}},
	}

	// each occurrence re-resolves the owning space independently (dedup
	// only skips applying the edit's ops, not the space lookup/fetch), so
	// the rows are seeded once per EditPublishedEvent below: the space id
	// lookup, ByID's NETWORK read, and empty results for ByID's six other
	// attribute reads. The first occurrence also gets an empty result for
	// its SetTriple's live-value lookup; the second never reaches one.
	for i := 0; i < 2; i++ {
		fake.SeedRows(graphtestRow("id", "space1"))
		fake.SeedRows(graphtestRow("raw", "mainnet", "value_type", "TEXT"))
		for j := 0; j < 6; j++ {
			fake.SeedRows()
		}
		if i == 0 {
			fake.SeedRows()
		}
	}

	b := testBundle(1, "c1")
	b.EditsPublished = []EditPublishedEvent{
		{PluginAddress: "0xPLUGIN", ContentURI: "ipfs://cidr"},
		{PluginAddress: "0xPLUGIN", ContentURI: "ipfs://cidr"}, // same edit referenced twice in one bundle
	}

	require.NoError(t, p.ProcessBundle(context.Background(), b))
	// the second occurrence resolves the same edit id and is skipped by
	// appliedEdits before any op is applied a second time.
	require.Equal(t, 2, fetcher.fetches["cidr"]) // fetched twice, applied once
	// one write for the single SetTriple, two for the cursor advance
	require.Len(t, fake.Runs, 3)
}

func graphtestRow(kv ...string) map[string]any {
	row := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		row[kv[i]] = kv[i+1]
	}
	return row
}
