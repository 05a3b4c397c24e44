package ingest

import "time"

// Bundle is one block-scoped unit of ingestion work: a cursor, block
// number/timestamp, and the fixed set of parallel event-category lists
// processed in the order given in category-field comments below. Field
// order here matches dispatch order; do not reorder without also
// updating Pipeline.ProcessBundle.
type Bundle struct {
	Cursor    string
	Number    uint64
	Timestamp time.Time

	// 1. spaces_created + personal_plugins_created + governance_plugins_created
	SpacesCreated            []SpaceCreatedEvent
	PersonalPluginsCreated   []PersonalPluginCreatedEvent
	GovernancePluginsCreated []GovernancePluginCreatedEvent

	// 2. initial_editors_added
	InitialEditorsAdded []InitialEditorsAddedEvent

	// 3. members_added / members_removed
	MembersAdded   []MembershipEvent
	MembersRemoved []MembershipEvent

	// 4. editors_added / editors_removed
	EditorsAdded   []MembershipEvent
	EditorsRemoved []MembershipEvent

	// 5. subspaces_added / subspaces_removed
	SubspacesAdded   []SubspaceEvent
	SubspacesRemoved []SubspaceEvent

	// 6. *_proposal_created
	ProposalsCreated []ProposalCreatedEvent

	// 7. votes_cast
	VotesCast []VoteCastEvent

	// 8. edits_published
	EditsPublished []EditPublishedEvent

	// 9. executed_proposals
	ExecutedProposals []ExecutedProposalEvent
}

// SpaceCreatedEvent announces a new public space and its governance
// plugin addresses.
type SpaceCreatedEvent struct {
	SpaceID             string
	DaoAddress          string
	SpacePluginAddress  string
	Network             string
}

// PersonalPluginCreatedEvent announces a personal-space plugin wiring
// for an already-known space.
type PersonalPluginCreatedEvent struct {
	SpaceID               string
	PersonalPluginAddress string
}

// GovernancePluginCreatedEvent announces a governance plugin wiring
// (voting + member-access) for an already-known space.
type GovernancePluginCreatedEvent struct {
	SpaceID                   string
	VotingPluginAddress       string
	MemberAccessPluginAddress string
}

// InitialEditorsAddedEvent seeds a freshly created space's first editor
// set.
type InitialEditorsAddedEvent struct {
	SpaceID       string
	AddressesHex  []string
}

// MembershipEvent covers members_added/removed and editors_added/removed
// uniformly: one account joining or leaving one space in one role.
type MembershipEvent struct {
	SpaceID     string
	AddressHex  string
}

// SubspaceEvent covers subspaces_added/removed: a PARENT_SPACE edge
// between a parent and child space.
type SubspaceEvent struct {
	ParentSpaceID string
	ChildSpaceID  string
}

// ProposalCreatedEvent covers the *_proposal_created category. Its
// handler records only the proposal's PENDING status attribute; no
// proposal-target relation is written.
type ProposalCreatedEvent struct {
	SpaceID    string
	ProposalID string
	Creator    string
}

// VoteCastEvent carries the numeric on-chain vote enum, translated by
// the handler (2 -> Accept, 3 -> Reject, other -> skip with warning).
type VoteCastEvent struct {
	SpaceID    string
	ProposalID string
	VoterHex   string
	VoteType   uint32
}

// EditPublishedEvent names the plugin address that identifies the owning
// space and the content_uri of the edit payload to fetch.
type EditPublishedEvent struct {
	PluginAddress string
	ContentURI    string
}

// ExecutedProposalEvent marks a proposal's terminal status; per the
// resolved Open Question this never replays the proposal's own ops.
type ExecutedProposalEvent struct {
	SpaceID    string
	ProposalID string
	Accepted   bool
}
