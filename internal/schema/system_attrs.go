package schema

// System-reserved attribute and relation-type IDs. These are themselves
// entity IDs in the indexer space, enumerated here the way a storage
// engine enumerates its table names: as one closed set of named
// constants rather than scattered string literals.
const (
	CreatedAtAttr      = "CREATED_AT_ATTRIBUTE_ID"
	CreatedAtBlockAttr = "CREATED_AT_BLOCK_ATTRIBUTE_ID"
	UpdatedAtAttr      = "UPDATED_AT_ATTRIBUTE_ID"
	UpdatedAtBlockAttr = "UPDATED_AT_BLOCK_ATTRIBUTE_ID"

	NameAttr        = "NAME_ATTRIBUTE_ID"
	DescriptionAttr = "DESCRIPTION_ATTRIBUTE_ID"
	CoverAttr       = "COVER_ATTRIBUTE_ID"

	EditIndexAttr = "EDIT_INDEX_ATTRIBUTE_ID"

	SpaceDaoAddressAttr           = "SPACE_DAO_ADDRESS_ATTRIBUTE_ID"
	SpacePluginAddressAttr        = "SPACE_PLUGIN_ADDRESS_ATTRIBUTE_ID"
	VotingPluginAddressAttr       = "VOTING_PLUGIN_ADDRESS_ATTRIBUTE_ID"
	MemberAccessPluginAddressAttr = "MEMBER_ACCESS_PLUGIN_ADDRESS_ATTRIBUTE_ID"
	PersonalPluginAddressAttr     = "PERSONAL_PLUGIN_ADDRESS_ATTRIBUTE_ID"
	GovernanceTypeAttr            = "GOVERNANCE_TYPE_ATTRIBUTE_ID"
	NetworkAttr                   = "NETWORK_ATTRIBUTE_ID"

	ProposalStatusAttr = "PROPOSAL_STATUS_ATTRIBUTE_ID"

	CursorAttr       = "CURSOR_ATTRIBUTE_ID"
	BlockNumberAttr  = "BLOCK_NUMBER_ATTRIBUTE_ID"
	CursorEntityID   = "INDEXER_CURSOR_ENTITY_ID"
	IndexerSpaceID   = "00000000000000000000000000"
)

// Relation types used by the ingestion pipeline.
const (
	ParentSpaceRelation   = "PARENT_SPACE_RELATION_TYPE_ID"
	SpaceEditorRelation   = "SPACE_EDITOR_RELATION_TYPE_ID"
	SpaceMemberRelation   = "SPACE_MEMBER_RELATION_TYPE_ID"
	VoteCastRelation      = "VOTE_CAST_RELATION_TYPE_ID"
	TypesRelation         = "TYPES_ATTRIBUTE_RELATION_TYPE_ID"
	ProposalTargetRelation = "PROPOSAL_TARGET_RELATION_TYPE_ID"
)

// ProposalStatus enumerates the terminal states a Proposal entity's
// status attribute may hold after execution. Deliberately not an
// exhaustive governance model: execution is tracked as a status update
// only, with no separate execution-payload entity.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalAccepted ProposalStatus = "ACCEPTED"
	ProposalRejected ProposalStatus = "REJECTED"
)
