package wire

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/kgindex/kgnode/kg/ingest"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendString(b []byte, tag protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, tag, protowire.BytesType)
	return protowire.AppendBytes(b, []byte(s))
}

func appendVarint(b []byte, tag protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, tag, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, tag protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, tag, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func encodeValue(vt uint64, raw string) []byte {
	var b []byte
	b = appendVarint(b, valueTypeTag, vt)
	b = appendString(b, valueValueTag, raw)
	return b
}

func encodeTriple(entity, attribute string, value []byte) []byte {
	var b []byte
	b = appendString(b, tripleEntityTag, entity)
	b = appendString(b, tripleAttributeTag, attribute)
	if value != nil {
		b = appendMessage(b, tripleValueTag, value)
	}
	return b
}

func encodeSetTripleOp(triple []byte) []byte {
	var b []byte
	b = appendVarint(b, opTypeTag, onchainOpSetTriple)
	b = appendMessage(b, opTripleTag, triple)
	return b
}

func encodeRelation(id, typ, from, to, idx string) []byte {
	var b []byte
	b = appendString(b, relationIDTag, id)
	b = appendString(b, relationTypeTag, typ)
	b = appendString(b, relationFromTag, from)
	b = appendString(b, relationToTag, to)
	b = appendString(b, relationIndexTag, idx)
	return b
}

func encodeCreateRelationOp(rel []byte) []byte {
	var b []byte
	b = appendVarint(b, opTypeTag, onchainOpCreateRelation)
	b = appendMessage(b, opRelationTag, rel)
	return b
}

func TestDecodeActionType(t *testing.T) {
	var b []byte
	b = appendVarint(b, metaActionTypeTag, onchainActionAddEdit)
	d := NewDecoder()
	got, err := d.DecodeActionType(b)
	require.NoError(t, err)
	require.Equal(t, ingest.ActionAddEdit, got)
}

func TestDecodeEditWithSetTripleAndCreateRelation(t *testing.T) {
	valueMsg := encodeValue(2, "42") // NUMBER
	tripleMsg := encodeTriple("entity1", "attr1", valueMsg)
	setOp := encodeSetTripleOp(tripleMsg)

	relMsg := encodeRelation("rel1", "knows", "alice", "bob", "0")
	createOp := encodeCreateRelationOp(relMsg)

	var b []byte
	b = appendString(b, editIDTag, "edit1")
	b = appendString(b, editNameTag, "My Edit")
	b = appendMessage(b, editOpsTag, setOp)
	b = appendMessage(b, editOpsTag, createOp)
	b = appendString(b, editAuthorsTag, "author1")

	d := NewDecoder()
	edit, err := d.DecodeEdit(b)
	require.NoError(t, err)

	want := ingest.Edit{
		ID:      "edit1",
		Name:    "My Edit",
		Authors: []string{"author1"},
		Ops: []ingest.Op{
			{
				Type:   ingest.OpSetTriple,
				Triple: &ingest.TripleOp{Entity: "entity1", Attribute: "attr1", Value: &ingest.WireValue{Type: "NUMBER", Raw: "42"}},
			},
			{
				Type:     ingest.OpCreateRelation,
				Relation: &ingest.RelationOp{ID: "rel1", RelationType: "knows", FromEntity: "alice", ToEntity: "bob", Index: "0"},
			},
		},
	}
	// a decoded Edit carries nested pointers, so a plain require.Equal
	// failure message is hard to read; dump both sides on mismatch.
	require.Equalf(t, want, edit, "decoded edit mismatch:\nwant: %s\ngot:  %s", spew.Sdump(want), spew.Sdump(edit))
}

func TestDecodeImport(t *testing.T) {
	var b []byte
	b = appendString(b, importEditsTag, "ipfs://cid1")
	b = appendString(b, importEditsTag, "ipfs://cid2")

	d := NewDecoder()
	imp, err := d.DecodeImport(b)
	require.NoError(t, err)
	require.Equal(t, []string{"ipfs://cid1", "ipfs://cid2"}, imp.EditContentURIs)
}

func TestDecodeActionTypeUnknownSkipped(t *testing.T) {
	var b []byte
	b = appendVarint(b, metaActionTypeTag, 7) // AddMember, not dispatched on
	d := NewDecoder()
	got, err := d.DecodeActionType(b)
	require.NoError(t, err)
	require.Equal(t, ingest.ActionUnknown, got)
}
