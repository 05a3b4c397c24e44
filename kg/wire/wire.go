// Package wire decodes the length-delimited on-chain/IPFS metadata
// envelope into kg/ingest's Op/Edit/Import types. The retrieval pack
// ships no .proto source to regenerate a full generated client from, so
// each message is read into a flat tag-keyed field map and copied
// straight into the kg/ingest types, with no intermediate wire structs,
// decoded with google.golang.org/protobuf's low-level protowire entry
// point rather than a generated proto.Message implementation — the
// idiomatic "decode without codegen" path that module itself exposes.
package wire

import (
	"fmt"

	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/ingest"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field tags, matching the documented IpfsMetadata/Edit/Op/Triple/Value
// wire shape. OpType/RelationWire carry two tags (CreateRelation/
// DeleteRelation and the relation operand) absent from the original
// ipfs.rs encoder, which only emits SetTriple/DeleteTriple: these are a
// newer wire revision this decoder targets, assigned tag numbers that
// continue the same message shapes rather than colliding with the
// documented ones.
const (
	metaActionTypeTag = 2

	editIDTag      = 3
	editNameTag    = 4
	editOpsTag     = 5
	editAuthorsTag = 6

	opTypeTag     = 1
	opTripleTag   = 2
	opRelationTag = 3

	tripleEntityTag    = 1
	tripleAttributeTag = 2
	tripleValueTag     = 3

	valueTypeTag  = 1
	valueValueTag = 2

	relationIDTag    = 1
	relationTypeTag  = 2
	relationFromTag  = 3
	relationToTag    = 4
	relationIndexTag = 5

	importEditsTag = 5
)

// onchainActionType mirrors the source schema's ActionType enum
// numbering exactly (Empty=0 .. RemoveMember=9); only AddEdit and
// ImportSpace are dispatched on here, the rest fall through to "skip".
const (
	onchainActionEmpty       = 0
	onchainActionAddEdit     = 1
	onchainActionImportSpace = 4
)

// onchainOpType mirrors the documented OpType enum plus the two relation
// variants this module's wire revision adds.
const (
	onchainOpNone           = 0
	onchainOpSetTriple      = 1
	onchainOpDeleteTriple   = 2
	onchainOpCreateRelation = 3
	onchainOpDeleteRelation = 4
)

// onchainValueType mirrors the documented ValueType enum exactly.
var onchainValueTypeNames = map[uint64]string{
	0: "UNKNOWN",
	1: "TEXT",
	2: "NUMBER",
	3: "CHECKBOX",
	4: "URL",
	5: "TIME",
	6: "POINT",
}

// fields is the flat decode result of one message: varint-typed fields
// keyed by tag (last-one-wins, matching proto3 scalar semantics), and
// length-delimited fields keyed by tag with every occurrence kept in
// order (so repeated string/message fields decode correctly).
type fields struct {
	varints map[int32]uint64
	bytes   map[int32][][]byte
}

// decodeFields runs one flat pass over raw, consuming tag-value pairs
// without knowledge of the message's proto descriptor — the documented
// "decode without codegen" protowire idiom.
func decodeFields(raw []byte) (fields, error) {
	f := fields{varints: map[int32]uint64{}, bytes: map[int32][][]byte{}}
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return fields{}, fmt.Errorf("wire: malformed tag: %w", protowire.ParseError(n))
		}
		raw = raw[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return fields{}, fmt.Errorf("wire: malformed varint: %w", protowire.ParseError(n))
			}
			f.varints[int32(num)] = v
			raw = raw[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return fields{}, fmt.Errorf("wire: malformed bytes: %w", protowire.ParseError(n))
			}
			f.bytes[int32(num)] = append(f.bytes[int32(num)], append([]byte{}, v...))
			raw = raw[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return fields{}, fmt.Errorf("wire: malformed field: %w", protowire.ParseError(n))
			}
			raw = raw[n:]
		}
	}
	return f, nil
}

func (f fields) str(tag int32) string {
	vs := f.bytes[tag]
	if len(vs) == 0 {
		return ""
	}
	return string(vs[len(vs)-1])
}

func (f fields) strRepeated(tag int32) []string {
	vs := f.bytes[tag]
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

// Decoder implements ingest.EditDecoder against the wire formats above.
type Decoder struct{}

func NewDecoder() *Decoder { return &Decoder{} }

// DecodeActionType reads only the envelope's type tag, matching the
// source schema's pattern of parsing the tagged IpfsMetadata header
// before committing to the type-specific full decode.
func (Decoder) DecodeActionType(raw []byte) (ingest.ActionType, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return ingest.ActionUnknown, err
	}
	switch f.varints[metaActionTypeTag] {
	case onchainActionAddEdit:
		return ingest.ActionAddEdit, nil
	case onchainActionImportSpace:
		return ingest.ActionImportSpace, nil
	case onchainActionEmpty:
		return ingest.ActionUnknown, nil
	default:
		return ingest.ActionUnknown, nil
	}
}

// DecodeEdit decodes the full Edit message: id, name, ops[], authors[].
func (Decoder) DecodeEdit(raw []byte) (ingest.Edit, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return ingest.Edit{}, err
	}
	ops := make([]ingest.Op, 0, len(f.bytes[editOpsTag]))
	for _, opRaw := range f.bytes[editOpsTag] {
		op, err := decodeOp(opRaw)
		if err != nil {
			return ingest.Edit{}, err
		}
		ops = append(ops, op)
	}
	return ingest.Edit{
		ID:      f.str(editIDTag),
		Name:    f.str(editNameTag),
		Authors: f.strRepeated(editAuthorsTag),
		Ops:     ops,
	}, nil
}

// DecodeImport decodes the ImportSpace metadata envelope: a list of
// content URIs, each resolving to one more Edit to fan out and fetch.
func (Decoder) DecodeImport(raw []byte) (ingest.Import, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return ingest.Import{}, err
	}
	return ingest.Import{EditContentURIs: f.strRepeated(importEditsTag)}, nil
}

func decodeOp(raw []byte) (ingest.Op, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return ingest.Op{}, err
	}
	switch f.varints[opTypeTag] {
	case onchainOpSetTriple:
		t, err := decodeTriple(f.bytes[opTripleTag])
		if err != nil {
			return ingest.Op{}, err
		}
		return ingest.Op{Type: ingest.OpSetTriple, Triple: t}, nil
	case onchainOpDeleteTriple:
		t, err := decodeTriple(f.bytes[opTripleTag])
		if err != nil {
			return ingest.Op{}, err
		}
		return ingest.Op{Type: ingest.OpDeleteTriple, Triple: t}, nil
	case onchainOpCreateRelation:
		r, err := decodeRelation(f.bytes[opRelationTag])
		if err != nil {
			return ingest.Op{}, err
		}
		return ingest.Op{Type: ingest.OpCreateRelation, Relation: r}, nil
	case onchainOpDeleteRelation:
		r, err := decodeRelation(f.bytes[opRelationTag])
		if err != nil {
			return ingest.Op{}, err
		}
		return ingest.Op{Type: ingest.OpDeleteRelation, Relation: r}, nil
	case onchainOpNone:
		return ingest.Op{Type: ingest.OpUnknown}, nil
	default:
		return ingest.Op{Type: ingest.OpUnknown}, nil
	}
}

func decodeTriple(occurrences [][]byte) (*ingest.TripleOp, error) {
	if len(occurrences) == 0 {
		return nil, nil
	}
	f, err := decodeFields(occurrences[len(occurrences)-1])
	if err != nil {
		return nil, err
	}
	t := &ingest.TripleOp{
		Entity:    f.str(tripleEntityTag),
		Attribute: f.str(tripleAttributeTag),
	}
	if vRaw := f.bytes[tripleValueTag]; len(vRaw) > 0 {
		vf, err := decodeFields(vRaw[len(vRaw)-1])
		if err != nil {
			return nil, err
		}
		typeName := onchainValueTypeNames[vf.varints[valueTypeTag]]
		if typeName == "" {
			typeName = schema.Unknown.String()
		}
		t.Value = &ingest.WireValue{Type: typeName, Raw: vf.str(valueValueTag)}
	}
	return t, nil
}

func decodeRelation(occurrences [][]byte) (*ingest.RelationOp, error) {
	if len(occurrences) == 0 {
		return nil, nil
	}
	f, err := decodeFields(occurrences[len(occurrences)-1])
	if err != nil {
		return nil, err
	}
	return &ingest.RelationOp{
		ID:           f.str(relationIDTag),
		RelationType: f.str(relationTypeTag),
		FromEntity:   f.str(relationFromTag),
		ToEntity:     f.str(relationToTag),
		Index:        f.str(relationIndexTag),
	}, nil
}

var _ ingest.EditDecoder = Decoder{}
