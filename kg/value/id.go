package value

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/spaolacci/murmur3"
)

// idLength is the fixed width of every identifier this system mints,
// matching the 22-character base-58 convention of the source schema.
const idLength = 22

// rawIDBytes is the number of random or digest bytes base-58 encoded into
// an identifier; the encoding is padded/truncated to idLength so every ID
// has constant width regardless of leading-zero runs in those bytes.
const rawIDBytes = 16

// FreshID returns a cryptographically random identifier.
func FreshID() (string, error) {
	buf := make([]byte, rawIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("value: fresh id: %w", err)
	}
	return encodeID(buf), nil
}

// DeriveID deterministically derives an identifier from an arbitrary
// UTF-8 input, used to make membership/relation IDs stable from their
// (space, subject, predicate, object) tuple instead of minting a fresh
// random ID for data whose identity should be idempotent across
// ingestion replays.
func DeriveID(parts ...string) string {
	h := murmur3.New128()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0}) // NUL separator: avoids ("ab","c") == ("a","bc") collisions
		}
		h.Write([]byte(p))
	}
	hi, lo := h.Sum128()
	buf := make([]byte, rawIDBytes)
	for i := 0; i < 8; i++ {
		buf[i] = byte(hi >> (8 * (7 - i)))
		buf[8+i] = byte(lo >> (8 * (7 - i)))
	}
	return encodeID(buf)
}

func encodeID(raw []byte) string {
	s := base58.Encode(raw)
	if len(s) >= idLength {
		return s[:idLength]
	}
	// left-pad with the base58 zero glyph so every ID has constant width
	return strings.Repeat("1", idLength-len(s)) + s
}

// ChecksumAddress normalizes a hex-encoded address the way the source
// schema's address-keyed IDs do: a mixed-case checksum, so that two
// differently-cased spellings of the same address derive the same ID.
// The casing bits come from a murmur3 hash of the lowercased address,
// not Keccak-256, so the result is not an EIP-55 checksum. A leading
// "0x" on addr is optional; the result always carries one.
func ChecksumAddress(addr string) string {
	addr = strings.ToLower(strings.TrimPrefix(addr, "0x"))
	hash := murmur3.Sum64([]byte(addr))
	out := make([]byte, len(addr))
	for i, c := range []byte(addr) {
		if c < '0' || c > 'f' || (c > '9' && c < 'a') {
			out[i] = c
			continue
		}
		bitIdx := uint(i % 64)
		if c >= 'a' && c <= 'f' && (hash>>bitIdx)&1 == 1 {
			out[i] = c - ('a' - 'A')
		} else {
			out[i] = c
		}
	}
	return "0x" + string(out)
}
