package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// BundleSource yields the ordered stream of block-scoped bundles a
// Pipeline consumes. Next blocks until a bundle is available, ctx is
// cancelled, or the stream is exhausted (ok=false, err=nil).
type BundleSource interface {
	Next(ctx context.Context) (b Bundle, ok bool, err error)
}

// JSONLineSource reads one JSON-encoded Bundle per line from r. It is
// the source used when ingesting from a recorded/replayed event log
// rather than a live on-chain stream; the external interfaces contract
// names no concrete network protocol for the live source, so the wire
// boundary is this BundleSource interface and a live implementation is
// wired in at the call site that has one.
type JSONLineSource struct {
	scanner *bufio.Scanner
}

// NewJSONLineSource wraps r, scaling the scanner's buffer up for the
// large edits_published payloads a line may carry.
func NewJSONLineSource(r io.Reader) *JSONLineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &JSONLineSource{scanner: sc}
}

// Next decodes the next non-empty line as a Bundle.
func (s *JSONLineSource) Next(ctx context.Context) (Bundle, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Bundle{}, false, err
		}
		if !s.scanner.Scan() {
			return Bundle{}, false, s.scanner.Err()
		}
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var b Bundle
		if err := json.Unmarshal(line, &b); err != nil {
			return Bundle{}, false, fmt.Errorf("ingest: decode bundle line: %w", err)
		}
		return b, true, nil
	}
}
