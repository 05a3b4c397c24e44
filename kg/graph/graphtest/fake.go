// Package graphtest provides an in-memory fake of graph.Backend for unit
// tests that need a real statement/parameter-recording collaborator
// without a live Neo4j instance. It does not interpret Cypher; it
// records calls and lets the test assert on them or pre-seed canned rows,
// the same role a go.uber.org/mock-generated mock would play, hand
// authored here since this module's mocks cannot be code-generated in
// this environment.
package graphtest

import (
	"context"
	"sync"

	"github.com/kgindex/kgnode/kg/graph"
)

// Call records one Run or Execute invocation.
type Call struct {
	Statement string
	Params    map[string]any
}

// Fake is a minimal in-memory Backend: Run calls are recorded and can be
// scripted to fail; Execute calls return a pre-seeded row set keyed by
// call index (FIFO) or a default empty cursor.
type Fake struct {
	mu       sync.Mutex
	Runs     []Call
	Executes []Call
	RunErr   error
	Rows     [][]graph.Row // consumed FIFO by successive Execute calls
}

func New() *Fake { return &Fake{} }

func (f *Fake) Run(ctx context.Context, statement string, params map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Runs = append(f.Runs, Call{Statement: statement, Params: params})
	return f.RunErr
}

func (f *Fake) Execute(ctx context.Context, statement string, params map[string]any) (graph.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Executes = append(f.Executes, Call{Statement: statement, Params: params})
	var rows []graph.Row
	if len(f.Rows) > 0 {
		rows = f.Rows[0]
		f.Rows = f.Rows[1:]
	}
	return &fakeCursor{rows: rows}, nil
}

func (f *Fake) Close(ctx context.Context) error { return nil }

// SeedRows enqueues the rows the next Execute call will yield.
func (f *Fake) SeedRows(rows ...graph.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rows = append(f.Rows, rows)
}

type fakeCursor struct {
	rows []graph.Row
	i    int
}

func (c *fakeCursor) Next(ctx context.Context) (graph.Row, bool, error) {
	if c.i >= len(c.rows) {
		return nil, false, nil
	}
	row := c.rows[c.i]
	c.i++
	return row, true, nil
}

func (c *fakeCursor) Close(ctx context.Context) error { return nil }
