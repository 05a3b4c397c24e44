// Package graph defines the minimal backend graph-store interface the
// rest of the engine is built against, and a Neo4j-driver-backed
// implementation of it. Every store/resolver package in this module
// depends only on the Backend interface, never on the concrete driver,
// so that tests substitute a fake and production wires the real driver.
package graph

import "context"

// Row is a schemaless decoded record from a single result row.
type Row map[string]any

// Cursor streams result rows from a read. It must be released (Close)
// at every suspension point a caller abandons it at, including context
// cancellation.
type Cursor interface {
	// Next advances to the next row. It returns ok=false once exhausted.
	Next(ctx context.Context) (row Row, ok bool, err error)
	// Close releases any backend-held resources. Idempotent.
	Close(ctx context.Context) error
}

// Backend is the abstract graph-store collaborator: a write path (Run)
// and a read path (Execute) over parametrized statements, matching the
// external-interface contract: statements are limited to
// MATCH/MERGE/CREATE/SET/WITH/UNWIND/RETURN/ORDER BY/SKIP/LIMIT plus
// CALL(...) subqueries.
type Backend interface {
	// Run executes a write statement. No rows are returned.
	Run(ctx context.Context, statement string, params map[string]any) error
	// Execute executes a read statement and returns a streaming Cursor.
	Execute(ctx context.Context, statement string, params map[string]any) (Cursor, error)
	// Close releases the backend connection/session pool.
	Close(ctx context.Context) error
}

// Stream drains a Cursor into a Go channel of (Row, error), closing the
// cursor when the context is cancelled or the cursor is exhausted. This
// is the streaming primitive every find_many-style operation is built
// on: lazy, finite, not restartable, as the contract requires.
func Stream(ctx context.Context, cur Cursor) <-chan RowOrError {
	out := make(chan RowOrError)
	go func() {
		defer close(out)
		defer cur.Close(ctx)
		for {
			row, ok, err := cur.Next(ctx)
			if err != nil {
				select {
				case out <- RowOrError{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if !ok {
				return
			}
			select {
			case out <- RowOrError{Row: row}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// RowOrError is one element of a Stream channel.
type RowOrError struct {
	Row Row
	Err error
}
