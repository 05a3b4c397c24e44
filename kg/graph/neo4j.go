package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/kgindex/kgnode/internal/metrics"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jBackend adapts a Bolt-protocol Neo4j driver session to the
// Backend interface. Retries follow the bounded-backoff convention used
// throughout this codebase's ingestion/backend calls: three attempts,
// exponential backoff, then surface as a BackendError to the caller.
type Neo4jBackend struct {
	driver  neo4j.DriverWithContext
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewNeo4jBackend opens a driver against uri with the given credentials.
// callTimeout bounds every individual Run/Execute call (default 30s per
// the external-interfaces timeout contract). m may be nil, in which case
// call latency and retries go unobserved.
func NewNeo4jBackend(ctx context.Context, uri, username, password string, callTimeout time.Duration, m *metrics.Metrics) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: open driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph: verify connectivity: %w", err)
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Neo4jBackend{driver: driver, timeout: callTimeout, metrics: m}, nil
}

func (b *Neo4jBackend) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return b.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
}

func (b *Neo4jBackend) withRetry(ctx context.Context, op func(context.Context) error) error {
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2) // 3 attempts total
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		start := time.Now()
		err := op(callCtx)
		if b.metrics != nil {
			b.metrics.BackendCallDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil && attempt < 3 {
			log.Warn("graph: backend call failed, retrying", "attempt", attempt, "err", err)
			if b.metrics != nil {
				b.metrics.RetriesTotal.WithLabelValues("backend").Inc()
			}
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// ErrBackend is the sentinel BackendError kind: transport, authentication,
// or constraint failures exhausted all retry attempts.
var ErrBackend = errors.New("graph: backend error")

// Run executes a write statement, retried on transient failure, bounded
// by the per-call timeout on each attempt.
func (b *Neo4jBackend) Run(ctx context.Context, statement string, params map[string]any) error {
	return b.withRetry(ctx, func(callCtx context.Context) error {
		sess := b.session(callCtx, neo4j.AccessModeWrite)
		defer sess.Close(callCtx)
		_, err := sess.Run(callCtx, statement, params)
		return err
	})
}

// Execute runs a read statement and returns a streaming Cursor. The
// per-call timeout bounds only the initial Run that produces the
// result; streaming the cursor afterward is bounded by the caller's own
// ctx, not by this per-call budget.
func (b *Neo4jBackend) Execute(ctx context.Context, statement string, params map[string]any) (Cursor, error) {
	var result neo4j.ResultWithContext
	sess := b.session(ctx, neo4j.AccessModeRead)
	err := b.withRetry(ctx, func(callCtx context.Context) error {
		res, err := sess.Run(callCtx, statement, params)
		result = res
		return err
	})
	if err != nil {
		sess.Close(ctx)
		return nil, err
	}
	return &neo4jCursor{session: sess, result: result}, nil
}

// Close releases the driver's connection pool.
func (b *Neo4jBackend) Close(ctx context.Context) error {
	return b.driver.Close(ctx)
}

type neo4jCursor struct {
	session neo4j.SessionWithContext
	result  neo4j.ResultWithContext
}

func (c *neo4jCursor) Next(ctx context.Context) (Row, bool, error) {
	if !c.result.Next(ctx) {
		return nil, false, c.result.Err()
	}
	rec := c.result.Record()
	row := make(Row, len(rec.Keys))
	for _, k := range rec.Keys {
		v, _ := rec.Get(k)
		row[k] = v
	}
	return row, true, nil
}

func (c *neo4jCursor) Close(ctx context.Context) error {
	return c.session.Close(ctx)
}
