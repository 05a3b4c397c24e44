// Command kgindexer runs the knowledge-graph ingestion pipeline and
// inspects its persisted cursor.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/kgindex/kgnode/internal/config"
	"github.com/kgindex/kgnode/internal/metrics"
	"github.com/kgindex/kgnode/kg/block"
	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/ingest"
	"github.com/kgindex/kgnode/kg/ipfs"
	"github.com/kgindex/kgnode/kg/space"
	"github.com/kgindex/kgnode/kg/store"
	"github.com/kgindex/kgnode/kg/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// CLI is the top-level kong command tree: a global config-file flag plus
// the serve/cursor subcommands.
type CLI struct {
	ConfigFile string `help:"Path to a TOML config file." type:"path"`

	Serve  ServeCmd  `cmd:"" help:"Run the ingestion pipeline against a bundle source."`
	Cursor CursorCmd `cmd:"" help:"Inspect or repair the persisted ingestion cursor."`
}

// ServeCmd runs the ingestion pipeline against an input of recorded/
// replayed bundles (one JSON object per line on stdin, or a file given
// by --input), advancing the persisted cursor after each bundle.
type ServeCmd struct {
	Input string `help:"Path to a newline-delimited JSON bundle log. Defaults to stdin." type:"path"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx := context.Background()
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.MustRegister(prometheus.DefaultRegisterer)

	backend, pipeline, err := wireUp(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer backend.Close(ctx)

	_, lastBlock, resumed, err := ingest.NewCursorStore(store.NewAttributeStore(backend)).Show(ctx)
	if err != nil {
		return err
	}

	in := os.Stdin
	if c.Input != "" {
		f, err := os.Open(c.Input)
		if err != nil {
			return fmt.Errorf("kgindexer: open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	src := ingest.NewJSONLineSource(in)

	for {
		b, ok, err := src.Next(ctx)
		if err != nil {
			return fmt.Errorf("kgindexer: read bundle: %w", err)
		}
		if !ok {
			return nil
		}
		if resumed && b.Number <= lastBlock {
			continue
		}
		if err := pipeline.ProcessBundle(ctx, b); err != nil {
			log.Error("kgindexer: bundle failed, cursor not advanced", "block", b.Number, "err", err)
			return err
		}
		m.BundlesProcessed.Inc()
		log.Info("kgindexer: bundle processed", "block", b.Number, "cursor", b.Cursor)
	}
}

// CursorCmd groups the cursor inspection/repair subcommands.
type CursorCmd struct {
	Show  CursorShowCmd  `cmd:"" help:"Print the persisted ingestion cursor."`
	Reset CursorResetCmd `cmd:"" help:"Clear the persisted ingestion cursor."`
}

type CursorShowCmd struct{}

func (c *CursorShowCmd) Run(cli *CLI) error {
	ctx := context.Background()
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}
	backend, err := graph.NewNeo4jBackend(ctx, cfg.Backend.URI, cfg.Backend.Username, cfg.Backend.Password, time.Duration(cfg.Backend.Timeout), nil)
	if err != nil {
		return err
	}
	defer backend.Close(ctx)

	cursorStore := ingest.NewCursorStore(store.NewAttributeStore(backend))
	cursor, blockNumber, found, err := cursorStore.Show(ctx)
	if err != nil {
		return err
	}
	if !found {
		fmt.Println("no cursor persisted yet")
		return nil
	}
	fmt.Printf("cursor=%s block=%d\n", cursor, blockNumber)
	return nil
}

type CursorResetCmd struct{}

func (c *CursorResetCmd) Run(cli *CLI) error {
	ctx := context.Background()
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}
	backend, err := graph.NewNeo4jBackend(ctx, cfg.Backend.URI, cfg.Backend.Username, cfg.Backend.Password, time.Duration(cfg.Backend.Timeout), nil)
	if err != nil {
		return err
	}
	defer backend.Close(ctx)

	cursorStore := ingest.NewCursorStore(store.NewAttributeStore(backend))
	return cursorStore.Reset(ctx, block.Metadata{})
}

// wireUp constructs the backend, content-store client, wire decoder, and
// pipeline from cfg, the shared dependency graph both serve and a future
// daemon entrypoint need. m is threaded into every collaborator that
// reports metrics; it may be nil for callers that don't register one.
func wireUp(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*graph.Neo4jBackend, *ingest.Pipeline, error) {
	backend, err := graph.NewNeo4jBackend(ctx, cfg.Backend.URI, cfg.Backend.Username, cfg.Backend.Password, time.Duration(cfg.Backend.Timeout), m)
	if err != nil {
		return nil, nil, err
	}

	attrs := store.NewAttributeStore(backend)
	relations := store.NewRelationStore(backend)
	spaces := space.NewResolver(backend)
	cursorStore := ingest.NewCursorStore(attrs)
	contentStore := ipfs.NewClient(cfg.ContentStore.GatewayURL, time.Duration(cfg.ContentStore.Timeout), cfg.ContentStore.MaxAttempts, m)
	decoder := wire.NewDecoder()

	pipeline := ingest.NewPipeline(spaces, attrs, relations, cursorStore, contentStore, decoder, m)
	return backend, pipeline, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("kgindexer"),
		kong.Description("Knowledge-graph ingestion pipeline and cursor inspector."),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
