// Package engine ties the catalog store to the query translator.
// It resolves the index description behind a query, checks read access and
// compiles, alone or in bounded concurrent batches.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/leapstack-labs/tablequery/internal/catalog"
	"github.com/leapstack-labs/tablequery/internal/mview"
	"github.com/leapstack-labs/tablequery/internal/state"
	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
)

// Engine compiles queries against the tables of a catalog store.
type Engine struct {
	store      *state.SQLiteStore
	resolver   *catalog.Resolver
	translator *translator.Translator
	views      *mview.Manager
	access     catalog.AccessChecker

	maxValues   int
	concurrency int

	logger *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// StatePath is the path to the SQLite catalog. Empty means in-memory.
	StatePath string
	// MaxFacetValues caps value count buckets. Zero uses the facet default.
	MaxFacetValues int
	// Concurrency bounds CompileBatch. Zero means GOMAXPROCS.
	Concurrency int
	// Access decides read access. Nil grants everything.
	Access catalog.AccessChecker
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New opens the catalog store and wires the translator around it.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	path := cfg.StatePath
	if path == "" {
		path = ":memory:"
	}
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	logger.Debug("initializing engine", "state_path", path)

	store, err := state.Open(path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	access := cfg.Access
	if access == nil {
		access = catalog.AllowAll
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	tr := translator.New(store, logger)
	return &Engine{
		store:       store,
		resolver:    catalog.NewResolver(store),
		translator:  tr,
		views:       mview.NewManager(store, tr, logger),
		access:      access,
		maxValues:   cfg.MaxFacetValues,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// Close releases the catalog store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the catalog store.
func (e *Engine) Store() *state.SQLiteStore {
	return e.store
}

// Describe resolves the index description rooted at id.
func (e *Engine) Describe(ctx context.Context, id core.IdAndVersion) (core.IndexDescription, error) {
	return e.resolver.Describe(ctx, id)
}

// Request is one query to compile.
type Request struct {
	SQL     string
	Options translator.Options
	// Table roots the index description in build context, where it names
	// the materialized view being built. Query context uses the FROM table.
	Table core.IdAndVersion
}

// Compile parses, resolves and compiles one query.
func (e *Engine) Compile(ctx context.Context, req Request) (*translator.CompiledQuery, error) {
	q, err := parser.Parse(req.SQL)
	if err != nil {
		return nil, err
	}
	desc, err := e.describeFor(ctx, q, req)
	if err != nil {
		return nil, err
	}
	return e.translator.Compile(ctx, q, desc, req.Options)
}

func (e *Engine) describeFor(ctx context.Context, q *core.QuerySpecification, req Request) (core.IndexDescription, error) {
	root := req.Table
	if req.Options.SqlContext == core.SqlContextBuild {
		if root.ID == 0 {
			return nil, core.Errorf(core.KindValidation, "A materialized view id is required to compile in build context")
		}
	} else {
		if q.From == nil || q.From.Source == nil {
			return nil, core.Errorf(core.KindValidation, "A FROM clause is required")
		}
		root = q.From.Source.ID
	}

	desc, err := e.resolver.Describe(ctx, root)
	if err != nil {
		return nil, err
	}
	if err := catalog.ValidateReadAccess(ctx, e.access, desc); err != nil {
		return nil, err
	}
	return desc, nil
}
