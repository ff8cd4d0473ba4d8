package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/pjud-tracker/internal/application/handlers"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/blobstore/gcs"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/blobstore/local"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/config"
	embedder "github.com/ersonp/pjud-tracker/internal/infrastructure/embedder/openai"
	llm "github.com/ersonp/pjud-tracker/internal/infrastructure/llm/openai"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/logger"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/portal/pjud"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/relationaldb/sqlite"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config      *config.Config
	Log         *logger.Logger
	Cases       *handlers.CaseHandler
	Ledger      *handlers.LedgerHandler
	Suggestions *handlers.SuggestionHandler
}

// internalDeps holds all dependencies including low-level components.
type internalDeps struct {
	Deps
	relationalDB *sqlite.Repository
}

// workspacePath returns the directory holding the .tracker config.
func workspacePath() (string, error) {
	if globalWorkspace != "" {
		return globalWorkspace, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps opens the database and builds the handlers that need
// nothing beyond it. Portal and LLM clients are built on demand.
func withInternalDeps(ctx context.Context, fn func(*internalDeps) error) error {
	base, err := workspacePath()
	if err != nil {
		return err
	}

	cfg, err := config.Load(base)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	relationalDB, err := sqlite.NewRepository(cfg.SQLite)
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer relationalDB.Close()

	if err := relationalDB.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	chain := services.NewCaseEventChain()
	deps := &internalDeps{
		Deps: Deps{
			Config:      cfg,
			Log:         log,
			Cases:       handlers.NewCaseHandler(relationalDB, chain),
			Ledger:      handlers.NewLedgerHandler(relationalDB, services.NewFolioLedger()),
			Suggestions: handlers.NewSuggestionHandler(relationalDB, nil),
		},
		relationalDB: relationalDB,
	}

	return fn(deps)
}

// withReconcileHandler provides a ReconcileHandler wired to the portal, the
// LLM and the configured blob store.
func withReconcileHandler(ctx context.Context, fn func(*handlers.ReconcileHandler, *Deps) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		cfg := d.Config

		session, err := pjud.NewSession(cfg.Portal)
		if err != nil {
			return fmt.Errorf("creating portal session: %w", err)
		}

		llmClient, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return fmt.Errorf("creating llm client: %w", err)
		}

		scorer, err := newScorer(cfg)
		if err != nil {
			return err
		}

		blobs, closeBlobs, err := newBlobStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer closeBlobs()

		generators := make(map[string]ports.ResponseGenerator, len(services.SuggestionRoutes))
		for suggestionType, route := range services.SuggestionRoutes {
			generators[route.Selector] = llmClient.ResponseGenerator(suggestionType)
		}

		engine := services.NewReconciliationEngine(services.EngineDeps{
			DB:         d.relationalDB,
			Fetcher:    services.NewDocumentFetcher(session, cfg.Reconcile.TempDir),
			Generator:  llmClient,
			Dispatcher: services.NewSuggestionDispatcher(generators, scorer, cfg.Reconcile.GenerateTimeout, d.Log),
			Blobs:      blobs,
			Log:        d.Log,
		}, services.EngineConfig{
			Workers:         cfg.Reconcile.Workers,
			FetchTimeout:    cfg.Reconcile.FetchTimeout,
			GenerateTimeout: cfg.Reconcile.GenerateTimeout,
			CommitTimeout:   cfg.Reconcile.CommitTimeout,
		})

		return fn(handlers.NewReconcileHandler(engine, d.Log), &d.Deps)
	})
}

// withSubmitHandler provides a SuggestionHandler able to submit to the portal.
func withSubmitHandler(ctx context.Context, fn func(*handlers.SuggestionHandler) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		session, err := pjud.NewSession(d.Config.Portal)
		if err != nil {
			return fmt.Errorf("creating portal session: %w", err)
		}
		submitter := services.NewSuggestionSubmitter(session, d.Config.Submit.MaxAttempts, d.Config.Submit.Timeout, d.Log)
		return fn(handlers.NewSuggestionHandler(d.relationalDB, submitter))
	})
}

func newScorer(cfg *config.Config) (services.Scorer, error) {
	if cfg.Reconcile.Scoring != "embedding" {
		return services.WeightedScorer{}, nil
	}
	emb, err := embedder.NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return services.NewEmbeddingScorer(emb, DefaultEmbeddingBlend), nil
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (ports.BlobStore, func(), error) {
	switch cfg.Provider {
	case config.StorageGCS:
		store, err := gcs.NewStore(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gcs store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		store, err := local.NewStore(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("creating local store: %w", err)
		}
		return store, func() {}, nil
	}
}
