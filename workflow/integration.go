package workflow

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/paperkg/paperkg/internal/llm"
	"github.com/paperkg/paperkg/model"
	"github.com/paperkg/paperkg/store"
)

const defaultResolverConcurrency = 10

// Integration reconciles a freshly extracted graph against the existing
// store, deciding per entity whether it is new (CREATE) or a duplicate of an
// existing one (MERGE), then persists the result.
type Integration struct {
	store       *store.GraphStore
	resolver    llm.Provider
	logger      *slog.Logger
	debug       *debugWriter
	retrieveK   int
	concurrency int
}

// IntegrationConfig bundles Integration's dependencies.
type IntegrationConfig struct {
	Store       *store.GraphStore
	Resolver    llm.Provider
	Logger      *slog.Logger
	DebugDir    string
	RetrieveK   int
	Concurrency int
}

// NewIntegration builds an Integration workflow. RetrieveK defaults to 5;
// Concurrency (the resolver's bounded-parallelism limit) defaults to 10.
func NewIntegration(cfg IntegrationConfig) *Integration {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	k := cfg.RetrieveK
	if k <= 0 {
		k = 5
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultResolverConcurrency
	}
	return &Integration{
		store:       cfg.Store,
		resolver:    cfg.Resolver,
		logger:      logger,
		debug:       newDebugWriter(cfg.DebugDir),
		retrieveK:   k,
		concurrency: concurrency,
	}
}

// Run executes Retrieve → Resolve → Persist → Complete for newGraph and
// returns the terminal event.
func (w *Integration) Run(ctx context.Context, newGraph *model.GraphData, paperPath string) model.Event {
	candidates, err := w.store.FetchSimilarEntitiesBatch(ctx, newGraph.Entities, w.retrieveK, w.concurrency)
	if err != nil {
		return w.errorEvent(paperPath, err)
	}

	mergeLog, idMapping, err := w.resolve(ctx, newGraph.Entities, candidates)
	if err != nil {
		return w.errorEvent(paperPath, err)
	}
	w.debug.write("04_integration_log.json", mergeLog)

	resolvedGraph := rewrite(newGraph, idMapping, mergeLog)

	if err := w.store.UpsertGraph(ctx, resolvedGraph); err != nil {
		return w.errorEvent(paperPath, err)
	}

	merged := 0
	for _, d := range mergeLog {
		if d.Action == model.MergeActionMerge {
			merged++
		}
	}

	return model.Event{
		Type:              model.EventIntegrationComplete,
		PaperPath:         paperPath,
		Success:           true,
		ResolvedGraph:     resolvedGraph,
		MergeLog:          mergeLog,
		EntitiesProcessed: len(mergeLog),
		EntitiesMerged:    merged,
		EntitiesCreated:   len(mergeLog) - merged,
	}
}

// resolve runs one resolution task per entity with bounded parallelism,
// preserving newGraph.Entities order in the returned mergeLog.
func (w *Integration) resolve(ctx context.Context, entities []*model.Entity, candidates map[string][]*model.Entity) ([]model.MergeDecision, map[string]string, error) {
	mergeLog := make([]model.MergeDecision, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	var mu sync.Mutex
	for i, e := range entities {
		i, e := i, e
		g.Go(func() error {
			decision := resolveOne(gctx, w.resolver, e, candidates[e.ID])
			mu.Lock()
			mergeLog[i] = decision
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	idMapping := make(map[string]string, len(mergeLog))
	for _, d := range mergeLog {
		idMapping[d.NewEntityID] = d.ResolvedID()
	}
	return mergeLog, idMapping, nil
}

// rewrite constructs resolvedGraph per the CREATE-subset / relationship
// rewiring / referencedEntityIds rules.
func rewrite(newGraph *model.GraphData, idMapping map[string]string, mergeLog []model.MergeDecision) *model.GraphData {
	var created []*model.Entity
	for _, e := range newGraph.Entities {
		if idMapping[e.ID] == e.ID {
			created = append(created, e)
		}
	}

	createdIDs := make(map[string]struct{}, len(created))
	for _, e := range created {
		createdIDs[e.ID] = struct{}{}
	}

	relationships := make([]model.Relationship, len(newGraph.Relationships))
	for i, r := range newGraph.Relationships {
		clone := r.Clone()
		clone.SourceID = resolveID(idMapping, r.SourceID)
		clone.TargetID = resolveID(idMapping, r.TargetID)
		relationships[i] = clone
	}

	var referenced []string
	seen := map[string]struct{}{}
	for _, d := range mergeLog {
		resolved := d.ResolvedID()
		if _, isCreated := createdIDs[resolved]; isCreated {
			continue
		}
		if d.Action != model.MergeActionMerge {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		referenced = append(referenced, resolved)
	}

	return &model.GraphData{
		Entities:            created,
		Relationships:       relationships,
		ReferencedEntityIds: referenced,
	}
}

func resolveID(idMapping map[string]string, id string) string {
	if resolved, ok := idMapping[id]; ok {
		return resolved
	}
	return id
}

func (w *Integration) errorEvent(paperPath string, err error) model.Event {
	w.logger.Error("integration workflow failed", slog.String("paper_path", paperPath), slog.String("error", err.Error()))
	return model.Event{
		Type:      model.EventIntegrationComplete,
		PaperPath: paperPath,
		Success:   false,
		Error:     err.Error(),
	}
}
