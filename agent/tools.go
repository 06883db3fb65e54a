// Package agent implements the agentic controller: a ReACT loop over a
// fixed toolset that lets an LLM plan paper discovery, download,
// processing, and graph queries without any tool owning the agent's state
// directly — everything durable lives in the graph store.
package agent

import (
	"context"
	"fmt"

	"github.com/paperkg/paperkg/internal/discovery"
	"github.com/paperkg/paperkg/model"
	"github.com/paperkg/paperkg/store"
	"github.com/paperkg/paperkg/workflow"
)

// Tools bundles the six concrete adapters the controller's tool dispatch
// table calls into. Each method is a pure function over its arguments plus
// these injected dependencies; none retains state across calls.
type Tools struct {
	Discovery   *discovery.Client
	Store       *store.GraphStore
	EDC         *workflow.EDC
	Integration *workflow.Integration
	DownloadDir string
}

type paperDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	CitationCount int    `json:"citationCount"`
}

func toDTOs(papers []discovery.Paper) []paperDTO {
	out := make([]paperDTO, len(papers))
	for i, p := range papers {
		out[i] = paperDTO{ID: p.ID, Title: p.Title, CitationCount: p.CitationCount}
	}
	return out
}

// SearchPapers implements the searchPapers tool.
func (t *Tools) SearchPapers(ctx context.Context, query string, limit int) ([]paperDTO, error) {
	papers, err := t.Discovery.SearchPapers(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return toDTOs(papers), nil
}

// GetCitations implements the getCitations tool.
func (t *Tools) GetCitations(ctx context.Context, paperID string, limit int) ([]paperDTO, error) {
	papers, err := t.Discovery.GetCitations(ctx, paperID, limit)
	if err != nil {
		return nil, err
	}
	return toDTOs(papers), nil
}

type downloadResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
}

// DownloadPaper implements the downloadPaper tool: resolves a PDF URL for
// the given paper and downloads it into the controller's download
// directory.
func (t *Tools) DownloadPaper(ctx context.Context, paper paperDTO) downloadResult {
	url, err := t.Discovery.ResolvePDFURL(ctx, paper.ID)
	if err != nil {
		return downloadResult{Success: false}
	}

	path, err := t.Discovery.DownloadPDF(ctx, url, paper.ID, t.DownloadDir)
	if err != nil {
		return downloadResult{Success: false}
	}
	return downloadResult{Success: true, Path: path}
}

// ProcessPaper implements the processPaper tool: runs EDC then Integration
// over paperPath, reusing the shared store connection. A failure at either
// stage yields a partial result with success=false rather than an error,
// so the controller can reason about trying a different paper.
func (t *Tools) ProcessPaper(ctx context.Context, paperPath string, sourcePaperID string) model.ProcessPaperResult {
	edcEvent := t.EDC.Run(ctx, paperPath)
	if !edcEvent.Success {
		return model.ProcessPaperResult{Success: false, Error: fmt.Sprintf("extraction failed at %s: %s", edcEvent.Stage, edcEvent.Error)}
	}

	stats := model.ProcessPaperStats{
		EntitiesExtracted:      edcEvent.EntitiesCount,
		RelationshipsExtracted: edcEvent.RelationshipsCount,
	}

	integrationEvent := t.Integration.Run(ctx, edcEvent.FinalGraph, paperPath)
	if !integrationEvent.Success {
		return model.ProcessPaperResult{Success: false, Stats: stats, Error: integrationEvent.Error}
	}

	stats.EntitiesMerged = integrationEvent.EntitiesMerged
	stats.EntitiesCreated = integrationEvent.EntitiesCreated

	return model.ProcessPaperResult{
		Success:       true,
		Entities:      integrationEvent.ResolvedGraph.Entities,
		Relationships: integrationEvent.ResolvedGraph.Relationships,
		Stats:         stats,
	}
}

// QueryKnowledgeGraph implements the queryKnowledgeGraph tool: wraps
// searchTerm as a synthetic query entity and runs vector-similarity
// retrieval against it.
func (t *Tools) QueryKnowledgeGraph(ctx context.Context, searchTerm string, limit int) (model.QueryResult, error) {
	if limit <= 0 {
		limit = 10
	}
	query := &model.Entity{ID: syntheticQueryID(searchTerm), Name: searchTerm, Type: model.EntityTypeConcept}

	entities, err := t.Store.FetchSimilarEntities(ctx, query, limit)
	if err != nil {
		return model.QueryResult{}, err
	}
	return model.QueryResult{Entities: entities, Count: len(entities)}, nil
}

// SummarizeKnowledgeGraph implements the summarizeKnowledgeGraph tool.
func (t *Tools) SummarizeKnowledgeGraph(ctx context.Context) (model.SummaryResult, error) {
	summary, err := t.Store.Summarize(ctx)
	if err != nil {
		return model.SummaryResult{}, err
	}

	topTypes := make([]model.EntityTypeCount, len(summary.TopEntityTypes))
	for i, c := range summary.TopEntityTypes {
		topTypes[i] = model.EntityTypeCount{Type: c.Type, Count: c.Count}
	}

	return model.SummaryResult{
		TotalEntities:      summary.TotalEntities,
		TotalRelationships: summary.TotalRelationships,
		TopEntityTypes:     topTypes,
	}, nil
}

// syntheticQueryID gives the query entity an id unlikely to collide with any
// persisted entity; it is never persisted itself, only embedded.
func syntheticQueryID(searchTerm string) string {
	return "query:" + searchTerm
}
