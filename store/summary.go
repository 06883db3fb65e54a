package store

import (
	"context"

	"github.com/paperkg/paperkg/internal/apperr"
)

// Summary is the aggregate view backing the agentic controller's
// summarizeKnowledgeGraph tool.
type Summary struct {
	TotalEntities      int64
	TotalRelationships int64
	TopEntityTypes     []EntityTypeCount
}

// EntityTypeCount is one row of the entity-type histogram.
type EntityTypeCount struct {
	Type  string
	Count int64
}

// Summarize computes store-wide aggregates.
func (s *GraphStore) Summarize(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	if err := s.db.QueryRowContext(ctx, `SELECT count_entities();`).Scan(&summary.TotalEntities); err != nil {
		return nil, apperr.Wrap("count entities", apperr.KindUnknown, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count_relationships();`).Scan(&summary.TotalRelationships); err != nil {
		return nil, apperr.Wrap("count relationships", apperr.KindUnknown, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT * FROM entity_type_counts();`)
	if err != nil {
		return nil, apperr.Wrap("entity type counts", apperr.KindUnknown, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c EntityTypeCount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, apperr.Wrap("scan entity type count", apperr.KindUnknown, err)
		}
		summary.TopEntityTypes = append(summary.TopEntityTypes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap("iterate entity type counts", apperr.KindUnknown, err)
	}

	return summary, nil
}
