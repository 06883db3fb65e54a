package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/paperkg/paperkg/internal/apperr"
	"github.com/paperkg/paperkg/model"
)

var errNoEmbedder = errors.New("graph store has no embedder configured")

// FetchSimilarEntities returns up to k store entities considered potential
// duplicates of e, ordered by ascending cosine distance. The input's own id
// (if already persisted) is always excluded.
func (s *GraphStore) FetchSimilarEntities(ctx context.Context, e *model.Entity, k int) ([]*model.Entity, error) {
	if s.embedder == nil {
		return nil, apperr.Wrap("fetch similar entities", apperr.KindUnknown, errNoEmbedder)
	}

	vec, err := s.embedder.Embed(ctx, e.Render())
	if err != nil {
		return nil, apperr.Wrap("embed query entity", apperr.KindTransient, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT * FROM select_similar_entities($1, $2, $3)`,
		pgvector.NewVector(vec), e.ID, k,
	)
	if err != nil {
		return nil, apperr.Wrap("query similar entities", apperr.KindUnknown, err)
	}
	defer rows.Close()

	var results []*model.Entity
	for rows.Next() {
		candidate, err := scanEntityRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap("iterate similar entities", apperr.KindUnknown, err)
	}

	return results, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntityRow(row rowScanner) (*model.Entity, error) {
	var (
		id, name, typ, description string
		rawAliases                 []byte
		metadata                   model.Metadata
		embedding                  *pgvector.Vector
		version                    int
		createdAt, updatedAt       time.Time
	)
	if err := row.Scan(&id, &name, &typ, &description, &rawAliases, &metadata, &embedding, &version, &createdAt, &updatedAt); err != nil {
		return nil, apperr.Wrap("scan entity row", apperr.KindUnknown, err)
	}

	var aliases []string
	if len(rawAliases) > 0 {
		if err := json.Unmarshal(rawAliases, &aliases); err != nil {
			return nil, apperr.Wrap("unmarshal aliases", apperr.KindValidation, err)
		}
	}

	entity := &model.Entity{
		ID:          id,
		Name:        name,
		Type:        typ,
		Description: description,
		Aliases:     aliases,
		Metadata:    metadata,
		Version:     version,
	}
	if embedding != nil {
		entity.Embedding = embedding.Slice()
	}
	return entity, nil
}

// FetchSimilarEntitiesBatch runs FetchSimilarEntities for each entity with
// bounded parallelism (limit concurrent), aggregating into a mapping from
// input id to candidate list. Inputs with zero candidates are omitted from
// the result. The first query error of any kind cancels the remaining
// queries and the whole batch returns that error with a nil map.
func (s *GraphStore) FetchSimilarEntitiesBatch(ctx context.Context, entities []*model.Entity, k int, concurrency int) (map[string][]*model.Entity, error) {
	if concurrency <= 0 {
		concurrency = 5
	}

	results := make(map[string][]*model.Entity, len(entities))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, e := range entities {
		e := e
		g.Go(func() error {
			candidates, err := s.FetchSimilarEntities(gctx, e, k)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				return nil
			}
			mu.Lock()
			results[e.ID] = candidates
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
