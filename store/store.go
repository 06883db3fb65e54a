// Package store is the graph store: the single synchronization point for
// every writer, responsible for idempotent persistence of graph fragments
// and vector-similarity candidate retrieval. Its transactional discipline
// (SERIALIZABLE isolation + bounded retry) and its embedding-upsert pattern
// (pgvector.NewVector marshaling, SELECT * FROM stored_function($1, ...) +
// Scan, apperr.Wrap error wrapping) apply that discipline to this domain's
// Entity/Relationship model.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/paperkg/paperkg/internal/apperr"
	"github.com/paperkg/paperkg/internal/config"
	"github.com/paperkg/paperkg/model"
	loadsql "github.com/paperkg/paperkg/sql"
)

// Embedder produces the vector used for vector-similarity candidate
// retrieval and for the embedding persisted alongside an entity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GraphStore is the process-wide handle to the persistent knowledge graph.
type GraphStore struct {
	db        *sql.DB
	embedder  Embedder
	logger    *slog.Logger
	embedDim  int
	maxRetries int
}

// New opens the database connection, loads the stored functions, and
// returns a ready-to-use GraphStore. It does not close the connection; the
// caller owns it process-wide and calls Close at shutdown.
func New(cfg config.DatabaseConfiguration, embedDim int, embedder Embedder, logger *slog.Logger) (*GraphStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, apperr.Wrap("open database", apperr.KindUnknown, err)
	}

	s := &GraphStore{
		db:         db,
		embedder:   embedder,
		logger:     logger,
		embedDim:   embedDim,
		maxRetries: 3,
	}

	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *GraphStore) init() error {
	if err := loadsql.Init(s.db); err != nil {
		return apperr.Wrap("init extensions", apperr.KindUnknown, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := loadsql.LoadEntitiesSql(s.db, false); err != nil {
		return apperr.Wrap("load entities sql", apperr.KindUnknown, err)
	}
	if _, err := s.db.ExecContext(ctx, `SELECT init_entities($1);`, s.embedDim); err != nil {
		return apperr.Wrap("init entities table", apperr.KindUnknown, err)
	}

	if err := loadsql.LoadRelationshipsSql(s.db, false); err != nil {
		return apperr.Wrap("load relationships sql", apperr.KindUnknown, err)
	}
	if _, err := s.db.ExecContext(ctx, `SELECT init_relationships();`); err != nil {
		return apperr.Wrap("init relationships table", apperr.KindUnknown, err)
	}

	if err := loadsql.LoadDocumentsSql(s.db, false); err != nil {
		return apperr.Wrap("load documents sql", apperr.KindUnknown, err)
	}
	if _, err := s.db.ExecContext(ctx, `SELECT init_documents();`); err != nil {
		return apperr.Wrap("init documents table", apperr.KindUnknown, err)
	}

	s.logger.Info("graph store initialized")
	return nil
}

// Close releases the connection pool.
func (s *GraphStore) Close() error {
	return s.db.Close()
}

// UpsertGraph idempotently persists a graph fragment: every entity is
// upserted (version incremented on conflict), and every relationship whose
// endpoints resolve within the fragment (entities ∪ referencedEntityIds) is
// inserted, ignoring duplicates of the (source, target, type) triple.
// Embeddings are computed before the transaction opens so a slow embedding
// provider never holds a SERIALIZABLE transaction open.
func (s *GraphStore) UpsertGraph(ctx context.Context, graph *model.GraphData) error {
	if graph == nil {
		return nil
	}

	embeddings := make(map[string][]float32, len(graph.Entities))
	for _, e := range graph.Entities {
		if s.embedder == nil {
			continue
		}
		vec, err := s.embedder.Embed(ctx, e.Render())
		if err != nil {
			return apperr.Wrap("embed entity "+e.ID, apperr.KindTransient, err)
		}
		embeddings[e.ID] = vec
	}

	validIDs := graph.EntityIDSet()
	var dropped int
	relationships := make([]model.Relationship, 0, len(graph.Relationships))
	for _, r := range graph.Relationships {
		if r.IsSelfLoop() {
			dropped++
			continue
		}
		_, sourceOK := validIDs[r.SourceID]
		_, targetOK := validIDs[r.TargetID]
		if !sourceOK || !targetOK {
			dropped++
			continue
		}
		relationships = append(relationships, r)
	}
	if dropped > 0 {
		s.logger.Warn("dropped orphan or self-loop relationships", slog.Int("count", dropped))
	}

	return s.withSerializableRetry(ctx, func(tx *sql.Tx) error {
		for _, e := range graph.Entities {
			if err := upsertEntityTx(ctx, tx, e, embeddings[e.ID]); err != nil {
				return err
			}
		}
		for _, r := range relationships {
			if err := insertRelationshipTx(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertEntityTx(ctx context.Context, tx *sql.Tx, e *model.Entity, embedding []float32) error {
	aliases, err := jsonArray(e.Aliases)
	if err != nil {
		return apperr.Wrap("marshal aliases", apperr.KindValidation, err)
	}

	metadata := e.Metadata
	if metadata == nil {
		metadata = model.Metadata{}
	}

	var embeddingParam interface{}
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		embeddingParam = &v
	}

	row := tx.QueryRowContext(ctx,
		`SELECT * FROM upsert_entity($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Name, e.Type, e.Description, aliases, metadata, embeddingParam,
	)

	var (
		id, name, typ, description string
		rawAliases                 []byte
		metadataOut                model.Metadata
		embeddingOut               *pgvector.Vector
		version                    int
		createdAt, updatedAt       time.Time
	)
	if err := row.Scan(&id, &name, &typ, &description, &rawAliases, &metadataOut, &embeddingOut, &version, &createdAt, &updatedAt); err != nil {
		return apperr.Wrap("scan upserted entity "+e.ID, apperr.KindUnknown, err)
	}

	var aliasesOut []string
	if err := json.Unmarshal(rawAliases, &aliasesOut); err != nil {
		return apperr.Wrap("unmarshal aliases", apperr.KindValidation, err)
	}

	e.Version = version
	e.Aliases = aliasesOut
	e.Metadata = metadataOut
	if embeddingOut != nil {
		e.Embedding = embeddingOut.Slice()
	}
	return nil
}

func insertRelationshipTx(ctx context.Context, tx *sql.Tx, r model.Relationship) error {
	metadata := r.Metadata
	if metadata == nil {
		metadata = model.Metadata{}
	}

	var confidence interface{}
	if r.Confidence != nil {
		confidence = *r.Confidence
	}

	var sourcePaperID interface{}
	if r.SourcePaperID != "" {
		sourcePaperID = r.SourcePaperID
	}

	_, err := tx.ExecContext(ctx,
		`SELECT insert_relationship($1, $2, $3, $4, $5, $6, $7)`,
		r.SourceID, r.TargetID, string(r.Type), r.Description, confidence, sourcePaperID, metadata,
	)
	if err != nil {
		return apperr.Wrap(fmt.Sprintf("insert relationship %s->%s", r.SourceID, r.TargetID), apperr.KindUnknown, err)
	}
	return nil
}

// withSerializableRetry runs fn inside a SERIALIZABLE transaction, retrying
// up to maxRetries times with jittered exponential backoff (base 100ms,
// factor 2) on a serialization failure (Postgres SQLSTATE 40001). Any other
// error aborts immediately.
func (s *GraphStore) withSerializableRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	const base = 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := base * time.Duration(1<<uint(attempt-1))
			jitter := time.Duration(rand.Int63n(int64(backoff) + 1))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isSerializationFailure(err) {
			return err
		}
		s.logger.Warn("serialization failure, retrying", slog.Int("attempt", attempt))
	}

	return apperr.Wrap("upsert graph", apperr.KindSerialization, lastErr)
}

func (s *GraphStore) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return apperr.Wrap("begin tx", apperr.KindUnknown, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	for e := err; e != nil; {
		if pe, ok := e.(*pq.Error); ok {
			pqErr = pe
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return pqErr != nil && pqErr.Code == "40001"
}

func jsonArray(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}
