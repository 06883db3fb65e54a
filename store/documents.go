package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paperkg/paperkg/internal/apperr"
)

// Document is a provenance record for one processed paper.
type Document struct {
	ID        uuid.UUID
	Path      string
	Checksum  string
	Status    string
	CreatedAt time.Time
}

// RecordDocument inserts a provenance row for a paper and returns it. No
// workflow in this module calls it; the EDC workflow does not record
// provenance.
func (s *GraphStore) RecordDocument(ctx context.Context, path, checksum string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT * FROM insert_document($1, $2)`, path, checksum)

	doc := &Document{}
	if err := row.Scan(&doc.ID, &doc.Path, &doc.Checksum, &doc.Status, &doc.CreatedAt); err != nil {
		return nil, apperr.Wrap("insert document", apperr.KindUnknown, err)
	}
	return doc, nil
}

// UpdateDocumentStatus marks a provenance row's terminal state ("complete"
// or "failed").
func (s *GraphStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.db.ExecContext(ctx, `SELECT update_document_status($1, $2)`, id, status)
	if err != nil {
		return apperr.Wrap("update document status", apperr.KindUnknown, err)
	}
	return nil
}
