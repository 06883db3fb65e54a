// Package workflow implements the two event-driven state machines that
// drive a paper from raw text to a canonical, integrated knowledge graph:
// EDC (extract-define-canonicalize) and Integration.
package workflow

import (
	"context"
	"log/slog"

	"github.com/paperkg/paperkg/model"
	"github.com/paperkg/paperkg/pipeline"
	"github.com/paperkg/paperkg/store"
)

// Parser turns a PDF path into text. Satisfied by internal/parser.Client.
type Parser interface {
	Parse(ctx context.Context, path string) (string, error)
}

// EDC drives a single paper through Load → (PreParse) → Extract → Define →
// Canonicalize → Save → Complete, in that strict order. Debug artifacts are
// written best-effort alongside each stage.
type EDC struct {
	parser     Parser
	preparser  *pipeline.PreParser
	extractor  *pipeline.Extractor
	definer    *pipeline.Definer
	store      *store.GraphStore
	logger     *slog.Logger
	debug      *debugWriter
	preparseOn bool
}

// Config bundles EDC's dependencies.
type Config struct {
	Parser          Parser
	PreParser       *pipeline.PreParser
	Extractor       *pipeline.Extractor
	Definer         *pipeline.Definer
	Store           *store.GraphStore
	Logger          *slog.Logger
	DebugDir        string
	PreParseEnabled bool
}

// NewEDC builds an EDC workflow.
func NewEDC(cfg Config) *EDC {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EDC{
		parser:     cfg.Parser,
		preparser:  cfg.PreParser,
		extractor:  cfg.Extractor,
		definer:    cfg.Definer,
		store:      cfg.Store,
		logger:     logger,
		debug:      newDebugWriter(cfg.DebugDir),
		preparseOn: cfg.PreParseEnabled,
	}
}

// Run executes the full EDC state machine for paperPath and returns the
// terminal event. It returns no error: pipeline failures are reported via
// event.Success=false, event.Error, matching the "Error handler converts to
// CompleteEvent" contract.
func (w *EDC) Run(ctx context.Context, paperPath string) model.Event {
	text, err := w.load(ctx, paperPath)
	if err != nil {
		return w.errorEvent("load", paperPath, err)
	}

	var preparsed *model.PreparsedPaperContext
	if w.preparseOn && w.preparser != nil {
		preparsed = w.preparser.Parse(ctx, text)
		w.debug.write("00_preparsed.json", preparsed)
	}

	graph, err := w.extractor.Extract(ctx, text, preparsed)
	if err != nil {
		return w.errorEvent("extract", paperPath, err)
	}
	w.debug.write("01_extraction.json", graph)

	defined, err := w.definer.Define(ctx, graph)
	if err != nil {
		return w.errorEvent("define", paperPath, err)
	}
	w.debug.write("02_definition.json", defined)

	canonical := pipeline.Canonicalize(defined)
	w.debug.write("03_canonicalization.json", canonical)

	if err := w.store.UpsertGraph(ctx, canonical); err != nil {
		return w.errorEvent("save", paperPath, err)
	}

	return model.Event{
		Type:               model.EventComplete,
		PaperPath:          paperPath,
		Success:            true,
		EntitiesCount:      len(canonical.Entities),
		RelationshipsCount: len(canonical.Relationships),
		FinalGraph:         canonical,
	}
}

func (w *EDC) load(ctx context.Context, paperPath string) (string, error) {
	return w.parser.Parse(ctx, paperPath)
}

func (w *EDC) errorEvent(stage, paperPath string, err error) model.Event {
	w.logger.Error("edc workflow failed", slog.String("stage", stage), slog.String("paper_path", paperPath), slog.String("error", err.Error()))
	return model.Event{
		Type:      model.EventComplete,
		PaperPath: paperPath,
		Success:   false,
		Stage:     stage,
		Error:     err.Error(),
	}
}
