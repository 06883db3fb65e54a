package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paperkg/paperkg/internal/llm"
	"github.com/paperkg/paperkg/model"
)

const definerBatchSize = 50

const definerSystemPromptTemplate = `Refine the type and, if needed, the name of each entity below.

Standardized types: %s.

Respond with ONLY a JSON object of the form:
{"entities": [{"id": "<id>", "name": "<refined name>", "type": "<one of the standardized types>"}]}`

type definerInput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type definerOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Definer refines entity type (and optionally name) fields in fixed-size
// batches, leaving relationships untouched.
type Definer struct {
	provider  llm.Provider
	logger    *slog.Logger
	batchSize int
}

// NewDefiner builds a Definer. A nil logger falls back to slog.Default.
func NewDefiner(provider llm.Provider, logger *slog.Logger) *Definer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Definer{provider: provider, logger: logger, batchSize: definerBatchSize}
}

// Define batches graph.Entities, sends each batch to the LLM for type/name
// refinement, and merges results back onto the original entities. An LLM or
// JSON-parse failure on any batch is fatal and aborts the whole call;
// relationships pass through unchanged.
func (d *Definer) Define(ctx context.Context, graph *model.GraphData) (*model.GraphData, error) {
	refined := make(map[string]definerOutput, len(graph.Entities))

	for start := 0; start < len(graph.Entities); start += d.batchSize {
		end := min(start+d.batchSize, len(graph.Entities))
		batch := graph.Entities[start:end]

		inputs := make([]definerInput, len(batch))
		for i, e := range batch {
			inputs[i] = definerInput{ID: e.ID, Name: e.Name, Type: e.Type}
		}

		outputs, err := d.defineBatch(ctx, inputs)
		if err != nil {
			return nil, err
		}
		for _, o := range outputs {
			refined[o.ID] = o
		}
	}

	merged := make([]*model.Entity, len(graph.Entities))
	for i, e := range graph.Entities {
		clone := e.Clone()
		if r, ok := refined[e.ID]; ok {
			clone.Type = r.Type
			clone.Name = r.Name
		} else {
			d.logger.Warn("definer: no refined record for entity, keeping original", slog.String("id", e.ID))
		}
		merged[i] = clone
	}

	return &model.GraphData{
		Entities:            merged,
		Relationships:       graph.Relationships,
		ReferencedEntityIds: graph.ReferencedEntityIds,
	}, nil
}

func (d *Definer) defineBatch(ctx context.Context, inputs []definerInput) ([]definerOutput, error) {
	var listing strings.Builder
	for _, in := range inputs {
		fmt.Fprintf(&listing, "- {id: %s, name: %s, type: %s}\n", in.ID, in.Name, in.Type)
	}

	sysPrompt := fmt.Sprintf(definerSystemPromptTemplate, strings.Join(model.StandardEntityTypes, ", "))

	resp, err := d.provider.Complete(ctx, llm.Request{
		SystemPrompt: sysPrompt,
		Messages:     []llm.Message{{Role: "user", Content: listing.String()}},
		Temperature:  0,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Entities []definerOutput `json:"entities"`
	}
	if err := llm.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}
	return parsed.Entities, nil
}
