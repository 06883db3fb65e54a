package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/paperkg/paperkg/internal/llm"
	"github.com/paperkg/paperkg/model"
)

const resolverSystemPrompt = `Decide whether the new entity below refers to the same real-world thing as one of the candidate entities.

Respond with ONLY a JSON object of the form:
{"action": "MERGE" | "CREATE", "targetId": "<candidate id, only if MERGE>", "confidence": <0.0-1.0>, "rationale": "<short reason>"}`

type resolverOutput struct {
	Action     string  `json:"action"`
	TargetID   string  `json:"targetId"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// resolveOne decides CREATE vs MERGE for a single new entity against its
// retrieved candidates. No-candidate entities are CREATE with confidence 1.0
// and never reach the LLM. A malformed LLM response defaults to CREATE with
// confidence 0, per the "LLM responses as sum types" policy: a parse failure
// is a normal outcome, not a fatal error.
func resolveOne(ctx context.Context, provider llm.Provider, entity *model.Entity, candidates []*model.Entity) model.MergeDecision {
	if len(candidates) == 0 {
		return model.MergeDecision{
			NewEntityID: entity.ID,
			Action:      model.MergeActionCreate,
			Confidence:  1.0,
			Rationale:   "no similar",
		}
	}

	var listing strings.Builder
	fmt.Fprintf(&listing, "New entity: {id: %s, name: %s, type: %s, description: %s}\n\nCandidates:\n", entity.ID, entity.Name, entity.Type, entity.Description)
	for _, c := range candidates {
		fmt.Fprintf(&listing, "- {id: %s, name: %s, type: %s, description: %s}\n", c.ID, c.Name, c.Type, c.Description)
	}

	resp, err := provider.Complete(ctx, llm.Request{
		SystemPrompt: resolverSystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: listing.String()}},
		Temperature:  0,
	})
	if err != nil {
		return model.MergeDecision{NewEntityID: entity.ID, Action: model.MergeActionCreate, Confidence: 0, Rationale: "resolver call failed: " + err.Error()}
	}

	var out resolverOutput
	if err := llm.ParseJSON(resp.Text, &out); err != nil {
		return model.MergeDecision{NewEntityID: entity.ID, Action: model.MergeActionCreate, Confidence: 0, Rationale: "unparseable resolver response"}
	}

	if out.Action == string(model.MergeActionMerge) && out.TargetID != "" {
		return model.MergeDecision{NewEntityID: entity.ID, Action: model.MergeActionMerge, TargetID: out.TargetID, Confidence: out.Confidence, Rationale: out.Rationale}
	}
	return model.MergeDecision{NewEntityID: entity.ID, Action: model.MergeActionCreate, Confidence: out.Confidence, Rationale: out.Rationale}
}
