package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paperkg/paperkg/internal/llm"
)

const defaultMaxSteps = 15

const controllerSystemPrompt = `You are a research assistant building a knowledge graph from academic papers.

You have these tools:
- searchPapers(query, limit) -> list of {id, title, citationCount}
- getCitations(paperId, limit) -> list of {id, title, citationCount}
- downloadPaper(paper) -> {success, path}
- processPaper(paperPath, sourcePaperId) -> {success, entities, relationships, stats, error}
- queryKnowledgeGraph(searchTerm, limit) -> {entities, count}
- summarizeKnowledgeGraph() -> {totalEntities, totalRelationships, topEntityTypes}

On each turn, respond with ONLY a JSON object, either:
{"tool": "<tool name>", "args": {...}}
to call a tool, or:
{"finish": "<final answer summarizing what you accomplished>"}
when the task is complete.`

// Controller drives a ReACT loop: prompt the LLM for the next action,
// execute it against Tools, feed the observation back, repeat until the LLM
// emits finish or the step cap is reached. It holds no state across Run
// calls; all durable state lives in the graph store the tools operate on.
type Controller struct {
	provider llm.Provider
	tools    *Tools
	logger   *slog.Logger
	maxSteps int
}

// NewController builds a Controller. A nil logger falls back to
// slog.Default; maxSteps <= 0 defaults to 15.
func NewController(provider llm.Provider, tools *Tools, logger *slog.Logger, maxSteps int) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &Controller{provider: provider, tools: tools, logger: logger, maxSteps: maxSteps}
}

type action struct {
	Tool   string          `json:"tool"`
	Args   json.RawMessage `json:"args"`
	Finish string          `json:"finish"`
}

// Run drives the loop for task and returns the agent's final answer. If the
// step cap is reached without a finish action, it returns the last
// observation as a best-effort answer.
func (c *Controller) Run(ctx context.Context, task string) (string, error) {
	messages := []llm.Message{{Role: "user", Content: task}}
	var lastObservation string

	for step := 0; step < c.maxSteps; step++ {
		resp, err := c.provider.Complete(ctx, llm.Request{
			SystemPrompt: controllerSystemPrompt,
			Messages:     messages,
			Temperature:  0,
		})
		if err != nil {
			return "", err
		}

		var act action
		if err := llm.ParseJSON(resp.Text, &act); err != nil {
			c.logger.Warn("agent: unparseable action, stopping", slog.String("error", err.Error()))
			return lastObservation, nil
		}

		if act.Finish != "" {
			return act.Finish, nil
		}

		observation := c.dispatch(ctx, act)
		lastObservation = observation
		c.logger.Info("agent step", slog.Int("step", step), slog.String("tool", act.Tool))

		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Text},
			llm.Message{Role: "user", Content: observation},
		)
	}

	c.logger.Warn("agent: reached max steps without finishing", slog.Int("max_steps", c.maxSteps))
	return lastObservation, nil
}

func (c *Controller) dispatch(ctx context.Context, act action) string {
	result, err := c.callTool(ctx, act.Tool, act.Args)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(encoded)
}

func (c *Controller) callTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch strings.TrimSpace(name) {
	case "searchPapers":
		var in struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
		return c.tools.SearchPapers(ctx, in.Query, in.Limit)

	case "getCitations":
		var in struct {
			PaperID string `json:"paperId"`
			Limit   int    `json:"limit"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
		return c.tools.GetCitations(ctx, in.PaperID, in.Limit)

	case "downloadPaper":
		var in struct {
			Paper paperDTO `json:"paper"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
		return c.tools.DownloadPaper(ctx, in.Paper), nil

	case "processPaper":
		var in struct {
			PaperPath     string `json:"paperPath"`
			SourcePaperID string `json:"sourcePaperId"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
		return c.tools.ProcessPaper(ctx, in.PaperPath, in.SourcePaperID), nil

	case "queryKnowledgeGraph":
		var in struct {
			SearchTerm string `json:"searchTerm"`
			Limit      int    `json:"limit"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
		return c.tools.QueryKnowledgeGraph(ctx, in.SearchTerm, in.Limit)

	case "summarizeKnowledgeGraph":
		return c.tools.SummarizeKnowledgeGraph(ctx)

	default:
		return nil, fmt.Errorf("agent: unknown tool %q", name)
	}
}
