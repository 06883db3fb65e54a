// Command paperkg builds and queries a knowledge graph extracted from
// academic papers. It has two modes: agentic (--agent "<task>"), where an
// LLM-driven controller plans discovery/processing via tools, and legacy
// (<path-to-pdf> [--integrate]), which runs a single paper through EDC and
// optionally Integration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/paperkg/paperkg/agent"
	"github.com/paperkg/paperkg/internal/config"
	"github.com/paperkg/paperkg/internal/discovery"
	"github.com/paperkg/paperkg/internal/embedding"
	"github.com/paperkg/paperkg/internal/llm"
	"github.com/paperkg/paperkg/internal/llm/anthropic"
	"github.com/paperkg/paperkg/internal/llm/breaker"
	"github.com/paperkg/paperkg/internal/llm/openai"
	"github.com/paperkg/paperkg/internal/logging"
	"github.com/paperkg/paperkg/internal/parser"
	"github.com/paperkg/paperkg/pipeline"
	"github.com/paperkg/paperkg/store"
	"github.com/paperkg/paperkg/workflow"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := logging.New(os.Stderr, slog.LevelInfo)

	fs := flag.NewFlagSet("paperkg", flag.ContinueOnError)
	agentTask := fs.String("agent", "", "run the agentic controller with this free-form task instead of processing a single paper")
	integrate := fs.Bool("integrate", false, "also run the Integration workflow after EDC (legacy mode only)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", slog.String("error", err.Error()))
		return 1
	}

	deps, err := wire(cfg, logger)
	if err != nil {
		logger.Error("wire dependencies", slog.String("error", err.Error()))
		return 1
	}
	defer deps.store.Close()

	if *agentTask != "" {
		return runAgent(deps, *agentTask, logger)
	}

	// Flag parsing stops at the first positional argument, so flags given
	// after the path (paperkg <path> --integrate) are parsed in a second pass.
	paperPath := fs.Arg(0)
	if fs.NArg() >= 1 {
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return 1
		}
	}
	if paperPath == "" || fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "usage: paperkg <path-to-pdf> [--integrate]  |  paperkg --agent \"<task>\"")
		return 1
	}
	return runLegacy(deps, paperPath, *integrate, logger)
}

type dependencies struct {
	store       *store.GraphStore
	edc         *workflow.EDC
	integration *workflow.Integration
	discovery   *discovery.Client
	llmProvider llm.Provider
}

func wire(cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	embedder := embedding.New(cfg.Embedding)

	s, err := store.New(cfg.Database, cfg.Embedding.Dimension, embedder, logger)
	if err != nil {
		return nil, err
	}

	var provider llm.Provider
	switch cfg.LLM.Provider {
	case "openai":
		provider = openai.New(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	default:
		provider = anthropic.New(cfg.LLM.APIKey, cfg.LLM.Model)
	}
	provider = breaker.New("llm", provider)

	parserClient := parser.New(cfg.Parser)
	discoveryClient := discovery.New(cfg.Discovery)

	edc := workflow.NewEDC(workflow.Config{
		Parser:          parserClient,
		PreParser:       pipeline.NewPreParser(provider, logger),
		Extractor:       pipeline.NewExtractor(provider, cfg.Pipeline.ChunkingEnabled, logger),
		Definer:         pipeline.NewDefiner(provider, logger),
		Store:           s,
		Logger:          logger,
		DebugDir:        cfg.Pipeline.DebugDir,
		PreParseEnabled: true,
	})

	integration := workflow.NewIntegration(workflow.IntegrationConfig{
		Store:       s,
		Resolver:    provider,
		Logger:      logger,
		DebugDir:    cfg.Pipeline.DebugDir,
		RetrieveK:   cfg.Pipeline.SimilarityK,
		Concurrency: cfg.Pipeline.ResolverConcurrency,
	})

	return &dependencies{
		store:       s,
		edc:         edc,
		integration: integration,
		discovery:   discoveryClient,
		llmProvider: provider,
	}, nil
}

func runLegacy(deps *dependencies, paperPath string, integrate bool, logger *slog.Logger) int {
	ctx := context.Background()

	event := deps.edc.Run(ctx, paperPath)
	if !event.Success {
		logger.Error("pipeline failed", slog.String("stage", event.Stage), slog.String("error", event.Error))
		return 1
	}
	logger.Info("extraction complete", slog.Int("entities", event.EntitiesCount), slog.Int("relationships", event.RelationshipsCount))

	if !integrate {
		return 0
	}

	integrationEvent := deps.integration.Run(ctx, event.FinalGraph, paperPath)
	if !integrationEvent.Success {
		logger.Error("integration failed", slog.String("error", integrationEvent.Error))
		return 1
	}
	logger.Info("integration complete",
		slog.Int("entities_merged", integrationEvent.EntitiesMerged),
		slog.Int("entities_created", integrationEvent.EntitiesCreated))
	return 0
}

func runAgent(deps *dependencies, task string, logger *slog.Logger) int {
	ctx := context.Background()

	tools := &agent.Tools{
		Discovery:   deps.discovery,
		Store:       deps.store,
		EDC:         deps.edc,
		Integration: deps.integration,
		DownloadDir: "downloads",
	}
	controller := agent.NewController(deps.llmProvider, tools, logger, 0)

	answer, err := controller.Run(ctx, task)
	if err != nil {
		logger.Error("agent run failed", slog.String("error", err.Error()))
		return 1
	}

	fmt.Println(answer)
	return 0
}
