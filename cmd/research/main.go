// Command research is the CLI entry point for the deep research agent: it
// reads queries on stdin via readline until "exit", drives one
// coordinator.Start run per query, and renders the streamed bus events to
// the terminal as they arrive.
// Grounded on the teacher's internal/repl.REPL / internal/repl.Renderer
// (readline prompt + colorized event rendering), collapsed from a
// persistent multi-session shell down to the one-shot run loop
// SPEC_FULL.md §6 describes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"deepresearch/internal/bus"
	"deepresearch/internal/clarify"
	"deepresearch/internal/compress"
	"deepresearch/internal/config"
	"deepresearch/internal/coordinator"
	"deepresearch/internal/critique"
	"deepresearch/internal/fetch"
	"deepresearch/internal/llm"
	"deepresearch/internal/planning"
	"deepresearch/internal/research"
	"deepresearch/internal/search"
	"deepresearch/internal/storage"
	"deepresearch/internal/supervisor"
	"deepresearch/internal/tools"
	"deepresearch/internal/writer"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	cfg := config.Load()

	if cfg.OpenRouterAPIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: OPENROUTER_API_KEY environment variable not set")
		os.Exit(1)
	}
	if cfg.BraveAPIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: BRAVE_API_KEY environment variable not set")
		os.Exit(1)
	}

	coord, eventBus := buildCoordinator(cfg)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mresearch>\033[0m ",
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: readline init: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	welcome()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			break
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		runOnce(ctx, coord, eventBus, cfg, query)

		if ctx.Err() != nil {
			break
		}
	}
}

// buildCoordinator wires every collaborator the coordinator needs, the way
// the teacher's internal/repl.New wires a Router's Context.
func buildCoordinator(cfg *config.Config) (*coordinator.Coordinator, *bus.Bus) {
	client := llm.NewClient(cfg)
	searchProvider := search.NewBraveProvider(cfg.BraveAPIKey, cfg.SearchTimeout)
	fetcher := fetch.NewHTTPFetcher(cfg.BodyTruncateBytes)

	runner := &research.Runner{
		Search:             searchProvider,
		Fetch:              fetcher,
		Client:             client,
		MaxResultsPerQuery: 5,
		Documents:          research.NewFileDocumentReader(),
		FetchConcurrency:   cfg.FetchConcurrency,
		FetchTimeout:       cfg.FetchTimeout,
		SearchTimeout:      cfg.SearchTimeout,
	}

	eventBus := bus.New(256)
	checkpoint := storage.NewFilesystemStore(cfg.EventStoreDir)

	var toolRegistry tools.ToolExecutor
	if cfg.EnablePluginTools {
		toolRegistry = tools.NewRegistry(cfg.BraveAPIKey, client)
	}

	deps := coordinator.Deps{
		Clarifier:    clarify.New(client),
		Planner:      planning.NewPlanner(client),
		Research:     runner,
		Compressor:   compress.New(cfg.JaccardDedupThreshold, cfg.CompressionTargetRatio),
		Writer:       writer.New(client),
		Critic:       critique.New(client),
		Client:       client,
		Checkpoint:   checkpoint,
		Bus:          eventBus,
		Caps:         supervisor.Caps{MaxParallelismCap: cfg.MaxParallelismCap, MaxIterationsCap: cfg.MaxIterationsCap},
		ToolRegistry: toolRegistry,
	}

	return coordinator.New(deps, cfg), eventBus
}

// runOnce drives a single Start call, printing every streamed event as it
// arrives on a dedicated subscriber goroutine while the run blocks.
func runOnce(ctx context.Context, coord *coordinator.Coordinator, eventBus *bus.Bus, cfg *config.Config, query string) {
	events := eventBus.Subscribe(bus.StageStart, bus.StageEnd, bus.Thought, bus.FindingAdded, bus.ErrorEvent, bus.Done)
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		for ev := range events {
			renderEvent(ev)
			if ev.Type == bus.Done {
				return
			}
		}
	}()

	opts := coordinator.Options{
		EnablePluginTools:       cfg.EnablePluginTools,
		OverallDeadlineOverride: cfg.OverallDeadline,
	}

	final, err := coord.Start(ctx, query, opts)
	<-renderDone

	if err != nil {
		red.Printf("\nrun ended with error: %v\n", err)
	}
	if final.NeedsClarification {
		yellow.Printf("\nClarification needed: %s\n", final.ClarificationQuestion)
		return
	}
	if final.Report != "" {
		fmt.Println()
		bold.Println("--- Report ---")
		fmt.Println(final.Report)
	}
}

func renderEvent(ev bus.Event) {
	switch ev.Type {
	case bus.StageStart:
		cyan.Printf("\n[%s] starting...\n", ev.Data)
	case bus.StageEnd:
		dim.Printf("[stage done] %+v\n", ev.Data)
	case bus.Thought:
		dim.Printf("  thought: %v\n", ev.Data)
	case bus.FindingAdded:
		green.Printf("  + finding from %v\n", ev.Data)
	case bus.ErrorEvent:
		red.Printf("  ! %+v\n", ev.Data)
	case bus.Done:
		bold.Println("\n[done]")
	}
}

func welcome() {
	cyan.Println(`
+-----------------------------------------------------------+
|                  Deep Research Agent                       |
|                                                             |
|  Type a question to start a research run. Ctrl+C to stop   |
|  a run in progress; "exit" to quit.                        |
+-----------------------------------------------------------+
`)
}
