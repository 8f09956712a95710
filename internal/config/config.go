// Package config loads the process-wide configuration surface documented
// exhaustively in SPEC_FULL.md §6, using the teacher's own approach: a
// flat struct populated from environment variables via godotenv, with
// sensible defaults for every field.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full configuration surface for one process.
type Config struct {
	// API keys for the reference Search/Model collaborators.
	OpenRouterAPIKey string
	BraveAPIKey      string

	// Paths
	EventStoreDir string // filesystem checkpoint sink base directory
	HistoryFile   string

	// Research engine caps (SPEC_FULL.md §6 configuration surface)
	MaxParallelismCap     int
	MaxIterationsCap      int
	FetchConcurrency      int
	FetchTimeout          time.Duration
	SearchTimeout         time.Duration
	ModelTimeout          time.Duration
	BodyTruncateBytes     int
	CompressionTargetRatio float64
	JaccardDedupThreshold float64
	OverallDeadline       time.Duration
	EnablePluginTools     bool

	// MCP_ENABLED is accepted but inert: this repository implements no
	// MCP surface (SPEC_FULL.md §9 Open Question (b)).
	MCPEnabled bool

	// Model
	Model string

	Verbose bool
}

// Load reads configuration from the environment and defaults, mirroring
// the teacher's config.Load (.env via godotenv, getenv-or-default helper).
func Load() *Config {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()

	return &Config{
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		BraveAPIKey:      os.Getenv("BRAVE_API_KEY"),

		EventStoreDir: getEnvOrDefault("RESEARCH_EVENT_STORE_DIR", filepath.Join(home, ".deepresearch_events")),
		HistoryFile:   filepath.Join(home, ".deepresearch_history"),

		MaxParallelismCap:      getEnvIntOrDefault("MAX_PARALLELISM_CAP", 4),
		MaxIterationsCap:       getEnvIntOrDefault("MAX_ITERATIONS_CAP", 3),
		FetchConcurrency:       getEnvIntOrDefault("FETCH_CONCURRENCY", 3),
		FetchTimeout:           time.Duration(getEnvIntOrDefault("FETCH_TIMEOUT_MS", 10000)) * time.Millisecond,
		SearchTimeout:          time.Duration(getEnvIntOrDefault("SEARCH_TIMEOUT_MS", 15000)) * time.Millisecond,
		ModelTimeout:           time.Duration(getEnvIntOrDefault("MODEL_TIMEOUT_MS", 60000)) * time.Millisecond,
		BodyTruncateBytes:      getEnvIntOrDefault("BODY_TRUNCATE_BYTES", 51200),
		CompressionTargetRatio: getEnvFloatOrDefault("COMPRESSION_TARGET_RATIO", 0.5),
		JaccardDedupThreshold:  getEnvFloatOrDefault("JACCARD_DEDUP_THRESHOLD", 0.75),
		OverallDeadline:        time.Duration(getEnvIntOrDefault("OVERALL_DEADLINE_MS", 180000)) * time.Millisecond,
		EnablePluginTools:      os.Getenv("ENABLE_PLUGIN_TOOLS") == "true",
		MCPEnabled:             os.Getenv("MCP_ENABLED") == "true",

		Model: getEnvOrDefault("RESEARCH_MODEL", "alibaba/tongyi-deepresearch-30b-a3b"),

		Verbose: os.Getenv("RESEARCH_VERBOSE") == "true",
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
