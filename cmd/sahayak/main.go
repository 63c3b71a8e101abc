// Package main is the entry point for the Khet Sahayak CLI, an
// agricultural assistant for Indian farmers. It answers questions about
// weather, mandi prices, and general farming topics, and falls back to
// the local chat history when the network is unreachable.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/paharikhet/sahayak/internal/config"
	"github.com/paharikhet/sahayak/internal/connectivity"
	"github.com/paharikhet/sahayak/internal/data"
	"github.com/paharikhet/sahayak/internal/llm"
	"github.com/paharikhet/sahayak/internal/logging"
	"github.com/paharikhet/sahayak/internal/offline"
	"github.com/paharikhet/sahayak/internal/orchestrator"
	"github.com/paharikhet/sahayak/internal/router"
	"github.com/paharikhet/sahayak/internal/synth"
	"github.com/paharikhet/sahayak/internal/tools"
	"github.com/paharikhet/sahayak/internal/ui"
	"github.com/paharikhet/sahayak/internal/validator"
)

var (
	version = "0.1.0"
	cfgPath string
	dbPath  string
	verbose bool
	log     *logging.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sahayak",
		Short: "Khet Sahayak - Agricultural assistant for Indian farmers",
		Long: `Khet Sahayak answers farming questions in plain language:
live weather from OpenWeatherMap, mandi prices from data.gov.in,
and general agricultural topics through web search.

When the network is down, it searches your past conversations
for a similar answer instead.

Start interactive chat:  sahayak
One-shot question:       sahayak ask "weather in Dehradun"
Browse past answers:     sahayak history`,
		PersistentPreRunE: initLogging,
		RunE:              runChat,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.sahayak/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "chat history database path (default ~/.sahayak/history.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Khet Sahayak v%s\n", version)
		},
	})

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogging(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	logDir := filepath.Join(home, ".sahayak", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFile := filepath.Join(logDir, fmt.Sprintf("sahayak_%s.log", timestamp))

	lcfg := logging.DefaultConfig()
	if verbose {
		lcfg.Level = logging.LevelDebug
	}
	lcfg.FilePath = logFile

	log = logging.New(lcfg)
	logging.SetGlobal(log)

	log.Debug("Session log: %s", logFile)
	return nil
}

// loadEnv loads API keys from .env files into the process environment.
// The working directory is tried first, then ~/.sahayak/.env.
func loadEnv() {
	_ = godotenv.Load()

	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".sahayak", ".env"))
	}
}

func loadConfig() (*config.Config, error) {
	loadEnv()

	var (
		cfg *config.Config
		err error
	)
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if dbPath != "" {
		cfg.History.DBPath = dbPath
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fileLogger builds the zerolog logger used by the data and offline
// layers, writing to the session log file only.
func fileLogger() zerolog.Logger {
	home, err := os.UserHomeDir()
	if err != nil {
		return zerolog.Nop()
	}

	logDir := filepath.Join(home, ".sahayak", "logs")
	path := filepath.Join(logDir, "sahayak_data.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop()
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(f).Level(level).With().Timestamp().Logger()
}

// initPipeline builds the full response pipeline from configuration.
// The returned cleanup closes the chat history database.
func initPipeline() (*orchestrator.Orchestrator, *data.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	zl := fileLogger()

	store, err := data.Open(cfg.History.DBPath, zl)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open chat history: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("close chat history: %v", err)
		}
	}

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("init llm provider: %w", err)
	}
	log.Debug("LLM provider: %s", provider.Name())

	embedder := offline.NewOllamaEmbedder(&offline.OllamaEmbedderConfig{
		Host:  cfg.Offline.OllamaURL,
		Model: cfg.Offline.EmbeddingModel,
	}, zl)
	searcher := offline.NewSearcher(store, embedder, cfg.Offline.SimilarityThreshold, zl)

	orch := orchestrator.New(
		validator.New(provider),
		router.New(provider),
		tools.FromConfig(cfg),
		synth.New(provider),
		searcher,
		store,
		connectivity.NewProbe(),
	)

	return orch, store, cleanup, nil
}

func askCmd() *cobra.Command {
	var (
		forceOffline bool
		matches      int
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a one-shot question",
		Long: `Ask a question and print the answer.

Examples:
  sahayak ask "What is the weather in Dehradun?"
  sahayak ask "price of wheat in Punjab"
  sahayak ask --offline "how to treat wheat rust"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			orch, _, cleanup, err := initPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			if matches > 0 {
				orch.OfflineTopK = matches
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			result := orch.Respond(ctx, query, forceOffline)
			fmt.Print(renderMarkdown(result.Response))
			if verbose {
				fmt.Fprintf(os.Stderr, "[tool: %s, offline: %t]\n", result.Tool, result.Offline)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceOffline, "offline", false, "answer from chat history without network calls")
	cmd.Flags().IntVar(&matches, "matches", 0, "how many history matches the offline path considers")

	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat screen",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	orch, _, cleanup, err := initPipeline()
	if err != nil {
		return err
	}
	defer cleanup()

	// Log lines on stderr would corrupt the chat screen.
	logging.DisableConsoleOutput()

	return ui.Run(context.Background(), orch, false)
}

func historyCmd() *cobra.Command {
	var (
		limit  int
		search string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := data.Open(cfg.History.DBPath, fileLogger())
			if err != nil {
				return fmt.Errorf("open chat history: %w", err)
			}
			defer store.Close()

			ctx := context.Background()
			var records []data.ChatRecord
			if search != "" {
				records, err = store.Search(ctx, search, limit)
			} else {
				records, err = store.All(ctx, limit)
			}
			if err != nil {
				return fmt.Errorf("read chat history: %w", err)
			}

			if len(records) == 0 {
				fmt.Println("No conversations found.")
				return nil
			}

			for _, rec := range records {
				fmt.Printf("#%d  %s  [%s]\n", rec.ID, rec.Timestamp.Format("2006-01-02 15:04"), rec.ToolUsed)
				fmt.Printf("  Q: %s\n", rec.UserQuery)
				fmt.Printf("  A: %s\n\n", truncate(rec.AssistantResponse, 200))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum conversations to show")
	cmd.Flags().StringVar(&search, "search", "", "show only conversations whose question contains this text")

	cmd.AddCommand(historyClearCmd())

	return cmd
}

func historyClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear history without --yes")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := data.Open(cfg.History.DBPath, fileLogger())
			if err != nil {
				return fmt.Errorf("open chat history: %w", err)
			}
			defer store.Close()

			n, err := store.Clear(context.Background())
			if err != nil {
				return fmt.Errorf("clear chat history: %w", err)
			}

			fmt.Printf("Deleted %d conversation(s).\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("Khet Sahayak Configuration:")
			fmt.Println("---------------------------")
			fmt.Printf("LLM Provider:    %s\n", cfg.LLM.DefaultProvider)
			if p, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; ok {
				fmt.Printf("Model:           %s\n", p.Model)
			}
			fmt.Printf("History DB:      %s\n", cfg.History.DBPath)
			fmt.Printf("Embedding Model: %s\n", cfg.Offline.EmbeddingModel)
			fmt.Printf("Log Level:       %s\n", cfg.Logging.Level)
			fmt.Printf("Weather Key:     %s\n", maskKey(cfg.APIs.OpenWeatherKey))
			fmt.Printf("Data.gov Key:    %s\n", maskKey(cfg.APIs.DataGovKey))
			fmt.Printf("Google Key:      %s\n", maskKey(cfg.APIs.GoogleKey))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgPath
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("get home directory: %w", err)
				}
				path = filepath.Join(home, ".sahayak", "config.yaml")
			}

			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}

			if err := config.Default().SaveToPath(path); err != nil {
				return err
			}
			fmt.Printf("Wrote default config to %s\n", path)
			return nil
		},
	})

	return cmd
}

// renderMarkdown pretty-prints an answer for the terminal, falling back
// to the raw text when rendering is unavailable.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
		glamour.WithColorProfile(termenv.ColorProfile()),
	)
	if err != nil {
		return content + "\n"
	}

	out, err := renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 6 {
		return "******"
	}
	return key[:4] + "..." + strings.Repeat("*", 4)
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
