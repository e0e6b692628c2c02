package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feedbackexplorer/internal/backend"
	"feedbackexplorer/internal/config"
	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/embedding"
	"feedbackexplorer/internal/embedding/openai"
	"feedbackexplorer/internal/embedding/tfidf"
	"feedbackexplorer/internal/gateway"
	"feedbackexplorer/internal/logging"
	"feedbackexplorer/internal/service"
	"feedbackexplorer/internal/summarizer"
	"feedbackexplorer/internal/tui"
	"feedbackexplorer/internal/vectorstore/memory"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		apiURL     string
		batchSize  int
		topK       int
		noSummary  bool
		addr       string
	)

	rootCmd := &cobra.Command{
		Use:          "feedback",
		Short:        "Explore customer feedback with semantic search",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), configPath, apiURL)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default ./config.yaml or ~/.config/feedback/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Feedback API base URL (overrides config and "+config.BaseURLEnv+")")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive explorer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), configPath, apiURL)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the vector store status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), configPath, apiURL)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Upload a feedback CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), configPath, apiURL, args[0], batchSize)
		},
	}
	ingestCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows embedded per batch (default from config)")

	askCmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask a question about the loaded feedback",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), configPath, apiURL, strings.Join(args, " "), topK, noSummary)
		},
	}
	askCmd.Flags().IntVar(&topK, "top-k", 0, "Number of feedback entries to retrieve (default from config)")
	askCmd.Flags().BoolVar(&noSummary, "no-summary", false, "Skip the generated summary")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local feedback API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	rootCmd.AddCommand(tuiCmd, statusCmd, ingestCmd, askCmd, serveCmd)
	return rootCmd
}

func loadConfig(path, apiURL string) (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	return cfg, nil
}

// newLogger writes to the rotated log file; console output is added for
// commands that do not own the terminal.
func newLogger(cfg *config.AppConfig, console bool) *zap.Logger {
	return logging.New(logging.Options{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    console,
	})
}

func newExplorer(cfg *config.AppConfig, logger *zap.Logger) *service.Explorer {
	client := gateway.NewClient(gateway.Config{BaseURL: cfg.API.BaseURL, Logger: logger})
	return service.NewExplorer(client, service.Options{
		BatchSize:       cfg.Upload.BatchSize,
		TopK:            cfg.Query.TopK,
		GenerateSummary: cfg.Query.SummaryEnabled(),
	}, logger)
}

func runTUI(ctx context.Context, configPath, apiURL string) error {
	cfg, err := loadConfig(configPath, apiURL)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, false)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting explorer", zap.String("api", cfg.API.BaseURL))
	return tui.Run(ctx, newExplorer(cfg, logger))
}

func runStatus(ctx context.Context, configPath, apiURL string) error {
	cfg, err := loadConfig(configPath, apiURL)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, false)
	defer func() { _ = logger.Sync() }()

	client := gateway.NewClient(gateway.Config{BaseURL: cfg.API.BaseURL, Logger: logger})
	stats, err := client.Status(ctx)
	if err != nil {
		return errors.New(domain.Detail(err))
	}
	fmt.Printf("API:           %s\n", cfg.API.BaseURL)
	fmt.Printf("Entries:       %d\n", stats.TotalEntries)
	fmt.Printf("Dimension:     %d\n", stats.Dimension)
	for k, v := range stats.Extra {
		fmt.Printf("%-14s %v\n", k+":", v)
	}
	if domain.DataLoaded(stats) {
		fmt.Println("Ready for questions.")
	} else {
		fmt.Println("No feedback loaded yet. Run `feedback ingest FILE` first.")
	}
	return nil
}

func runIngest(ctx context.Context, configPath, apiURL, path string, batchSize int) error {
	cfg, err := loadConfig(configPath, apiURL)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, true)
	defer func() { _ = logger.Sync() }()

	explorer := newExplorer(cfg, logger)
	if err := explorer.Start(ctx); err != nil {
		return err
	}
	start := time.Now()
	job, err := explorer.Upload(ctx, path, batchSize)
	if err != nil {
		return errors.New(domain.Detail(err))
	}
	fmt.Println(job.Message)
	if job.Stats != nil {
		fmt.Printf("Processed %d of %d entries in %s (batch size %d).\n",
			job.Stats.Processed, job.Stats.Total, time.Since(start).Round(time.Millisecond), job.BatchSize)
	}
	return nil
}

func runAsk(ctx context.Context, configPath, apiURL, question string, topK int, noSummary bool) error {
	cfg, err := loadConfig(configPath, apiURL)
	if err != nil {
		return err
	}
	if topK > 0 {
		cfg.Query.TopK = topK
	}
	if noSummary {
		off := false
		cfg.Query.GenerateSummary = &off
	}
	logger := newLogger(cfg, false)
	defer func() { _ = logger.Sync() }()

	explorer := newExplorer(cfg, logger)
	if err := explorer.Start(ctx); err != nil {
		return err
	}
	turn, err := explorer.Ask(ctx, question)
	if err != nil {
		return errors.New(domain.Detail(err))
	}
	if turn.Kind == domain.TurnError {
		return errors.New(turn.Text)
	}
	fmt.Println(turn.Text)
	if len(turn.Sources) > 0 {
		fmt.Println()
	}
	for i, src := range turn.Sources {
		line := fmt.Sprintf("%d. [%d%% match]", i+1, src.MatchPercent())
		if rating, ok := src.Metadata.Rating(); ok {
			line += fmt.Sprintf(" [%.0f/5]", rating)
		}
		fmt.Println(line + " " + src.Text)
	}
	return nil
}

func runServe(ctx context.Context, configPath, addr string) error {
	cfg, err := loadConfig(configPath, "")
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Backend.Addr = addr
	}
	logger := newLogger(cfg, true)
	defer func() { _ = logger.Sync() }()

	emb, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	index := backend.NewIndex(emb, memory.NewStorage(), logger)
	srv := backend.NewServer(index, summarizer.NewFrequencySummarizer(cfg.Backend.MaxSummarySentences), logger)
	return srv.ListenAndServe(ctx, cfg.Backend.Addr)
}

func newEmbedder(cfg *config.AppConfig, logger *zap.Logger) (embedding.Embedder, error) {
	switch cfg.Backend.Embedder {
	case "tfidf", "":
		return tfidf.NewEmbedder(cfg.Backend.MaxTerms), nil
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL: cfg.Backend.OpenAI.BaseURL,
			APIKey:  os.Getenv(cfg.Backend.OpenAI.APIKeyEnv),
			Model:   cfg.Backend.OpenAI.Model,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Backend.Embedder)
	}
}
