package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/quorumhq/quorum/internal/api/handlers"
	"github.com/quorumhq/quorum/internal/chunker"
	"github.com/quorumhq/quorum/internal/config"
	"github.com/quorumhq/quorum/internal/convo"
	"github.com/quorumhq/quorum/internal/database"
	"github.com/quorumhq/quorum/internal/ingest"
	"github.com/quorumhq/quorum/internal/jobs"
	"github.com/quorumhq/quorum/internal/llm"
	"github.com/quorumhq/quorum/internal/openai"
	"github.com/quorumhq/quorum/internal/partition"
	"github.com/quorumhq/quorum/internal/rag"
	"github.com/quorumhq/quorum/internal/repository"
	"github.com/quorumhq/quorum/internal/server"
	"github.com/quorumhq/quorum/internal/service"
	"github.com/quorumhq/quorum/internal/storage"
	"github.com/quorumhq/quorum/internal/telemetry"
	"github.com/quorumhq/quorum/internal/transcribe"
	"github.com/quorumhq/quorum/internal/vecindex"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and ingestion worker",
		Long:  "Start the quorum API server and the background ingestion worker on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if a DSN is set
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	sourceRepo := repository.NewSourceRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	ingestJobRepo := repository.NewIngestJobRepository(pool)

	var storageClient *storage.S3Client
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		storageClient, err = storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := storageClient.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	chunkCfg := chunker.Config{
		ChunkSize: cfg.ChunkSizeTokens,
		Overlap:   cfg.ChunkOverlapTokens,
	}

	// The vector index and the ingestion worker need an embedder. Without
	// one, queries degrade to no results and ingest jobs stay pending.
	var searcher rag.Searcher = &noopSearcher{}
	var ingestWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embedder := openai.NewClient(cfg.OpenAIAPIKey)
		gateway := vecindex.NewGateway(pool, embedder)
		if err := gateway.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("failed to prepare vector index: %w", err)
		}
		searcher = gateway

		transcriber := transcribe.NewClient(transcribe.Config{APIKey: cfg.AssemblyAIAPIKey})
		partitioner := partition.NewClient(partition.Config{
			BaseURL: cfg.PartitionerURL,
			APIKey:  cfg.PartitionerKey,
		})

		processor := ingest.NewProcessor(
			sourceRepo, chunkRepo, gateway,
			transcriber, partitioner, storageClient,
			cfg.DataDir, chunkCfg,
		)
		ingestProcessor := jobs.NewIngestWorker(ingestJobRepo, processor)
		ingestWorker = jobs.NewWorker(ingestProcessor, cfg.WorkerPollInterval)
		go ingestWorker.Start(ctx)
		log.Println("ingestion worker started")
	} else {
		log.Println("OPENAI_API_KEY not set; vector index disabled, ingest jobs will wait")
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	log.Printf("generation provider: %s", provider.Name())

	memory := convo.NewMemory(conversationRepo)
	answerer := rag.NewAnswerer(searcher, memory, provider)
	agenda := rag.NewAgendaSuggester(sourceRepo, provider)

	var deleteIndex service.VectorIndexInterface = &noopIndex{}
	if gw, ok := searcher.(*vecindex.Gateway); ok {
		deleteIndex = gw
	}
	sourceSvc := service.NewSourceService(sourceRepo, ingestJobRepo, deleteIndex, storageClient, cfg.DataDir)

	routerCfg := server.RouterConfig{
		SourceHandler:  handlers.NewSourceHandler(sourceSvc),
		QueryHandler:   handlers.NewQueryHandler(answerer, agenda),
		HistoryHandler: handlers.NewHistoryHandler(conversationRepo),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildProvider selects the generation backend. Providers with missing
// credentials still construct; they fail fast on first use.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return llm.NewGemini(llm.GeminiConfig{
			APIKey:         cfg.GoogleAPIKey,
			Model:          cfg.GeminiModel,
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
		}), nil
	case "openai":
		return llm.NewOpenAIChat(llm.OpenAIChatConfig{
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.OpenAIModel,
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
		}), nil
	case "ollama":
		return llm.NewOllama(llm.OllamaConfig{
			BaseURL:        cfg.OllamaURL,
			Model:          cfg.OllamaModel,
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q (expected gemini, openai or ollama)", cfg.LLMProvider)
	}
}

// noopSearcher stands in when no embedder is configured.
type noopSearcher struct{}

func (s *noopSearcher) Search(_ context.Context, _ string, _ *string, _ int) []vecindex.SearchResult {
	return nil
}

// noopIndex stands in for vector deletes when no embedder is configured.
type noopIndex struct{}

func (i *noopIndex) DeleteSource(_ context.Context, _ string) error {
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
