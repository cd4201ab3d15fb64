//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorumhq/quorum/internal/api/handlers"
	"github.com/quorumhq/quorum/internal/chunker"
	"github.com/quorumhq/quorum/internal/convo"
	"github.com/quorumhq/quorum/internal/ingest"
	"github.com/quorumhq/quorum/internal/jobs"
	"github.com/quorumhq/quorum/internal/llm"
	"github.com/quorumhq/quorum/internal/partition"
	"github.com/quorumhq/quorum/internal/prompt"
	"github.com/quorumhq/quorum/internal/rag"
	"github.com/quorumhq/quorum/internal/repository"
	"github.com/quorumhq/quorum/internal/server"
	"github.com/quorumhq/quorum/internal/service"
	"github.com/quorumhq/quorum/internal/storage"
	"github.com/quorumhq/quorum/internal/testutil"
	"github.com/quorumhq/quorum/internal/vecindex"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	Worker       *jobs.Worker
	HTTPClient   *http.Client
}

// hashEmbedder produces deterministic embeddings without a model. Texts
// sharing words land near each other, which is all retrieval tests need.
type hashEmbedder struct{}

func (e *hashEmbedder) Dimensions() int { return 16 }

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.Dimensions())
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(len(vec))]++
	}
	return vec, nil
}

func (e *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// scriptedProvider returns a fixed answer without calling a model.
type scriptedProvider struct {
	answer string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, _ *prompt.Prompt) (string, error) {
	return p.answer, nil
}

func (p *scriptedProvider) GenerateStream(ctx context.Context, _ *prompt.Prompt) (*llm.Stream, error) {
	words := strings.SplitAfter(p.answer, " ")
	return llm.NewStream(ctx, func(ctx context.Context, emit func(string) bool) {
		for _, w := range words {
			if !emit(w) {
				return
			}
		}
	}), nil
}

// stubTranscriber returns canned text for any audio URL.
type stubTranscriber struct {
	text string
}

func (t *stubTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return t.text, nil
}

// stubPartitioner returns a fixed narrative block. Structured extraction is
// not the subject of these tests.
type stubPartitioner struct{}

func (p *stubPartitioner) Partition(_ context.Context, _ string) ([]partition.Block, error) {
	return []partition.Block{{Category: "NarrativeText", Text: "partitioned content"}}, nil
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "quorum-e2e",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser, worker := startServer(t, ctx, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		Worker:       worker,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Worker != nil {
		e.Worker.Stop()
	}
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, userID string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, userID)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, userID string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, userID)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, userID string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, userID)
}

// PostFile uploads a file as multipart form data
func (e *E2ETestEnv) PostFile(path, fileName string, content []byte, userID string) (*APIResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", e.ServerURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	return e.send(req)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, userID string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	return e.send(req)
}

func (e *E2ETestEnv) send(req *http.Request) (*APIResponse, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// SourceData mirrors the source JSON shape returned by the API
type SourceData struct {
	ID           string `json:"id"`
	MeetingID    string `json:"meeting_id"`
	Kind         string `json:"kind"`
	FileName     string `json:"file_name"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	ChunkCount   int    `json:"chunk_count"`
}

// WaitForSourceStatus polls a source until it reaches a terminal status
func (e *E2ETestEnv) WaitForSourceStatus(sourceID string, timeout time.Duration) *SourceData {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := e.Get("/sources/"+sourceID, "")
		if err == nil {
			var src SourceData
			if err := json.Unmarshal(resp.Data, &src); err == nil {
				if src.Status == "completed" || src.Status == "failed" {
					return &src
				}
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	e.T.Fatalf("source %s did not reach a terminal status within %v", sourceID, timeout)
	return nil
}

// startServer wires the full stack the way the serve command does, with
// deterministic stand-ins for the embedding, generation, transcription and
// partitioning backends.
func startServer(t *testing.T, ctx context.Context, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func(), *jobs.Worker) {
	sourceRepo := repository.NewSourceRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	ingestJobRepo := repository.NewIngestJobRepository(pool)

	gateway := vecindex.NewGateway(pool, &hashEmbedder{})
	if err := gateway.EnsureCollection(ctx); err != nil {
		t.Fatalf("failed to prepare vector index: %v", err)
	}

	dataDir := t.TempDir()

	processor := ingest.NewProcessor(
		sourceRepo, chunkRepo, gateway,
		&stubTranscriber{text: "The budget was approved and hiring starts in March."},
		&stubPartitioner{}, s3Client,
		dataDir, chunker.DefaultConfig(),
	)
	worker := jobs.NewWorker(jobs.NewIngestWorker(ingestJobRepo, processor), 100*time.Millisecond)
	go worker.Start(ctx)

	provider := &scriptedProvider{answer: "The budget was approved."}
	memory := convo.NewMemory(conversationRepo)
	answerer := rag.NewAnswerer(gateway, memory, provider)
	agenda := rag.NewAgendaSuggester(sourceRepo, provider)

	sourceSvc := service.NewSourceService(sourceRepo, ingestJobRepo, gateway, s3Client, dataDir)

	router := server.NewRouter(server.RouterConfig{
		SourceHandler:  handlers.NewSourceHandler(sourceSvc),
		QueryHandler:   handlers.NewQueryHandler(answerer, agenda),
		HistoryHandler: handlers.NewHistoryHandler(conversationRepo),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}, worker
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
