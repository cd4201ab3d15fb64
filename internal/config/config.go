package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// DataDir is where uploaded source files live on local disk.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"quorum-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Embeddings
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Generation backends; LLMProvider selects which one answers.
	LLMProvider    string        `envconfig:"LLM_PROVIDER" default:"gemini"`
	GoogleAPIKey   string        `envconfig:"GOOGLE_API_KEY"`
	GeminiModel    string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash-lite"`
	OpenAIModel    string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OllamaURL      string        `envconfig:"OLLAMA_URL"`
	OllamaModel    string        `envconfig:"OLLAMA_MODEL" default:"llama3"`
	ConnectTimeout time.Duration `envconfig:"LLM_CONNECT_TIMEOUT" default:"10s"`
	ReadTimeout    time.Duration `envconfig:"LLM_READ_TIMEOUT" default:"600s"`

	// Extraction services
	AssemblyAIAPIKey string `envconfig:"ASSEMBLYAI_API_KEY"`
	PartitionerURL   string `envconfig:"PARTITIONER_URL"`
	PartitionerKey   string `envconfig:"PARTITIONER_API_KEY"`

	// Chunking
	ChunkSizeTokens    int `envconfig:"CHUNK_SIZE_TOKENS" default:"500"`
	ChunkOverlapTokens int `envconfig:"CHUNK_OVERLAP_TOKENS" default:"50"`

	// Background worker
	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"2s"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("QUORUM", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
