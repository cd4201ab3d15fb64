// Package partition is a client for an HTTP document-partitioning service
// that splits PDF and Office files into typed text blocks.
package partition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/quorumhq/quorum/internal/domain"
)

// Block is one extracted region of a document.
type Block struct {
	Category string         `json:"type"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Config configures the partitioner client. An empty BaseURL means the
// partitioner is not configured.
type Config struct {
	BaseURL string
	APIKey  string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, httpClient: &http.Client{}}
}

// Configured reports whether a partitioner endpoint is set.
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != ""
}

// Partition uploads the file and returns its typed blocks in document order.
func (c *Client) Partition(ctx context.Context, localPath string) ([]Block, error) {
	if !c.Configured() {
		return nil, domain.ErrPartitionerNotConfigured
	}

	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open file for partitioning: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files", filepath.Base(localPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read file for partitioning: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/general/v0/general", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("unstructured-api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
		return nil, fmt.Errorf("partition request failed (status=%d): %s", resp.StatusCode, snippet)
	}

	var blocks []Block
	if err := json.NewDecoder(resp.Body).Decode(&blocks); err != nil {
		return nil, fmt.Errorf("decode partition response: %w", err)
	}
	return blocks, nil
}
