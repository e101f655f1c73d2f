package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ollamaEmbedMu serializes all Ollama embedding requests across every
// OllamaConfig instance in the process. Ollama's llama runner crashes
// with SIGABRT when it receives concurrent embedding requests, so every
// call funnels through this single mutex regardless of which Sandbox
// or routing path triggered it.
var ollamaEmbedMu sync.Mutex

// OllamaConfig configures an Ollama-backed Provider.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// Ollama calls a local Ollama server's /api/embeddings endpoint.
// Requests are serialized process-wide; see ollamaEmbedMu.
type Ollama struct {
	cfg    OllamaConfig
	client *http.Client
}

// NewOllama returns an Ollama provider. Zero-valued fields in cfg are
// replaced with defaults (localhost:11434, nomic-embed-text, 768
// dimensions, 30s timeout, MaxRetries 3, i.e. at most 3 attempts).
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 768
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &Ollama{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	// Serialize all Ollama embedding requests to prevent crashes.
	// Ollama's llama runner crashes with SIGABRT when receiving
	// concurrent embedding requests.
	ollamaEmbedMu.Lock()
	defer ollamaEmbedMu.Unlock()

	body, err := json.Marshal(ollamaEmbedRequest{Model: o.cfg.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama embed request: %w", err)
	}

	var resp *http.Response
	for attempt := 0; attempt < o.cfg.MaxRetries; attempt++ {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.Host+"/api/embeddings", bytes.NewReader(body))
		if rerr != nil {
			return nil, fmt.Errorf("build ollama request: %w", rerr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = o.client.Do(req)
		if err == nil {
			break
		}
		slog.Debug("ollama embedding retry", "attempt", attempt+1, "error", err, "model", o.cfg.Model)
		if attempt < o.cfg.MaxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("send request to ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, string(b))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("received empty embedding from ollama")
	}
	return out.Embedding, nil
}

func (o *Ollama) Dimension() int { return o.cfg.Dimension }
func (o *Ollama) Model() string  { return o.cfg.Model }
