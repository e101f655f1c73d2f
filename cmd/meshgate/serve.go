package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meshgate/core/pkg/audit"
	"github.com/meshgate/core/pkg/credential"
	"github.com/meshgate/core/pkg/embedder"
	"github.com/meshgate/core/pkg/observability"
	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/protocol/a2a"
	"github.com/meshgate/core/pkg/protocol/acp"
	"github.com/meshgate/core/pkg/protocol/mcp"
	"github.com/meshgate/core/pkg/protocol/ucp"
	"github.com/meshgate/core/pkg/protocol/v1"
	"github.com/meshgate/core/pkg/protocol/v2"
	"github.com/meshgate/core/pkg/registry"
	"github.com/meshgate/core/pkg/router"
	"github.com/meshgate/core/pkg/sandbox"
	"github.com/meshgate/core/pkg/types"
)

// ServeCmd starts the gateway's HTTP surface: protocol ingestion,
// routing, sandboxed execution, and the audit trail they all emit to.
type ServeCmd struct {
	Port              int    `help:"Port to listen on." default:"8080"`
	CredentialsFile   string `name:"credentials-file" help:"Path to the YAML credential file." default:"./credentials.yaml"`
	SandboxBinaryDir  string `name:"sandbox-binary-dir" help:"Directory of per-tool sandbox plugin binaries." type:"path" default:"./bin"`
	EmbedderProvider  string `name:"embedder-provider" help:"Embedding provider: deterministic or ollama." default:"deterministic"`
	EmbedderModel     string `name:"embedder-model" help:"Embedder model name." default:"deterministic-v1"`
	EmbedderOllamaURL string `name:"embedder-ollama-url" help:"Ollama base URL, when --embedder-provider=ollama." default:"http://localhost:11434"`
	EmbedderCachePath string `name:"embedder-cache-path" help:"Directory for a persistent embedding cache (empty = in-memory only)."`
	EmbedderCacheGzip bool   `name:"embedder-cache-gzip" help:"Gzip-compress the persistent embedding cache file."`
	MetricsEnabled    bool   `name:"metrics" help:"Enable the Prometheus metrics endpoint."`
	TracingEnabled    bool   `name:"tracing" help:"Enable OTLP tracing." `
	TracingEndpoint   string `name:"tracing-endpoint" help:"OTLP collector endpoint." default:"localhost:4317"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	var cfg Config
	cfg.Port = c.Port
	cfg.Embedding.Model = c.EmbedderModel
	cfg.Embedding.CachePersistPath = c.EmbedderCachePath
	cfg.Embedding.CacheCompress = c.EmbedderCacheGzip
	cfg.Observability.Metrics.Enabled = c.MetricsEnabled
	cfg.Observability.Tracing.Enabled = c.TracingEnabled
	cfg.Observability.Tracing.Endpoint = c.TracingEndpoint
	cfg.CredentialsFile = c.CredentialsFile
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	obs, err := observability.NewManager(ctx, &cfg.Observability)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer obs.Shutdown(context.Background())
	metrics := obs.Metrics()

	var provider embedder.Provider
	switch c.EmbedderProvider {
	case "ollama":
		provider = embedder.NewOllama(embedder.OllamaConfig{Host: c.EmbedderOllamaURL, Model: c.EmbedderModel, Dimension: cfg.Embedding.Dimensions})
	default:
		provider = embedder.NewDeterministic(cfg.Embedding.Dimensions, cfg.Embedding.Model)
	}
	var embedSvc *embedder.Service
	if cfg.Embedding.CachePersistPath != "" {
		cache, err := embedder.NewPersistentCache(cfg.Embedding.CachePersistPath, cfg.Embedding.CacheCompress)
		if err != nil {
			return fmt.Errorf("embedding cache: %w", err)
		}
		embedSvc = embedder.NewServiceWithCache(provider, cache, metrics)
	} else {
		embedSvc = embedder.NewService(provider, time.Duration(cfg.Embedding.CacheTTLMs)*time.Millisecond, metrics)
	}

	dispatcher, err := protocol.NewDispatcher(metrics, mcp.New(), a2a.New(), ucp.New(), acp.New(), v1.New(), v2.New())
	if err != nil {
		return fmt.Errorf("protocol dispatcher: %w", err)
	}

	rtr := router.New(embedSvc, metrics, cfg.Router)

	driver := sandbox.NewPluginDriver(sandbox.PluginDriverConfig{BinaryDir: c.SandboxBinaryDir})
	pool := sandbox.NewPool(driver, cfg.Sandbox, metrics, types.RealClock{})
	pool.Start()
	defer pool.Stop()

	var sink audit.Sink = audit.NoopSink{}
	stream := audit.NewStream(audit.StreamConfig{
		BufferSize:      cfg.Audit.BufferSize,
		FlushIntervalMs: cfg.Audit.FlushIntervalMs,
	}, sink, metrics, types.RealClock{})
	stream.Start()
	defer stream.Stop()

	creds, err := credential.NewFileStore(cfg.CredentialsFile)
	if err != nil {
		slog.Warn("credential file store unavailable, credential resolution will fail closed", "path", cfg.CredentialsFile, "error", err)
	} else {
		defer creds.Close()
	}

	catalog := registry.NewBaseRegistry[types.ToolDefinition]()
	seedCatalog(catalog)

	gw := &gateway{
		dispatcher: dispatcher,
		router:     rtr,
		pool:       pool,
		stream:     stream,
		creds:      creds,
		catalog:    catalog,
		metrics:    metrics,
		clock:      types.RealClock{},
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(30 * time.Second))

	mux.Get("/healthz", gw.handleHealthz)
	mux.Post("/v1/requests/{protocol}", gw.handleRequest)
	mux.Get("/v1/audit", gw.handleAuditQuery)

	if cfg.Observability.Metrics.Enabled && obs.MetricsEnabled() {
		mux.Handle(obs.MetricsEndpoint(), obs.MetricsHandler())
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("meshgate listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// seedCatalog registers a small set of illustrative tools so the demo
// binary has something to route against out of the box. A production
// deployment replaces this with a real catalog source.
func seedCatalog(catalog *registry.BaseRegistry[types.ToolDefinition]) {
	tools := []types.ToolDefinition{
		{
			ID:             "tool.read_file",
			Name:           "read_file",
			Description:    "Read the contents of a file from disk given its path.",
			SourceProtocol: types.ProtocolMCP,
		},
		{
			ID:             "tool.web_search",
			Name:           "web_search",
			Description:    "Search the web for information matching a query.",
			SourceProtocol: types.ProtocolMCP,
		},
		{
			ID:             "tool.send_email",
			Name:           "send_email",
			Description:    "Send an email to a recipient with a subject and body.",
			SourceProtocol: types.ProtocolA2A,
			RequiredCredentials: []string{"smtp.password"},
		},
	}
	for _, t := range tools {
		_ = catalog.Register(t.ID, t)
	}
}

func jsonError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, protocol.MaxPayloadBytes+1))
}
