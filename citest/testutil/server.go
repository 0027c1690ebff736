// Package testutil provides fixtures for integration tests: a real server
// on a real port and an event-stream test client.
package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/event"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/provider"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/server"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/storage"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// TestServer wraps a running server instance for integration tests.
type TestServer struct {
	Server   *server.Server
	BaseURL  string
	Storage  *storage.Storage
	Registry *provider.Registry
	TempDir  string
	port     int
}

// Option configures the test server.
type Option func(*fixtureConfig)

type fixtureConfig struct {
	chunks   []string
	openErr  error
	midErr   error
	delay    time.Duration
	liveKeys bool
}

// WithChunks sets the scripted provider's replayed chunks.
func WithChunks(chunks ...string) Option {
	return func(c *fixtureConfig) { c.chunks = chunks }
}

// WithOpenError makes the scripted provider fail to open its stream.
func WithOpenError(err error) Option {
	return func(c *fixtureConfig) { c.openErr = err }
}

// WithMidStreamError ends the scripted stream with err after the chunks.
func WithMidStreamError(err error) Option {
	return func(c *fixtureConfig) { c.midErr = err }
}

// WithChunkDelay paces the scripted stream, for disconnect tests.
func WithChunkDelay(d time.Duration) Option {
	return func(c *fixtureConfig) { c.delay = d }
}

// WithLiveProviders registers real providers from the environment instead
// of the scripted one.
func WithLiveProviders() Option {
	return func(c *fixtureConfig) { c.liveKeys = true }
}

// StartTestServer boots a server on a free port backed by temp storage and,
// by default, a scripted provider. Callers must Stop it.
func StartTestServer(opts ...Option) (*TestServer, error) {
	cfg := &fixtureConfig{chunks: []string{"scripted ", "report"}}
	for _, opt := range opts {
		opt(cfg)
	}

	_ = godotenv.Load("../../.env")
	event.Reset()

	tempDir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	store := storage.New(tempDir)
	appConfig := &types.Config{DataDir: tempDir}

	var registry *provider.Registry
	if cfg.liveKeys {
		registry = provider.InitializeProviders(context.Background(), &types.Config{
			Provider: map[string]types.ProviderConfig{
				"anthropic":  {APIKey: os.Getenv("ANTHROPIC_API_KEY")},
				"openrouter": {APIKey: os.Getenv("OPENROUTER_API_KEY")},
			},
		})
	} else {
		registry = provider.NewRegistry(appConfig)
		registry.Register(&provider.ScriptedProvider{
			Chunks:     cfg.chunks,
			Err:        cfg.midErr,
			FailOpen:   cfg.openErr,
			ChunkDelay: cfg.delay,
		})
	}

	port, err := findAvailablePort()
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("find port: %w", err)
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = port
	serverConfig.EnableCORS = false

	srv := server.New(serverConfig, appConfig, store, registry)
	go func() { _ = srv.Start() }()

	ts := &TestServer{
		Server:   srv,
		BaseURL:  fmt.Sprintf("http://localhost:%d", port),
		Storage:  store,
		Registry: registry,
		TempDir:  tempDir,
		port:     port,
	}
	if err := ts.waitReady(5 * time.Second); err != nil {
		ts.Stop()
		return nil, err
	}
	return ts, nil
}

// Stop shuts the server down and removes its temp storage.
func (ts *TestServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ts.Server.Shutdown(ctx)
	os.RemoveAll(ts.TempDir)
}

func (ts *TestServer) waitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", ts.port), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server did not become ready on port %d", ts.port)
}

func findAvailablePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// SkipIfMissingEnv reports whether any of the named variables is unset.
func SkipIfMissingEnv(names ...string) bool {
	for _, name := range names {
		if os.Getenv(name) == "" {
			return true
		}
	}
	return false
}
