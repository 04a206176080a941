// Package app assembles the therapy engine runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakshi-health/sakshi/internal/therapy/api/rest"
	"github.com/sakshi-health/sakshi/internal/therapy/conversation"
	"github.com/sakshi-health/sakshi/internal/therapy/manager"
	"github.com/sakshi-health/sakshi/internal/therapy/oracle"
	"github.com/sakshi-health/sakshi/internal/therapy/phase"
	therapysqlite "github.com/sakshi-health/sakshi/internal/therapy/storage/sqlite"
	"github.com/sakshi-health/sakshi/internal/therapy/watcher"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls engine startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port             int
	HealthPort       int
	DBPath           string
	OracleAPIKey     string
	OracleModel      string
	OracleURL        string
	WatchInterval    time.Duration
	MaxContextTokens int
}

const (
	defaultEnginePort     = 8094
	defaultHealthPort     = 8095
	defaultEngineDB       = "data/engine.db"
	defaultServerShutdown = 10 * time.Second
)

// Run starts the engine runtime: storage, oracle, session manager,
// conversation service, the HTTP API, a gRPC health server, and the expiry
// watcher loop. It blocks until ctx is canceled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultEnginePort
	}
	if cfg.HealthPort <= 0 {
		cfg.HealthPort = defaultHealthPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultEngineDB
	}
	if strings.TrimSpace(cfg.OracleAPIKey) == "" {
		return fmt.Errorf("oracle api key is required")
	}

	// Misconfigured phase tables must fail startup, not the first session.
	if err := phase.ValidateTables(); err != nil {
		return fmt.Errorf("validate phase tables: %w", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create engine storage dir: %w", err)
		}
	}

	store, err := therapysqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open engine sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close engine sqlite store: %v", closeErr)
		}
	}()

	engineOracle := oracle.NewOpenAI(oracle.OpenAIConfig{
		ResponsesURL: cfg.OracleURL,
		APIKey:       cfg.OracleAPIKey,
		Model:        cfg.OracleModel,
	})

	// The watcher closes expired sessions through the manager so the status
	// automaton is enforced on the expiry path too. The manager in turn
	// registers new sessions with the watcher, so the completion callback
	// binds late.
	var sessionManager *manager.Manager
	sessionWatcher, err := watcher.New(watcher.Config{
		Interval: cfg.WatchInterval,
		Complete: func(ctx context.Context, sessionID string) error {
			_, err := sessionManager.CompleteSession(ctx, sessionID)
			return err
		},
	})
	if err != nil {
		return fmt.Errorf("build session watcher: %w", err)
	}

	sessionManager, err = manager.New(manager.Config{
		Sessions: store,
		Logs:     store,
		Users:    store,
		Oracle:   engineOracle,
		Track:    sessionWatcher.Track,
	})
	if err != nil {
		return fmt.Errorf("build session manager: %w", err)
	}
	defer sessionManager.Wait()

	conversationService, err := conversation.New(conversation.Config{
		Sessions:         store,
		Logs:             store,
		Users:            store,
		Oracle:           engineOracle,
		Track:            sessionWatcher.Track,
		MaxContextTokens: cfg.MaxContextTokens,
	})
	if err != nil {
		return fmt.Errorf("build conversation service: %w", err)
	}

	apiServer, err := rest.New(rest.Config{
		Manager:       sessionManager,
		Conversations: conversationService,
		Users:         store,
		Logs:          store,
	})
	if err != nil {
		return fmt.Errorf("build api server: %w", err)
	}

	// Sessions that were active when the process last stopped must keep
	// their expiry enforcement.
	active, err := sessionManager.ActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("restore watched sessions: %w", err)
	}
	for _, session := range active {
		sessionWatcher.Track(session)
	}
	log.Printf("tracking %d active sessions", len(active))

	healthListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
	if err != nil {
		return fmt.Errorf("listen on health port %d: %w", cfg.HealthPort, err)
	}
	defer healthListener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("engine.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- grpcServer.Serve(healthListener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-grpcErr
	}()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: apiServer.Handler(),
	}
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.ListenAndServe()
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultServerShutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown api server: %v", err)
		}
		if err := <-httpErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api server: %v", err)
		}
	}()

	log.Printf("engine api listening at %s, health at %v", httpServer.Addr, healthListener.Addr())
	return sessionWatcher.Run(ctx)
}
