package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/config"
	"github.com/elementsduel/duel-server-go/internal/game"
	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/repository"
	"github.com/elementsduel/duel-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting duel server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cat, err := catalog.Default()
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.Error(err))
	}
	logger.Info("card catalog loaded", zap.Int("cards", len(cat.All())))

	stats, closeStats := openStats(ctx, cfg.Database, logger)
	defer closeStats()

	var recorder *game.ReplayRecorder
	if cfg.Game.ReplayDir != "" {
		if err := os.MkdirAll(cfg.Game.ReplayDir, 0o755); err != nil {
			logger.Fatal("failed to create replay directory", zap.Error(err))
		}
		recorder = game.NewReplayRecorder(logger, cfg.Game.ReplayDir)
		logger.Info("recording replays", zap.String("dir", cfg.Game.ReplayDir))
	}

	engine := game.NewEngine(logger, cat, game.Options{
		Seed:         cfg.Game.Seed,
		LockTimeout:  cfg.Game.LockTimeout,
		StartingLife: cfg.Game.StartingLife,
		Recorder:     recorder,
	})

	// Validate already rejected unknown difficulties.
	difficulty, _ := ai.ParseDifficulty(cfg.Game.DefaultDifficulty)
	srv := server.New(engine, stats, difficulty, logger)
	go srv.Hub().Run(ctx)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTP.Address,
		Handler: srv.Router(),
	}
	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}
	grpcServer := server.NewGRPCServer(cfg.Server.GRPC, logger)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	logger.Info("duel server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("default_difficulty", string(difficulty)),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	cancel()
	grpcServer.Stop()

	logger.Info("duel server stopped", zap.Int("open_games", len(engine.GameIDs())))
}

// openStats connects to Postgres when a URL is configured and falls back to
// in-memory results otherwise.
func openStats(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (repository.StatsStore, func()) {
	if cfg.URL == "" {
		logger.Info("no database configured; keeping results in memory")
		return repository.NewMemoryStats(), func() {}
	}

	db, err := repository.NewDB(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	poolStats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", poolStats.TotalConns()),
		zap.Int32("idle_conns", poolStats.IdleConns()),
	)
	return repository.NewStatsRepository(db), db.Close
}
