package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizrank-service/internal/app"
	"quizrank-service/internal/authoring"
	"quizrank-service/internal/config"
	"quizrank-service/internal/infra/file"
	"quizrank-service/internal/infra/memory"
	pgstore "quizrank-service/internal/infra/postgres"
	rediscache "quizrank-service/internal/infra/redis"
	"quizrank-service/internal/ranking"
	transport "quizrank-service/internal/transport/http"
)

const defaultMinTimeLimit = 5

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	testTTL := config.TTLDuration(cfg.Quiz.TestTTL, 10*time.Minute)

	store, pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	snap, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}
	archive := memory.NewArchive(store, snap)

	// Registry misses fall through to postgres (tests published by another
	// instance), optionally via the redis cache.
	var loader memory.TestLoader
	if pool != nil {
		loader = pgstore.NewStore(pool)
		if redisClient != nil {
			loader = rediscache.NewTestRepository(redisClient, loader, testTTL)
		}
	}
	registry := memory.NewTestRegistry(snap.Tests, loader)

	agg := ranking.NewAggregator()
	for _, res := range snap.Results {
		agg.Record(res)
	}
	log.Printf("loaded %d tests, %d users, %d results", len(snap.Tests), len(snap.Users), len(snap.Results))

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = rediscache.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	hub := transport.NewHub()
	engine := app.NewSessionEngine(app.EngineConfig{
		Sessions:  sessions,
		Tests:     registry,
		Store:     archive,
		Ranking:   agg,
		Transport: hub,
	})

	minTimeLimit := cfg.Quiz.MinTimeLimit
	if minTimeLimit <= 0 {
		minTimeLimit = defaultMinTimeLimit
	}

	wsHandler := transport.NewWSHandler(transport.Config{
		Engine:   engine,
		Rankings: agg,
		Catalog:  registry,
		Archive:  archive,
		Wizard:   authoring.NewWizard(minTimeLimit),
		Store:    archive,
		Admins:   cfg.Admins,
		Hub:      hub,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/admin/ws", wsHandler.ServeAdminWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket connections stay open across questions.
	}

	go func() {
		log.Printf("starting quizrank service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore picks the durable store: postgres when configured, flat files
// otherwise.
func openStore(ctx context.Context, cfg config.Config) (app.Store, *pgxpool.Pool, error) {
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewStore(pool), pool, nil
	}

	dir := cfg.Storage.Dir
	if dir == "" {
		dir = "data"
	}
	store, err := file.NewStore(dir)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}
