package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-interview-service/internal/app"
	"ai-interview-service/internal/config"
	"ai-interview-service/internal/infra/memory"
	pgarchive "ai-interview-service/internal/infra/postgres"
	redisinfra "ai-interview-service/internal/infra/redis"
	transport "ai-interview-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the interview server",
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

	questionTTL := config.TTLDuration(cfg.Interview.QuestionTTL, 10*time.Minute)
	pausedTTL := config.TTLDuration(cfg.Interview.PausedTTL, 24*time.Hour)

	var provider app.QuestionProvider = memory.NewStaticProvider()
	if redisClient != nil {
		provider = redisinfra.NewQuestionCache(redisClient, provider, questionTTL)
	} else {
		provider = memory.NewQuestionCache(provider, questionTTL)
	}

	store := app.NewSessionStore()
	if redisClient != nil {
		pauses := redisinfra.NewPauseStore(redisClient, pausedTTL)
		store.SetPauseKeeper(pauses)
		// Reseed paused interviews from the last run so welcome-back works
		// across restarts.
		if paused, err := pauses.LoadPaused(ctx); err != nil {
			log.Printf("load paused candidates: %v", err)
		} else {
			for _, candidate := range paused {
				if err := store.AddCandidate(candidate); err != nil {
					log.Printf("reseed paused candidate %s: %v", candidate.ID, err)
				}
			}
		}
	}

	controller := app.NewController(store, provider)
	defer controller.Close()

	review := app.NewReviewService(store)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		archive := pgarchive.NewCandidateArchive(pool)
		controller.SetArchive(archive)
		review.SetArchive(archive)
	}

	intake := app.NewIntakeService(store, memory.NewStubResumeParser())

	wsHandler := transport.NewWSHandler(store, controller)
	reviewHandler := transport.NewReviewHandler(review, intake)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	reviewHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting interview service on :%s", finalPort)
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
