package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"clix/internal/bus"
	"clix/internal/config"
	"clix/internal/feed"
	"clix/internal/handler"
	"clix/internal/media"
	"clix/internal/redis"
	"clix/internal/store"
	"clix/internal/trends"
	"clix/internal/upload"
)

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	contextID := cfg.ContextName
	if contextID == "" {
		contextID = uuid.NewString()
	}
	log.Printf("[Server] Starting: context=%s backend=%s", contextID, cfg.StoreBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Redis (event bus, and the default store backend)
	rdb, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 3. Select the persistence backend
	var backend store.Backend
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pg, err := store.NewPostgresBackend(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		backend = pg
	case config.StoreBackendRedis:
		backend = store.NewRedisBackend(rdb)
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	defer backend.Close()

	// 4. Join the cross-context event bus
	eventBus, err := bus.NewRedisBus(ctx, rdb, cfg.BusChannel, contextID)
	if err != nil {
		return fmt.Errorf("failed to join event bus: %w", err)
	}
	defer eventBus.Close()

	st := store.New(backend, eventBus)

	// 5. Feed view kept live by bus events
	view, err := feed.NewView(ctx, st, eventBus, cfg.CommitLatency)
	if err != nil {
		return fmt.Errorf("failed to build feed view: %w", err)
	}
	defer view.Close()

	// 6. Upload pipeline
	previewer, err := media.NewFilePreviewer(filepath.Join(os.TempDir(), "clix-previews"))
	if err != nil {
		return fmt.Errorf("failed to create preview store: %w", err)
	}
	var sink upload.Sink
	if cfg.MediaSinkConfigured() {
		r2, err := media.NewR2Sink(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create media sink: %w", err)
		}
		sink = r2
		log.Println("[Server] Media sink: R2")
	} else {
		log.Println("[Server] Media sink: none, previews served as final URLs")
	}
	uploads := upload.NewManager(cfg.UploadTick, upload.RandomFailure{Rate: cfg.UploadFailureRate}, previewer, sink)

	// 7. Search and trends collaborator
	aiClient := trends.NewClient(cfg.AIBaseURL, cfg.AIAPIKey)

	// 8. Handlers and routes
	tokenMaxAge := time.Duration(cfg.AccessTokenMaxAge) * time.Second
	router := NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(st, cfg.JWTSecret, tokenMaxAge),
		UserHandler:         handler.NewUserHandler(st),
		OnboardingHandler:   handler.NewOnboardingHandler(st, cfg.UsernameDebounce),
		PostHandler:         handler.NewPostHandler(view, st, uploads),
		UploadHandler:       handler.NewUploadHandler(uploads),
		ExploreHandler:      handler.NewExploreHandler(aiClient),
		NotificationHandler: handler.NewNotificationHandler(st),
		Store:               st,
		JWTSecret:           cfg.JWTSecret,
	})

	srv := &stdhttp.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
