package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"campus_chat/internal/config"
	"campus_chat/internal/handler"
	"campus_chat/internal/middleware"
	"campus_chat/internal/realtime"
	"campus_chat/internal/repository"
	"campus_chat/internal/repository/memory"
	"campus_chat/internal/service"
	"campus_chat/migrations"
	"campus_chat/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.NewDevelopment(cfg.Log.Level)
	if cfg.IsProduction() {
		appLogger = logger.New(cfg.Log.Level)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к Redis
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established")
	}

	// Инициализация репозиториев
	repos, closeStorage := mustOpenStorage(ctx, cfg, rdb, appLogger)
	defer closeStorage()

	// Реестр соединений и доставка событий
	registry := realtime.NewRegistry(appLogger)
	defer registry.Close()

	var dispatcher realtime.Dispatcher = realtime.NewLocalDispatcher(registry, appLogger)
	if cfg.Realtime.RedisFanout {
		redisDispatcher := realtime.NewRedisDispatcher(rdb, cfg.Realtime.RedisChannel, registry, appLogger)
		go func() {
			if err := redisDispatcher.Run(ctx); err != nil && ctx.Err() == nil {
				appLogger.Fatal("Realtime fan-out stopped", "error", err)
			}
		}()
		dispatcher = redisDispatcher
	}

	// Инициализация сервисов
	services := service.NewServices(repos, dispatcher, cfg, appLogger)

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.AccessSecret, cfg.JWT.Issuer, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.RateLimit, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, registry, dispatcher, cfg, appLogger)

	// Настройка роутера
	router := handler.NewRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "storage", cfg.Storage, "redis_fanout", cfg.Realtime.RedisFanout)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func mustOpenStorage(ctx context.Context, cfg *config.Config, rdb *redis.Client, log logger.Logger) (*repository.Repositories, func()) {
	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.NewStore()
		if cfg.Chat.DirectorySeedFile != "" {
			if err := store.LoadSeed(cfg.Chat.DirectorySeedFile); err != nil {
				log.Fatal("Failed to load directory seed", "error", err)
			}
		}
		repos := memory.NewRepositories(store)
		if rdb != nil {
			repos.RateLimit = repository.NewRateLimitRepository(rdb, log)
		}
		log.Warn("Using in-memory storage, data will be lost on restart")
		return repos, func() {}

	default:
		// Подключение к PostgreSQL
		pool, err := repository.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", "error", err)
		}
		log.Info("Database connection established")

		if cfg.Database.AutoMigrate {
			if err := repository.Migrate(ctx, pool, migrations.FS, log); err != nil {
				log.Fatal("Failed to apply migrations", "error", err)
			}
		}

		return repository.NewRepositories(pool, rdb, log), pool.Close
	}
}
