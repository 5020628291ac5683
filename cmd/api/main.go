package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-platform/listing-service/config"
	"github.com/athebyme/gomarket-platform/listing-service/internal/adapters/cache"
	"github.com/athebyme/gomarket-platform/listing-service/internal/adapters/downstream"
	"github.com/athebyme/gomarket-platform/listing-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/listing-service/internal/adapters/messaging"
	"github.com/athebyme/gomarket-platform/listing-service/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/listing-service/internal/api"
	"github.com/athebyme/gomarket-platform/listing-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/listing-service/internal/interfaces"
	"github.com/athebyme/gomarket-platform/listing-service/internal/utils"
	"github.com/athebyme/gomarket-platform/listing-service/internal/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	log.Info("Инициализация сервиса",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	postgresCon, err := utils.GenerateConnectionString(
		cfg.Postgres.Host,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Port,
		cfg.Postgres.PoolSize,
		cfg.Postgres.Timeout,
	)
	if err != nil {
		fmt.Printf("Ошибка инициализации строки подключения базы: %v\n", err)
		os.Exit(1)
	}

	db, err := postgres.NewPostgresStorage(ctx, postgresCon)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer db.Close()
	log.Info("Хранилище инициализировано")

	testCtx, testCancel := context.WithTimeout(ctx, 5*time.Second)
	defer testCancel()

	if err := db.Ping(testCtx); err != nil {
		log.Fatal("Ошибка подключения к PostgreSQL",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Соединение с PostgreSQL проверено")

	cacheClient, err := cache.NewRedisCache(
		ctx,
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal("Ошибка инициализации кэша", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer cacheClient.Close()
	log.Info("Кэш инициализирован")

	if err := checkRedisConnection(testCtx, cacheClient); err != nil {
		log.Fatal("Ошибка подключения к Redis",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Соединение с Redis проверено")

	var messagingClient interfaces.MessagingPort
	if cfg.Kafka.Enabled {
		messagingClient, err = messaging.NewKafkaMessaging(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatal("Ошибка инициализации системы обмена сообщениями", interfaces.LogField{Key: "error", Value: err.Error()})
		}
		defer messagingClient.Close()
		log.Info("Система обмена сообщениями инициализирована")
	} else {
		log.Warn("Kafka отключена, события жизненного цикла публиковаться не будут")
	}

	downstreamClient := downstream.NewClient(
		cfg.Services.MappingServiceURL,
		cfg.Services.ListingServiceURL,
		cfg.Services.RequestTimeout,
	)
	log.Info("Клиент внешних сервисов инициализирован")

	pool := worker.NewPool(cfg.Worker.Concurrency, cfg.Worker.QueueSize, cfg.Worker.TaskTimeout, log)
	log.Info("Пул фоновых задач запущен",
		interfaces.LogField{Key: "concurrency", Value: cfg.Worker.Concurrency},
		interfaces.LogField{Key: "queue_size", Value: cfg.Worker.QueueSize},
	)

	listingService := services.NewListingService(db, cacheClient, messagingClient, downstreamClient, downstreamClient, pool, log)
	log.Info("Сервис заявок инициализирован")

	router := api.SetupRouter(listingService, log, cfg.Security.CORSAllowOrigins)
	log.Info("Маршрутизатор настроен")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Ошибка запуска сервера", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatal("Ошибка при graceful shutdown", interfaces.LogField{Key: "error", Value: err.Error()})
		}

		log.Info("HTTP сервер остановлен")

		// Дорабатываем задачи, уже принятые в очередь
		pool.Stop()
		log.Info("Пул фоновых задач остановлен")

		log.Info("Закрытие соединений с зависимостями...")

		if messagingClient != nil {
			if err := messagingClient.Close(); err != nil {
				log.Error("Ошибка при закрытии Kafka",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}

		if err := cacheClient.Close(); err != nil {
			log.Error("Ошибка при закрытии Redis",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}

		if err := db.Close(); err != nil {
			log.Error("Ошибка при закрытии БД",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}

		close(done)
	}()

	// Ожидаем завершения работы
	<-done
	log.Info("Сервер корректно завершил работу")
}

// Проверка соединения с Redis
func checkRedisConnection(ctx context.Context, cacheClient interfaces.CachePort) error {
	testKey := "test:connection"
	testValue := []byte("test-value")

	// Попытка записи в Redis
	if err := cacheClient.Set(ctx, testKey, testValue, 10*time.Second); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}

	// Попытка чтения из Redis
	value, err := cacheClient.Get(ctx, testKey)
	if err != nil {
		return fmt.Errorf("ошибка чтения из Redis: %w", err)
	}

	// Проверка значения
	if string(value) != string(testValue) {
		return fmt.Errorf("некорректное значение из Redis: получено %s, ожидалось %s",
			string(value), string(testValue))
	}

	// Удаление тестового ключа
	if err := cacheClient.Delete(ctx, testKey); err != nil {
		return fmt.Errorf("ошибка удаления из Redis: %w", err)
	}

	return nil
}
