package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config содержит все настройки сервиса
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		BodyLimit       int // максимальный размер запроса в МБ
	}

	Postgres struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
		PoolSize int // размер пула соединений
	}

	Redis struct {
		Host     string
		Port     int
		Password string
		DB       int
	}

	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Enabled bool     `mapstructure:"enabled"`
	}

	// Внешние сервисы, в которые делаются исходящие вызовы
	Services struct {
		MappingServiceURL string        // базовый URL сервиса маппинга
		ListingServiceURL string        // базовый URL внешнего сервиса листинга
		RequestTimeout    time.Duration // таймаут исходящих вызовов
	}

	// Пул фоновых задач конвейера обработки заявок
	Worker struct {
		Concurrency int           // число воркеров
		QueueSize   int           // размер очереди задач
		TaskTimeout time.Duration // таймаут одной задачи
	}

	Metrics struct {
		Enabled  bool
		Endpoint string
	}

	Security struct {
		CORSAllowOrigins []string
	}
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	configFile := "config"
	if configPath != "" {
		configFile = configPath
	}

	var cfg Config

	// Настройка Viper
	viper.SetConfigName(configFile)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("../config")
	viper.AddConfigPath("../../config")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Чтение конфигурационного файла
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// Продолжаем, если файл не найден, будем использовать только переменные окружения
	}

	// Установка значений по умолчанию
	setDefaults()

	// Привязка переменных окружения
	bindEnvVariables()

	// Чтение конфигурации в структуру
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}

	// Получаем окружение
	cfg.ENV = viper.GetString("env")
	if cfg.ENV == "" {
		cfg.ENV = "development"
		if envVar := os.Getenv("APP_ENV"); envVar != "" {
			cfg.ENV = envVar
		}
	}

	return &cfg, nil
}

// setDefaults устанавливает значения по умолчанию
func setDefaults() {
	// Основные настройки
	viper.SetDefault("appName", "listing-service")
	viper.SetDefault("version", "1.0.0")
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("env", "development")

	// Настройки сервера
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", "10s")
	viper.SetDefault("server.writeTimeout", "10s")
	viper.SetDefault("server.shutdownTimeout", "5s")
	viper.SetDefault("server.bodyLimit", 10) // 10 МБ

	// Настройки Postgres
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.dbname", "postgres")
	viper.SetDefault("postgres.sslmode", "disable")
	viper.SetDefault("postgres.timeout", "5s")
	viper.SetDefault("postgres.poolSize", 10)

	// Настройки Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Настройки Kafka
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.enabled", true)

	// Внешние сервисы
	viper.SetDefault("services.mappingServiceURL", "http://localhost:8007")
	viper.SetDefault("services.listingServiceURL", "http://localhost:8008")
	viper.SetDefault("services.requestTimeout", "10s")

	// Пул фоновых задач
	viper.SetDefault("worker.concurrency", 4)
	viper.SetDefault("worker.queueSize", 256)
	viper.SetDefault("worker.taskTimeout", "30s")

	// Настройки метрик
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.endpoint", "/metrics")

	// Настройки безопасности
	viper.SetDefault("security.corsAllowOrigins", []string{"*"})
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables() {
	// Основные настройки
	viper.BindEnv("appName", "APP_NAME")
	viper.BindEnv("version", "APP_VERSION")
	viper.BindEnv("logLevel", "LOG_LEVEL")
	viper.BindEnv("env", "APP_ENV")

	// Настройки сервера
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.readTimeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.writeTimeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.shutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT")
	viper.BindEnv("server.bodyLimit", "SERVER_BODY_LIMIT")

	// Настройки Postgres
	viper.BindEnv("postgres.host", "POSTGRES_HOST")
	viper.BindEnv("postgres.port", "POSTGRES_PORT")
	viper.BindEnv("postgres.user", "POSTGRES_USER")
	viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	viper.BindEnv("postgres.dbname", "POSTGRES_DBNAME")
	viper.BindEnv("postgres.sslmode", "POSTGRES_SSLMODE")
	viper.BindEnv("postgres.timeout", "POSTGRES_TIMEOUT")
	viper.BindEnv("postgres.poolSize", "POSTGRES_POOL_SIZE")

	// Настройки Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	// Настройки Kafka
	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("kafka.enabled", "KAFKA_ENABLED")

	// Внешние сервисы
	viper.BindEnv("services.mappingServiceURL", "MAPPING_SERVICE_URL")
	viper.BindEnv("services.listingServiceURL", "LISTING_SERVICE_URL")
	viper.BindEnv("services.requestTimeout", "SERVICES_REQUEST_TIMEOUT")

	// Пул фоновых задач
	viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	viper.BindEnv("worker.queueSize", "WORKER_QUEUE_SIZE")
	viper.BindEnv("worker.taskTimeout", "WORKER_TASK_TIMEOUT")

	// Настройки метрик
	viper.BindEnv("metrics.enabled", "METRICS_ENABLED")
	viper.BindEnv("metrics.endpoint", "METRICS_ENDPOINT")

	// Настройки безопасности
	viper.BindEnv("security.corsAllowOrigins", "CORS_ALLOW_ORIGINS")
}
