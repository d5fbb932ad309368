package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Events   EventsConfig   `yaml:"events"`
	Booking  BookingConfig  `yaml:"booking"`
	Cache    CacheConfig    `yaml:"cache"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type PostgresConfig struct {
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	SSLMode     string `yaml:"sslmode"`
	MaxConns    int32  `yaml:"max_conns"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode,
	)
}

// RedisConfig with an empty Addr runs the service without redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

const (
	BrokerNone     = "none"
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

type EventsConfig struct {
	Broker       string   `yaml:"broker"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	RabbitURL    string   `yaml:"rabbit_url"`
	RabbitQueue  string   `yaml:"rabbit_queue"`
}

type BookingConfig struct {
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

type CacheConfig struct {
	ScheduleTTL time.Duration `yaml:"schedule_ttl"`
	CompanyTTL  time.Duration `yaml:"company_ttl"`
}

func defaults() Config {
	return Config{
		Server:   ServerConfig{Host: "localhost", Port: 8080},
		Log:      LogConfig{Level: "info"},
		Storage:  StorageConfig{Driver: StoragePostgres},
		Postgres: PostgresConfig{Host: "localhost", Port: 5432, SSLMode: "disable", AutoMigrate: true},
		Events: EventsConfig{
			Broker:      BrokerNone,
			KafkaTopic:  "travelgo.events",
			RabbitQueue: "travelgo.events",
		},
		Booking: BookingConfig{
			RateLimit:      10,
			RateWindow:     time.Minute,
			IdempotencyTTL: 2 * time.Hour,
		},
		Cache: CacheConfig{
			ScheduleTTL: 30 * time.Second,
			CompanyTTL:  5 * time.Minute,
		},
	}
}

// New loads .env, then the YAML file named by CONFIG_PATH (if any), then lets
// environment variables override individual values.
func New() (*Config, error) {
	return Load(os.Getenv("CONFIG_PATH"))
}

// Load is New with an explicit YAML path; an empty path skips the file.
func Load(path string) (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		v, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*dst = out
	}

	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SERVER_HOST", &cfg.Server.Host)
	integer("SERVER_PORT", &cfg.Server.Port)
	list("SERVER_ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)

	str("POSTGRES_USER", &cfg.Postgres.User)
	str("POSTGRES_PASSWORD", &cfg.Postgres.Password)
	str("POSTGRES_DB", &cfg.Postgres.Name)
	str("POSTGRES_HOST", &cfg.Postgres.Host)
	integer("POSTGRES_PORT", &cfg.Postgres.Port)
	str("POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	boolean("POSTGRES_AUTO_MIGRATE", &cfg.Postgres.AutoMigrate)
	var maxConns int
	integer("POSTGRES_MAX_CONNS", &maxConns)
	if maxConns > 0 {
		cfg.Postgres.MaxConns = int32(maxConns)
	}

	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	integer("REDIS_DB", &cfg.Redis.DB)

	str("JWT_SECRET", &cfg.Auth.JWTSecret)

	str("EVENTS_BROKER", &cfg.Events.Broker)
	list("KAFKA_BROKERS", &cfg.Events.KafkaBrokers)
	str("KAFKA_TOPIC", &cfg.Events.KafkaTopic)
	str("RABBITMQ_URL", &cfg.Events.RabbitURL)
	str("RABBITMQ_QUEUE", &cfg.Events.RabbitQueue)

	integer("BOOKING_RATE_LIMIT", &cfg.Booking.RateLimit)
	duration("BOOKING_RATE_WINDOW", &cfg.Booking.RateWindow)
	duration("BOOKING_IDEMPOTENCY_TTL", &cfg.Booking.IdempotencyTTL)

	duration("CACHE_SCHEDULE_TTL", &cfg.Cache.ScheduleTTL)
	duration("CACHE_COMPANY_TTL", &cfg.Cache.CompanyTTL)

	return errors.Join(errs...)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Postgres.User == "" {
			return errors.New("missing POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			return errors.New("missing POSTGRES_PASSWORD")
		}
		if c.Postgres.Name == "" {
			return errors.New("missing POSTGRES_DB")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}

	switch c.Events.Broker {
	case "", BrokerNone:
		c.Events.Broker = BrokerNone
	case BrokerKafka:
		if len(c.Events.KafkaBrokers) == 0 {
			return errors.New("missing KAFKA_BROKERS")
		}
	case BrokerRabbitMQ:
		if c.Events.RabbitURL == "" {
			return errors.New("missing RABBITMQ_URL")
		}
	default:
		return fmt.Errorf("unknown events broker %q", c.Events.Broker)
	}

	if c.Booking.RateLimit < 0 {
		return fmt.Errorf("invalid booking rate limit %d", c.Booking.RateLimit)
	}

	return nil
}
