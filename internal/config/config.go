package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Env  string `env:"GO_ENV" env-default:"dev"`
	Port string `env:"PORT" env-default:"8080"`

	Postgres     PostgresConfig
	JWT          JWTConfig
	Logger       LoggerConfig
	Redis        RedisConfig
	NATS         NATSConfig
	Push         PushConfig
	Notification NotificationConfig

	//1ページの件数
	PageSize int `env:"PAGE_SIZE" env-default:"10"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type PostgresConfig struct {
	//あれば最優先
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     int    `env:"POSTGRES_PORT" env-default:"5432"`
	User     string `env:"POSTGRES_USER" env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DB       string `env:"POSTGRES_DB" env-default:"porto"`
	SSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`
}

type JWTConfig struct {
	Secret string `env:"JWT_SECRET" env-required:"true"`
}

type LoggerConfig struct {
	Level    string `env:"LOG_LEVEL" env-default:"info"`
	Encoding string `env:"LOG_ENCODING" env-default:"json"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	LockTTL  time.Duration `env:"ARCHIVE_LOCK_TTL" env-default:"5m"`
}

type NATSConfig struct {
	//空ならbrokerコンシューマは作らない
	URL string `env:"NATS_URL"`
}

type PushConfig struct {
	//空ならプッシュは何もしない
	ServerKey string        `env:"FCM_SERVER_KEY"`
	Endpoint  string        `env:"FCM_ENDPOINT" env-default:"https://fcm.googleapis.com/fcm/send"`
	Timeout   time.Duration `env:"FCM_TIMEOUT" env-default:"5s"`
}

type NotificationConfig struct {
	//有効なコンシューマを順番通りに
	Consumers []string `env:"NOTIFICATION_CONSUMERS" env-separator:"," env-default:"db,push,log"`
}

// DSN はgorm postgres用の接続文字列
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DB, p.SSLMode,
	)
}

// Loadは .env（あれば）と環境変数から読む
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var knownConsumers = map[string]struct{}{
	"db": {}, "push": {}, "log": {}, "broker": {},
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive")
	}
	for i, name := range c.Notification.Consumers {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := knownConsumers[name]; !ok {
			return fmt.Errorf("NOTIFICATION_CONSUMERS: unknown consumer %q", name)
		}
		c.Notification.Consumers[i] = name
	}
	return nil
}
