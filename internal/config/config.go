package config

import (
	"github.com/stagelive/queue-service/internal/cache"
	"github.com/stagelive/queue-service/internal/domain"
	"github.com/stagelive/queue-service/internal/hub"
	pkgconfig "github.com/stagelive/queue-service/pkg/config"
	"github.com/stagelive/queue-service/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     cache.Config
	PubSub    pubsub.Config `mapstructure:"pubsub"`
	Rooms     RoomsConfig
	Auth      AuthConfig
	WebSocket hub.Config `mapstructure:"websocket"`
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RoomsConfig struct {
	Audition RoomConfig
	MainShow RoomConfig `mapstructure:"main_show"`
}

type RoomConfig struct {
	ID   string
	Name string
}

// Registry builds the room registry from configuration.
func (r RoomsConfig) Registry() *domain.Registry {
	return domain.NewRegistry([]domain.Room{
		{ID: r.Audition.ID, Type: domain.RoomTypeAudition, Name: r.Audition.Name},
		{ID: r.MainShow.ID, Type: domain.RoomTypeMainShow, Name: r.MainShow.Name},
	})
}

type AuthConfig struct {
	Secret        string
	Issuer        string
	StageTokenTTL int `mapstructure:"stage_token_ttl"` // seconds
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8084)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "queue_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/queue.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.prefix", "queue:snapshot")
	v.SetDefault("pubsub.driver", "redis")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.password", "")
	v.SetDefault("pubsub.redis.db", 0)
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "queue-service")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("rooms.audition.id", "audition")
	v.SetDefault("rooms.audition.name", "Audition Room")
	v.SetDefault("rooms.main_show.id", "main-show")
	v.SetDefault("rooms.main_show.name", "Main Show")
	v.SetDefault("auth.secret", "dev-secret-change-me")
	v.SetDefault("auth.issuer", "stagelive")
	v.SetDefault("auth.stage_token_ttl", 900)
	v.SetDefault("websocket.ping_interval", "54s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("log.level", "info")

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("cache.address", "REDIS_ADDRESS")
	v.BindEnv("cache.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "PUBSUB_REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "PUBSUB_REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.secret", "AUTH_SECRET")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
