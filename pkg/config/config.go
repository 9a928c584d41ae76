package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	Storage   StorageConfig
	Security  SecurityConfig
	Session   SessionConfig
	Sync      SyncConfig
	SyncStore SyncStoreConfig
	Redis     RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TIENDALUZ_APP_ENV" default:"dev"`
	Port         string `envconfig:"TIENDALUZ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TIENDALUZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TIENDALUZ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StorageConfig struct {
	Path string `envconfig:"TIENDALUZ_STORAGE_PATH" default:"tiendaluz.db"`
}

type SecurityConfig struct {
	PBKDF2Iterations int           `envconfig:"TIENDALUZ_PBKDF2_ITERATIONS" default:"310000"`
	SaltLen          int           `envconfig:"TIENDALUZ_SALT_LEN" default:"16"`
	KeyLen           int           `envconfig:"TIENDALUZ_KEY_LEN" default:"32"`
	LockoutThreshold int           `envconfig:"TIENDALUZ_LOCKOUT_THRESHOLD" default:"5"`
	LockoutWindow    time.Duration `envconfig:"TIENDALUZ_LOCKOUT_WINDOW" default:"15m"`
	InviteCodeLength int           `envconfig:"TIENDALUZ_INVITE_CODE_LENGTH" default:"10"`
}

type SessionConfig struct {
	JWTSecret         string `envconfig:"TIENDALUZ_JWT_SECRET"`
	JWTIssuer         string `envconfig:"TIENDALUZ_JWT_ISSUER" default:"tiendaluz"`
	ExpirationMinutes int    `envconfig:"TIENDALUZ_JWT_EXPIRATION_MINUTES" default:"720"`
}

// TokenTTL returns the access token lifetime configured in minutes.
func (s SessionConfig) TokenTTL() time.Duration {
	if s.ExpirationMinutes <= 0 {
		return 720 * time.Minute
	}
	return time.Duration(s.ExpirationMinutes) * time.Minute
}

type SyncConfig struct {
	DebounceInterval  time.Duration `envconfig:"TIENDALUZ_SYNC_DEBOUNCE" default:"3s"`
	HeartbeatInterval time.Duration `envconfig:"TIENDALUZ_SYNC_HEARTBEAT" default:"45s"`
	RequestTimeout    time.Duration `envconfig:"TIENDALUZ_SYNC_REQUEST_TIMEOUT" default:"15s"`
}

type SyncStoreConfig struct {
	Backend         string        `envconfig:"TIENDALUZ_SYNCSTORE_BACKEND" default:"memory"`
	Secret          string        `envconfig:"TIENDALUZ_SYNCSTORE_SECRET"`
	LockTimeout     time.Duration `envconfig:"TIENDALUZ_SYNCSTORE_LOCK_TIMEOUT" default:"2s"`
	MinPayloadBytes int           `envconfig:"TIENDALUZ_SYNCSTORE_MIN_PAYLOAD_BYTES" default:"64"`
	BackupLimit     int           `envconfig:"TIENDALUZ_SYNCSTORE_BACKUP_LIMIT" default:"10"`
}

type RedisConfig struct {
	Addr         string        `envconfig:"TIENDALUZ_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"TIENDALUZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIENDALUZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIENDALUZ_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"TIENDALUZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIENDALUZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIENDALUZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}
