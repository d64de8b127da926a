package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config centraliza la configuracion del worker.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development" validate:"oneof=development production test"`
	OpsPort string `env:"OPS_PORT" envDefault:"9090" validate:"required,numeric"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10" validate:"gte=1,lte=200"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	JobsQueue     string `env:"JOBS_QUEUE" envDefault:"relnet:jobs" validate:"required"`

	EmbeddingAPIKey     string        `env:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL    string        `env:"EMBEDDING_BASE_URL" envDefault:"https://api.openai.com/v1" validate:"omitempty,url"`
	EmbeddingModel      string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small" validate:"required"`
	EmbeddingDimensions int           `env:"EMBEDDING_DIMENSIONS" envDefault:"1536" validate:"gte=0"`
	EmbeddingRPS        float64       `env:"EMBEDDING_RPS" envDefault:"5" validate:"gte=0"`
	EmbeddingBurst      int           `env:"EMBEDDING_BURST" envDefault:"5" validate:"gte=0"`
	EmbeddingCacheTTL   time.Duration `env:"EMBEDDING_CACHE_TTL" envDefault:"24h"`
	SemanticTimeout     time.Duration `env:"SEMANTIC_TIMEOUT" envDefault:"3s"`

	GraphWorkers          int `env:"GRAPH_WORKERS" envDefault:"0" validate:"gte=0"`
	BetweennessSampleSize int `env:"BETWEENNESS_SAMPLE_SIZE" envDefault:"0" validate:"gte=0"`
	MatchMinScore         int `env:"MATCH_MIN_SCORE" envDefault:"40" validate:"gte=0,lte=100"`
	MatchMaxSuggestions   int `env:"MATCH_MAX_SUGGESTIONS" envDefault:"20" validate:"gte=1"`
}

// EmbeddingsEnabled indica si hay proveedor configurado. Sin clave la
// similitud semantica queda en su valor neutro.
func (c *Config) EmbeddingsEnabled() bool {
	return c.EmbeddingAPIKey != ""
}

// IsProduction elige el logger de produccion.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LoadConfig carga la configuracion desde variables de entorno y valida rangos.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate verifica los rangos de cada campo.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.SemanticTimeout <= 0 {
		return fmt.Errorf("invalid config: SEMANTIC_TIMEOUT must be positive")
	}
	return nil
}
