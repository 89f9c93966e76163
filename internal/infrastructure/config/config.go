package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	S3        S3Config
	Local     LocalConfig
	Image     ImageConfig
	Reaper    ReaperConfig
	Redis     RedisConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	CORSOrigins     []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"local"`
}

type S3Config struct {
	Endpoint        string `envconfig:"S3_ENDPOINT"`
	Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	Bucket          string `envconfig:"S3_BUCKET"`
	AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `envconfig:"S3_USE_PATH_STYLE" default:"false"`
	PublicURL       string `envconfig:"S3_PUBLIC_URL"`
}

type LocalConfig struct {
	Root    string `envconfig:"LOCAL_STORAGE_ROOT" default:"./uploads"`
	BaseURL string `envconfig:"LOCAL_STORAGE_BASE_URL" default:"/uploads"`
}

type ImageConfig struct {
	Quality        int                      `envconfig:"IMAGE_QUALITY" default:"80"`
	Format         string                   `envconfig:"IMAGE_FORMAT" default:"webp"`
	MaxUploadBytes int64                    `envconfig:"IMAGE_MAX_UPLOAD_BYTES" default:"5242880"`
	AllowedFormats valueobject.Formats      `envconfig:"IMAGE_ALLOWED_FORMATS" default:"jpeg,png,webp"`
	MinWidth       int                      `envconfig:"IMAGE_MIN_WIDTH" default:"100"`
	MinHeight      int                      `envconfig:"IMAGE_MIN_HEIGHT" default:"100"`
	MaxPixels      int64                    `envconfig:"IMAGE_MAX_PIXELS" default:"40000000"`
	ProductSize    valueobject.Dimensions   `envconfig:"IMAGE_PRODUCT_SIZE" default:"800x800"`
	CategorySize   valueobject.Dimensions   `envconfig:"IMAGE_CATEGORY_SIZE" default:"600x600"`
	LogoSize       valueobject.Dimensions   `envconfig:"IMAGE_LOGO_SIZE" default:"400x400"`
	LogoFormat     string                   `envconfig:"IMAGE_LOGO_FORMAT"`
	Variants       valueobject.SizeProfiles `envconfig:"IMAGE_VARIANTS" default:"thumbnail:150x150,medium:400x400,large:800x800"`
	VariantQuality int                      `envconfig:"IMAGE_VARIANT_QUALITY" default:"80"`
	TransformSlots int                      `envconfig:"IMAGE_TRANSFORM_SLOTS" default:"1"`
	IngestTimeout  time.Duration            `envconfig:"IMAGE_INGEST_TIMEOUT" default:"30s"`
}

// Policy assembles the image policy; the variant format is always webp.
func (c ImageConfig) Policy() (valueobject.ImagePolicy, error) {
	format, err := valueobject.ParseFormat(c.Format)
	if err != nil {
		return valueobject.ImagePolicy{}, fmt.Errorf("IMAGE_FORMAT: %w", err)
	}
	logoFormat := format
	if c.LogoFormat != "" {
		if logoFormat, err = valueobject.ParseFormat(c.LogoFormat); err != nil {
			return valueobject.ImagePolicy{}, fmt.Errorf("IMAGE_LOGO_FORMAT: %w", err)
		}
	}

	kindPolicy := func(d valueobject.Dimensions, f valueobject.Format) valueobject.KindPolicy {
		return valueobject.KindPolicy{MaxWidth: d.Width, MaxHeight: d.Height, Quality: c.Quality, Format: f}
	}

	policy := valueobject.ImagePolicy{
		Kinds: map[valueobject.Kind]valueobject.KindPolicy{
			valueobject.KindProduct:        kindPolicy(c.ProductSize, format),
			valueobject.KindCategory:       kindPolicy(c.CategorySize, format),
			valueobject.KindRestaurantLogo: kindPolicy(c.LogoSize, logoFormat),
		},
		Sizes:          c.Variants,
		VariantFormat:  valueobject.FormatWebP,
		VariantQuality: c.VariantQuality,
		MinWidth:       c.MinWidth,
		MinHeight:      c.MinHeight,
		MaxUploadBytes: c.MaxUploadBytes,
		MaxPixels:      c.MaxPixels,
		AllowedFormats: c.AllowedFormats,
	}
	if err := policy.Validate(); err != nil {
		return valueobject.ImagePolicy{}, err
	}
	return policy, nil
}

type ReaperConfig struct {
	Enabled  bool          `envconfig:"REAPER_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"REAPER_INTERVAL" default:"1h"`
	MaxAge   time.Duration `envconfig:"REAPER_MAX_AGE" default:"24h"`
	Prefix   string        `envconfig:"REAPER_PREFIX"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type RedisConfig struct {
	URL      string        `envconfig:"REDIS_URL"`
	Timeout  time.Duration `envconfig:"REDIS_TIMEOUT" default:"500ms"`
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RateLimitConfig struct {
	Enabled        bool `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
	RequestsPerMin int  `envconfig:"RATE_LIMIT_REQUESTS_PER_MIN" default:"30"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
		if c.Local.Root == "" {
			return fmt.Errorf("LOCAL_STORAGE_ROOT is required for the local backend")
		}
	case BackendRemote:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the remote backend")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Reaper.Enabled && c.Storage.Backend == BackendLocal && c.Reaper.Interval <= 0 {
		return fmt.Errorf("REAPER_INTERVAL must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMin < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS_PER_MIN must be at least 1")
	}
	if c.Image.TransformSlots < 1 {
		return fmt.Errorf("IMAGE_TRANSFORM_SLOTS must be at least 1")
	}
	if _, err := c.Image.Policy(); err != nil {
		return err
	}
	return nil
}
