package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Storage backends for sessions.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Face locator backends.
const (
	LocatorNone        = "none"
	LocatorRekognition = "rekognition"
	LocatorDeepFace    = "deepface"
)

const minProductionSecretLength = 32

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	// Storage
	StorageType    string `envconfig:"STORAGE_TYPE" default:"memory"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	AutoMigrate    bool   `envconfig:"AUTO_MIGRATE" default:"false"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisNamespace string `envconfig:"REDIS_NAMESPACE" default:"livegate"`

	// Sessions
	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"10m"`
	SessionMaxAttempts   int           `envconfig:"SESSION_MAX_ATTEMPTS" default:"3"`
	SessionSweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`
	SessionSweepOnCreate bool          `envconfig:"SESSION_SWEEP_ON_CREATE" default:"false"`
	ChallengeMode        string        `envconfig:"CHALLENGE_MODE" default:"random"`
	SubjectFormat        string        `envconfig:"SUBJECT_FORMAT" default:"opaque"`

	// Liveness thresholds
	BlinkThreshold            float64 `envconfig:"BLINK_THRESHOLD" default:"0.25"`
	SmileThreshold            float64 `envconfig:"SMILE_THRESHOLD" default:"0.6"`
	MovementThreshold         float64 `envconfig:"MOVEMENT_THRESHOLD" default:"5"`
	MovementVarianceThreshold float64 `envconfig:"MOVEMENT_VARIANCE_THRESHOLD" default:"2"`
	SpoofThreshold            float64 `envconfig:"SPOOF_THRESHOLD" default:"0.5"`
	LivenessThreshold         float64 `envconfig:"LIVENESS_THRESHOLD" default:"0.7"`

	// Authentication decision
	DecisionPolicy string  `envconfig:"DECISION_POLICY" default:"mean"`
	AuthThreshold  float64 `envconfig:"AUTH_THRESHOLD" default:"0.7"`
	QualityWeight  float64 `envconfig:"QUALITY_WEIGHT" default:"0.5"`

	// Tokens
	TokenSecret string        `envconfig:"TOKEN_SECRET" required:"true"`
	TokenIssuer string        `envconfig:"TOKEN_ISSUER" default:"livegate"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"1h"`

	// Face locator
	LocatorType   string  `envconfig:"LOCATOR_TYPE" default:"none"`
	AWSRegion     string  `envconfig:"AWS_REGION" default:"us-east-1"`
	DeepFaceURL   string  `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	MinConfidence float64 `envconfig:"LOCATOR_MIN_CONFIDENCE" default:"0.5"`

	// Webhook
	WebhookURL    string   `envconfig:"WEBHOOK_URL"`
	WebhookSecret string   `envconfig:"WEBHOOK_SECRET"`
	WebhookEvents []string `envconfig:"WEBHOOK_EVENTS"`

	// Rate limiting
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"60"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// Metrics
	MetricsInterval time.Duration `envconfig:"METRICS_INTERVAL" default:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects inconsistent settings. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageType {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres storage"))
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for redis storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType))
	}

	switch c.ChallengeMode {
	case "", "random", "blink", "smile", "head_movement", "comprehensive":
	default:
		errs = append(errs, fmt.Errorf("unknown CHALLENGE_MODE %q", c.ChallengeMode))
	}

	switch c.SubjectFormat {
	case "", "opaque", "aadhaar":
	default:
		errs = append(errs, fmt.Errorf("unknown SUBJECT_FORMAT %q", c.SubjectFormat))
	}

	switch c.LocatorType {
	case "", LocatorNone, LocatorRekognition, LocatorDeepFace:
	default:
		errs = append(errs, fmt.Errorf("unknown LOCATOR_TYPE %q", c.LocatorType))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.SessionMaxAttempts < 1 {
		errs = append(errs, errors.New("SESSION_MAX_ATTEMPTS must be at least 1"))
	}
	for name, v := range map[string]float64{
		"BLINK_THRESHOLD":    c.BlinkThreshold,
		"SMILE_THRESHOLD":    c.SmileThreshold,
		"SPOOF_THRESHOLD":    c.SpoofThreshold,
		"LIVENESS_THRESHOLD": c.LivenessThreshold,
	} {
		if v <= 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within (0,1]", name))
		}
	}
	if c.MovementThreshold < 0 {
		errs = append(errs, errors.New("MOVEMENT_THRESHOLD must not be negative"))
	}
	if c.MovementVarianceThreshold < 0 {
		errs = append(errs, errors.New("MOVEMENT_VARIANCE_THRESHOLD must not be negative"))
	}
	if c.AuthThreshold < 0 || c.AuthThreshold > 1 {
		errs = append(errs, errors.New("AUTH_THRESHOLD must be within [0,1]"))
	}
	if c.QualityWeight < 0 || c.QualityWeight > 1 {
		errs = append(errs, errors.New("QUALITY_WEIGHT must be within [0,1]"))
	}
	if c.IsProduction() && len(c.TokenSecret) < minProductionSecretLength {
		errs = append(errs, fmt.Errorf("TOKEN_SECRET must be at least %d characters in production", minProductionSecretLength))
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
