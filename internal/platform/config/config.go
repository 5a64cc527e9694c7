package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultBaseURL         = "http://localhost:8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultCookieName      = "onclick_session"
	defaultSessionMaxAge   = 30 * 24 * time.Hour
	defaultStorageBackend  = BackendMemory
	defaultCollection      = "onclick_pages"
	defaultDebounce        = 500 * time.Millisecond
	defaultCheckLatency    = 800 * time.Millisecond
	defaultRetryElapsed    = 5 * time.Second
	defaultDebouncerCache  = 4096
	defaultPinataBaseURL   = "https://api.pinata.cloud"
	defaultGatewayURL      = "https://ipfs.io/ipfs/"
	defaultUploadLimit     = 5 << 20
	defaultPaymentDelay    = 3 * time.Second
	defaultLogLevel        = "info"
	defaultEventsTopicName = "onclick-events"
)

// Storage backends understood by the draft store.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Session       SessionConfig
	Storage       StorageConfig
	Registry      RegistryConfig
	Pinning       PinningConfig
	Payments      PaymentsConfig
	Events        EventsConfig
	Observability ObservabilityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SessionConfig controls the signed session cookie that carries owner flags.
type SessionConfig struct {
	CookieName string
	HashKey    string
	BlockKey   string
	Secure     bool
	MaxAge     time.Duration
}

// StorageConfig selects the draft store backend.
type StorageConfig struct {
	Backend      string
	DSN          string
	ProjectID    string
	Collection   string
	EmulatorHost string
}

// RegistryConfig tunes the handle availability check.
type RegistryConfig struct {
	Debounce        time.Duration
	Latency         time.Duration
	RetryMaxElapsed time.Duration
	SessionCache    int
}

// PinningConfig configures where uploaded assets and metadata are pinned.
type PinningConfig struct {
	PinataJWT     string
	PinataBaseURL string
	GatewayURL    string
	GCSBucket     string
	UploadLimit   int64
}

// PaymentsConfig tunes the payment simulator.
type PaymentsConfig struct {
	SimulatedDelay time.Duration
}

// EventsConfig selects the Pub/Sub topic for domain events. Empty project disables publishing.
type EventsConfig struct {
	ProjectID string
	Topic     string
}

// ObservabilityConfig groups logging and tracing settings.
type ObservabilityConfig struct {
	LogLevel       string
	TraceProjectID string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, the .env file, the process environment
// and explicit overrides, in increasing order of precedence.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "ONCLICK_SERVER_PORT", defaultPort),
			BaseURL:      strings.TrimRight(stringWithDefault(lookup, "ONCLICK_SERVER_BASE_URL", defaultBaseURL), "/"),
			ReadTimeout:  durationWithDefault(lookup, "ONCLICK_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "ONCLICK_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "ONCLICK_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Session: SessionConfig{
			CookieName: stringWithDefault(lookup, "ONCLICK_SESSION_COOKIE_NAME", defaultCookieName),
			HashKey:    stringWithDefault(lookup, "ONCLICK_SESSION_HASH_KEY", ""),
			BlockKey:   stringWithDefault(lookup, "ONCLICK_SESSION_BLOCK_KEY", ""),
			Secure:     boolWithDefault(lookup, "ONCLICK_SESSION_SECURE", false),
			MaxAge:     durationWithDefault(lookup, "ONCLICK_SESSION_MAX_AGE", defaultSessionMaxAge),
		},
		Storage: StorageConfig{
			Backend:      strings.ToLower(stringWithDefault(lookup, "ONCLICK_STORAGE_BACKEND", defaultStorageBackend)),
			DSN:          stringWithDefault(lookup, "ONCLICK_STORAGE_DSN", ""),
			ProjectID:    stringWithDefault(lookup, "ONCLICK_FIRESTORE_PROJECT_ID", ""),
			Collection:   stringWithDefault(lookup, "ONCLICK_FIRESTORE_COLLECTION", defaultCollection),
			EmulatorHost: stringWithDefault(lookup, "ONCLICK_FIRESTORE_EMULATOR_HOST", ""),
		},
		Registry: RegistryConfig{
			Debounce:        durationWithDefault(lookup, "ONCLICK_REGISTRY_DEBOUNCE", defaultDebounce),
			Latency:         durationWithDefault(lookup, "ONCLICK_REGISTRY_LATENCY", defaultCheckLatency),
			RetryMaxElapsed: durationWithDefault(lookup, "ONCLICK_REGISTRY_RETRY_MAX_ELAPSED", defaultRetryElapsed),
			SessionCache:    intWithDefault(lookup, "ONCLICK_REGISTRY_SESSION_CACHE", defaultDebouncerCache),
		},
		Pinning: PinningConfig{
			PinataJWT:     stringWithDefault(lookup, "ONCLICK_PINATA_JWT", ""),
			PinataBaseURL: strings.TrimRight(stringWithDefault(lookup, "ONCLICK_PINATA_BASE_URL", defaultPinataBaseURL), "/"),
			GatewayURL:    stringWithDefault(lookup, "ONCLICK_IPFS_GATEWAY_URL", defaultGatewayURL),
			GCSBucket:     stringWithDefault(lookup, "ONCLICK_PINNING_GCS_BUCKET", ""),
			UploadLimit:   int64(intWithDefault(lookup, "ONCLICK_UPLOAD_LIMIT_BYTES", defaultUploadLimit)),
		},
		Payments: PaymentsConfig{
			SimulatedDelay: durationWithDefault(lookup, "ONCLICK_PAYMENTS_SIMULATED_DELAY", defaultPaymentDelay),
		},
		Events: EventsConfig{
			ProjectID: stringWithDefault(lookup, "ONCLICK_EVENTS_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "ONCLICK_EVENTS_TOPIC", defaultEventsTopicName),
		},
		Observability: ObservabilityConfig{
			LogLevel:       strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
			TraceProjectID: stringWithDefault(lookup, "ONCLICK_TRACE_PROJECT_ID", ""),
		},
	}

	// Firestore falls back to the events project so a single GCP project needs one variable.
	if cfg.Storage.ProjectID == "" {
		cfg.Storage.ProjectID = cfg.Events.ProjectID
	}
	if cfg.Storage.Backend == BackendSQLite && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "onclick.db"
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	if !strings.HasPrefix(cfg.Server.BaseURL, "http://") && !strings.HasPrefix(cfg.Server.BaseURL, "https://") {
		invalid = append(invalid, "Server.BaseURL")
	}
	if cfg.Session.CookieName == "" {
		invalid = append(invalid, "Session.CookieName")
	}
	switch cfg.Storage.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if cfg.Storage.DSN == "" {
			invalid = append(invalid, "Storage.DSN")
		}
	case BackendFirestore:
		if cfg.Storage.ProjectID == "" {
			invalid = append(invalid, "Storage.ProjectID")
		}
		if cfg.Storage.Collection == "" {
			invalid = append(invalid, "Storage.Collection")
		}
	default:
		invalid = append(invalid, "Storage.Backend")
	}
	if cfg.Registry.Debounce <= 0 {
		invalid = append(invalid, "Registry.Debounce")
	}
	if cfg.Registry.Latency < 0 {
		invalid = append(invalid, "Registry.Latency")
	}
	if cfg.Registry.SessionCache <= 0 {
		invalid = append(invalid, "Registry.SessionCache")
	}
	if cfg.Pinning.UploadLimit <= 0 {
		invalid = append(invalid, "Pinning.UploadLimit")
	}
	if cfg.Payments.SimulatedDelay < 0 {
		invalid = append(invalid, "Payments.SimulatedDelay")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
