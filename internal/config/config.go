// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the HTTP
// server, logging, the datastore and companion cache, the language-model and
// speech providers, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported language-model providers. The active one is chosen once at startup.
const (
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

// Supported datastore drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// TokenConfig carries token/secret settings. They are parsed and validated
// but no endpoint issues or checks tokens yet.
type TokenConfig struct {
	SecretKey         string
	JWTAlgorithm      string
	AccessTokenExpiry time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ProviderCreds is the key/model pair of a single language-model provider.
type ProviderCreds struct {
	APIKey  string
	Model   string
	BaseURL string // optional override of the provider endpoint
}

// LLMConfig selects and parameterizes the language-model provider.
type LLMConfig struct {
	Provider    string // openai|groq|anthropic
	OpenAI      ProviderCreds
	Groq        ProviderCreds
	Anthropic   ProviderCreds
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Active returns the credentials of the configured provider.
func (c LLMConfig) Active() ProviderCreds {
	switch c.Provider {
	case ProviderGroq:
		return c.Groq
	case ProviderAnthropic:
		return c.Anthropic
	default:
		return c.OpenAI
	}
}

// TTSConfig parameterizes the speech synthesizer. The OpenAI key is shared
// with the language-model configuration.
type TTSConfig struct {
	Enabled      bool    // USE_OPENAI_TTS
	APIKey       string  // OPENAI_API_KEY
	BaseURL      string  // OPENAI_BASE_URL
	Model        string  // tts-1 | tts-1-hd
	Voice        string  // global default voice
	FemaleVoice  string  // voice for "girl" companions
	MaleVoice    string  // voice for "boy" companions
	DefaultSpeed float64 // 0.25..4.0
	Timeout      time.Duration
}

// DatabaseConfig selects the datastore.
type DatabaseConfig struct {
	Driver string // sqlite|postgres
	URL    string // DSN; for sqlite a file path
	Name   string // logical database name; sqlite file name when URL is empty
}

// DSN returns the connection string, deriving a sqlite file from Name when
// no URL was configured.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == DriverSQLite {
		return d.Name + ".db"
	}
	return ""
}

// CacheConfig configures the companion lookup cache.
type CacheConfig struct {
	RedisURL     string        // empty selects the in-process cache
	CompanionTTL time.Duration // lifetime of cached companion documents
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Host              string
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 30s; TTS responses can be slow
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	Debug             bool
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	Database DatabaseConfig
	Cache    CacheConfig
	LLM      LLMConfig
	TTS      TTSConfig
	Tokens   TokenConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	debug := getbool("DEBUG", false)
	defaultMode := "release"
	if debug {
		defaultMode = "debug"
	}

	cfg := Config{
		// Server
		Host:              getenv("API_HOST", "0.0.0.0"),
		Port:              getenv("API_PORT", getenv("PORT", "8001")),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 45*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		Debug:             debug,
		GinMode:           strings.ToLower(getenv("GIN_MODE", defaultMode)),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", debug),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/")),

		Database: DatabaseConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
			URL:    getenv("DATABASE_URL", ""),
			Name:   getenv("DATABASE_NAME", "AICompanionDB"),
		},
		Cache: CacheConfig{
			RedisURL:     getenv("REDIS_URL", ""),
			CompanionTTL: getdur("COMPANION_CACHE_TTL", 10*time.Minute),
		},

		LLM: LLMConfig{
			Provider: strings.ToLower(strings.TrimSpace(getenv("LLM_PROVIDER", ProviderOpenAI))),
			OpenAI: ProviderCreds{
				APIKey:  getenv("OPENAI_API_KEY", ""),
				Model:   getenv("OPENAI_MODEL", "gpt-3.5-turbo"),
				BaseURL: getenv("OPENAI_BASE_URL", ""),
			},
			Groq: ProviderCreds{
				APIKey:  getenv("GROQ_API_KEY", ""),
				Model:   getenv("GROQ_MODEL", "llama-3.1-70b-versatile"),
				BaseURL: getenv("GROQ_BASE_URL", ""),
			},
			Anthropic: ProviderCreds{
				APIKey:  getenv("ANTHROPIC_API_KEY", ""),
				Model:   getenv("ANTHROPIC_MODEL", "claude-3-sonnet-20240229"),
				BaseURL: getenv("ANTHROPIC_BASE_URL", ""),
			},
			Temperature: getfloat("LLM_TEMPERATURE", 0.8),
			MaxTokens:   getint("LLM_MAX_TOKENS", 150),
			Timeout:     getdur("LLM_TIMEOUT", 20*time.Second),
		},

		TTS: TTSConfig{
			Enabled:      getbool("USE_OPENAI_TTS", true),
			APIKey:       getenv("OPENAI_API_KEY", ""),
			BaseURL:      getenv("OPENAI_BASE_URL", ""),
			Model:        getenv("OPENAI_TTS_MODEL", "tts-1"),
			Voice:        strings.ToLower(getenv("OPENAI_TTS_VOICE", "nova")),
			FemaleVoice:  strings.ToLower(getenv("TTS_FEMALE_VOICE", "nova")),
			MaleVoice:    strings.ToLower(getenv("TTS_MALE_VOICE", "onyx")),
			DefaultSpeed: getfloat("DEFAULT_VOICE_SPEED", 1.0),
			Timeout:      getdur("TTS_TIMEOUT", 20*time.Second),
		},

		Tokens: TokenConfig{
			SecretKey:         getenv("SECRET_KEY", "your-secret-key-change-in-production"),
			JWTAlgorithm:      strings.ToUpper(getenv("JWT_ALGORITHM", "HS256")),
			AccessTokenExpiry: time.Duration(getint("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "ai-companion-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Database.Driver == "postgresql" || cfg.Database.Driver == "pg" {
		cfg.Database.Driver = DriverPostgres
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("API_PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.Database.URL) == "" && strings.TrimSpace(cfg.Database.Name) == "" {
			return cfg, errors.New("DATABASE_URL or DATABASE_NAME must be set")
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.Database.URL) == "" {
			return cfg, errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return cfg, fmt.Errorf("DB_DRIVER must be one of: %s, %s", DriverSQLite, DriverPostgres)
	}
	if cfg.Cache.CompanionTTL <= 0 {
		return cfg, errors.New("COMPANION_CACHE_TTL must be > 0")
	}
	switch cfg.LLM.Provider {
	case ProviderOpenAI, ProviderGroq, ProviderAnthropic:
	default:
		return cfg, fmt.Errorf("unknown LLM provider: %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return cfg, errors.New("LLM_TEMPERATURE must be between 0 and 2")
	}
	if cfg.LLM.MaxTokens < 1 {
		return cfg, errors.New("LLM_MAX_TOKENS must be >= 1")
	}
	if cfg.LLM.Timeout <= 0 || cfg.TTS.Timeout <= 0 {
		return cfg, errors.New("LLM_TIMEOUT and TTS_TIMEOUT must be positive durations")
	}
	if cfg.TTS.DefaultSpeed < 0.25 || cfg.TTS.DefaultSpeed > 4 {
		return cfg, errors.New("DEFAULT_VOICE_SPEED must be between 0.25 and 4.0")
	}
	if cfg.Tokens.AccessTokenExpiry <= 0 {
		return cfg, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
