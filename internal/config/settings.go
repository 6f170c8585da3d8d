// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/verte-zerg/neontype/internal/model"
)

// Provider names accepted by textgen.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Settings is the resolved configuration: defaults, then the TOML file,
// then the environment. Command-line flags are applied by the caller.
type Settings struct {
	Addr               string
	Env                string
	AllowedOrigins     []string
	RateLimit          float64
	RateBurst          int
	DailyCheckInterval time.Duration
	ShutdownTimeout    time.Duration
	Location           *time.Location
	LogFormat          string
	LogLevel           string

	Provider       string
	Model          string
	APIKey         string
	MaxRetries     int
	RequestTimeout time.Duration
	TextsPath      string
	WordListPath   string

	StoreBackend  string
	DBPath        string
	MongoURI      string
	MongoDatabase string

	IdentityKey    model.IdentityKey
	GoogleClientID string
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Addr:               ":5000",
		Env:                "development",
		AllowedOrigins:     []string{"*"},
		RateLimit:          1,
		RateBurst:          5,
		DailyCheckInterval: time.Hour,
		ShutdownTimeout:    10 * time.Second,
		Location:           time.Local,
		LogFormat:          "text",
		LogLevel:           "info",
		MaxRetries:         3,
		RequestTimeout:     30 * time.Second,
		TextsPath:          DefaultTextsPath(),
		StoreBackend:       BackendSQLite,
		DBPath:             DefaultDBPath(),
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      appName,
		IdentityKey:        model.IdentityEmail,
	}
}

// LoadDotEnv loads a .env file from the working directory when present.
func LoadDotEnv() {
	// Missing .env is the normal case.
	_ = godotenv.Load()
}

// Resolve layers the file config and environment over the defaults.
func Resolve(fc FileConfig) (Settings, error) {
	s := Defaults()
	if err := applyFile(&s, fc); err != nil {
		return Settings{}, err
	}
	if err := applyEnv(&s); err != nil {
		return Settings{}, err
	}
	discoverProvider(&s)
	return s, nil
}

func applyFile(s *Settings, fc FileConfig) error {
	sc := fc.Server
	setString(&s.Addr, sc.Addr)
	setString(&s.Env, sc.Env)
	if len(sc.AllowedOrigins) > 0 {
		s.AllowedOrigins = sc.AllowedOrigins
	}
	if sc.RateLimit != nil {
		s.RateLimit = *sc.RateLimit
	}
	if sc.RateBurst != nil {
		s.RateBurst = *sc.RateBurst
	}
	if sc.DailyCheckInterval != nil {
		d, err := time.ParseDuration(*sc.DailyCheckInterval)
		if err != nil {
			return fmt.Errorf("invalid server.daily-check-interval: %w", err)
		}
		s.DailyCheckInterval = d
	}
	if sc.Timezone != nil {
		loc, err := time.LoadLocation(*sc.Timezone)
		if err != nil {
			return fmt.Errorf("invalid server.timezone: %w", err)
		}
		s.Location = loc
	}
	setString(&s.LogFormat, sc.LogFormat)
	setString(&s.LogLevel, sc.LogLevel)

	tc := fc.TextGen
	setString(&s.Provider, tc.Provider)
	setString(&s.Model, tc.Model)
	if tc.MaxRetries != nil {
		s.MaxRetries = *tc.MaxRetries
	}
	if tc.Timeout != nil {
		d, err := time.ParseDuration(*tc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid textgen.timeout: %w", err)
		}
		s.RequestTimeout = d
	}
	setString(&s.TextsPath, tc.TextsPath)
	setString(&s.WordListPath, tc.WordListPath)

	st := fc.Store
	setString(&s.StoreBackend, st.Backend)
	setString(&s.DBPath, st.Path)
	setString(&s.MongoURI, st.MongoURI)
	setString(&s.MongoDatabase, st.MongoDatabase)

	if fc.Identity.Key != nil {
		key, err := ParseIdentityKey(*fc.Identity.Key)
		if err != nil {
			return err
		}
		s.IdentityKey = key
	}
	setString(&s.GoogleClientID, fc.Identity.GoogleClientID)
	return nil
}

func applyEnv(s *Settings) error {
	if v := os.Getenv("PORT"); v != "" {
		s.Addr = ":" + v
	}
	setEnvString(&s.Addr, "NEONTYPE_ADDR")
	setEnvString(&s.Env, "ENV")
	if v := os.Getenv("NEONTYPE_ALLOWED_ORIGINS"); v != "" {
		s.AllowedOrigins = splitList(v)
	}
	s.RateBurst = getEnvInt("NEONTYPE_RATE_BURST", s.RateBurst)
	s.DailyCheckInterval = getEnvDuration("NEONTYPE_DAILY_CHECK_INTERVAL", s.DailyCheckInterval)
	s.ShutdownTimeout = getEnvDuration("NEONTYPE_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	if v := os.Getenv("NEONTYPE_TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return fmt.Errorf("invalid NEONTYPE_TIMEZONE: %w", err)
		}
		s.Location = loc
	}
	setEnvString(&s.LogFormat, "NEONTYPE_LOG_FORMAT")
	setEnvString(&s.LogLevel, "NEONTYPE_LOG_LEVEL")

	setEnvString(&s.Provider, "NEONTYPE_PROVIDER")
	setEnvString(&s.Model, "NEONTYPE_MODEL")
	s.MaxRetries = getEnvInt("NEONTYPE_MAX_RETRIES", s.MaxRetries)
	s.RequestTimeout = getEnvDuration("NEONTYPE_TEXTGEN_TIMEOUT", s.RequestTimeout)
	setEnvString(&s.TextsPath, "NEONTYPE_TEXTS")

	setEnvString(&s.StoreBackend, "NEONTYPE_STORE")
	setEnvString(&s.DBPath, "NEONTYPE_DB")
	setEnvString(&s.MongoURI, "MONGODB_URI")
	setEnvString(&s.MongoDatabase, "MONGODB_DATABASE")

	if v := os.Getenv("NEONTYPE_IDENTITY_KEY"); v != "" {
		key, err := ParseIdentityKey(v)
		if err != nil {
			return err
		}
		s.IdentityKey = key
	}
	setEnvString(&s.GoogleClientID, "GOOGLE_CLIENT_ID")
	return nil
}

// discoverProvider picks the API key for the configured provider, or the
// first provider with a key in the environment when none is configured.
func discoverProvider(s *Settings) {
	keys := []struct {
		provider string
		env      string
	}{
		{ProviderGemini, "GEMINI_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
	}
	for _, k := range keys {
		if s.Provider != "" && s.Provider != k.provider {
			continue
		}
		if v := os.Getenv(k.env); v != "" {
			s.Provider = k.provider
			s.APIKey = v
			return
		}
	}
	if s.Provider == "" {
		s.Provider = ProviderNone
	}
}

// ParseIdentityKey validates an identity key name.
func ParseIdentityKey(v string) (model.IdentityKey, error) {
	switch model.IdentityKey(strings.ToLower(strings.TrimSpace(v))) {
	case model.IdentityEmail:
		return model.IdentityEmail, nil
	case model.IdentityName:
		return model.IdentityName, nil
	default:
		return "", fmt.Errorf("identity key must be name or email, got %q", v)
	}
}

// Validate checks settings that cannot be defaulted.
func (s Settings) Validate() error {
	switch s.StoreBackend {
	case BackendSQLite:
		if s.DBPath == "" {
			return fmt.Errorf("store path is required for the sqlite backend")
		}
	case BackendMongo:
		if s.MongoURI == "" {
			return fmt.Errorf("mongo uri is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", s.StoreBackend)
	}
	if s.RateLimit <= 0 || s.RateBurst <= 0 {
		return fmt.Errorf("rate limit and burst must be positive")
	}
	if s.DailyCheckInterval <= 0 {
		return fmt.Errorf("daily check interval must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (s Settings) IsProduction() bool {
	return s.Env == "production" || os.Getenv("GIN_MODE") == "release"
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setEnvString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvDuration reads a time.Duration from the environment or returns a fallback.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "error", err, "default", fallback)
		return fallback
	}
	return d
}

// getEnvInt reads an int from the environment or returns a fallback.
func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid int, using default", "key", key, "error", err, "default", fallback)
		return fallback
	}
	return i
}
