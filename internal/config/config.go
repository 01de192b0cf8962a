package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Spotify   SpotifyConfig
	OpenAI    OpenAIConfig
	Server    ServerConfig
	Generator GeneratorConfig
	History   HistoryConfig
	Usage     UsageConfig
	Redis     RedisConfig

	// Output format template for the generate command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string
}

// SpotifyConfig holds Spotify Web API credentials
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	Market       string
	RateLimit    float64 // requests per second, 0 disables throttling
}

// OpenAIConfig holds the intent model settings. An empty APIKey falls back
// to the built-in prompt parser.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr              string
	HeartbeatInterval time.Duration
	ShutdownTimeout   time.Duration
	ClientHeader      string
}

// GeneratorConfig holds engine tuning
type GeneratorConfig struct {
	DefaultTarget    int
	MaxTarget        int
	MaxFillAttempts  int
	DeadlineBase     time.Duration
	DeadlinePerTrack time.Duration
	DeadlineMax      time.Duration
}

// HistoryConfig holds run history settings
type HistoryConfig struct {
	DBPath    string // empty means <data dir>/history.db
	Retention time.Duration
}

// UsageConfig holds the daily generation quota
type UsageConfig struct {
	DailyLimit int // 0 or less means unlimited
	Plan       string
}

// RedisConfig holds the optional catalog cache
type RedisConfig struct {
	Enabled bool
	Addr    string
	DB      int
	TTL     time.Duration
}

// Load reads configuration from .env, the config file and environment
func Load() (*Config, error) {
	// .env is optional; existing environment variables win
	_ = godotenv.Load()

	return load(getConfigDir())
}

func load(configDir string) (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables, e.g. CRATE_SPOTIFY_CLIENT_ID
	v.SetEnvPrefix("CRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by the upstream SDKs
	_ = v.BindEnv("spotify.client_id", "CRATE_SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_ID")
	_ = v.BindEnv("spotify.client_secret", "CRATE_SPOTIFY_CLIENT_SECRET", "SPOTIFY_CLIENT_SECRET")
	_ = v.BindEnv("openai.api_key", "CRATE_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "CRATE_OPENAI_BASE_URL", "OPENAI_BASE_URL")

	cfg := &Config{
		OutputFormat: v.GetString("output_format"),
		Spotify: SpotifyConfig{
			ClientID:     v.GetString("spotify.client_id"),
			ClientSecret: v.GetString("spotify.client_secret"),
			Market:       v.GetString("spotify.market"),
			RateLimit:    v.GetFloat64("spotify.rate_limit"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  v.GetString("openai.api_key"),
			BaseURL: v.GetString("openai.base_url"),
			Model:   v.GetString("openai.model"),
		},
		Server: ServerConfig{
			Addr:              v.GetString("server.addr"),
			HeartbeatInterval: v.GetDuration("server.heartbeat_interval"),
			ShutdownTimeout:   v.GetDuration("server.shutdown_timeout"),
			ClientHeader:      v.GetString("server.client_header"),
		},
		Generator: GeneratorConfig{
			DefaultTarget:    v.GetInt("generator.default_target"),
			MaxTarget:        v.GetInt("generator.max_target"),
			MaxFillAttempts:  v.GetInt("generator.max_fill_attempts"),
			DeadlineBase:     v.GetDuration("generator.deadline_base"),
			DeadlinePerTrack: v.GetDuration("generator.deadline_per_track"),
			DeadlineMax:      v.GetDuration("generator.deadline_max"),
		},
		History: HistoryConfig{
			DBPath:    v.GetString("history.db_path"),
			Retention: v.GetDuration("history.retention"),
		},
		Usage: UsageConfig{
			DailyLimit: v.GetInt("usage.daily_limit"),
			Plan:       v.GetString("usage.plan"),
		},
		Redis: RedisConfig{
			Enabled: v.GetBool("redis.enabled"),
			Addr:    v.GetString("redis.addr"),
			DB:      v.GetInt("redis.db"),
			TTL:     v.GetDuration("redis.ttl"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_format", "{{.Artist}} - {{.Title}}")

	v.SetDefault("spotify.market", "US")
	v.SetDefault("spotify.rate_limit", 10)

	v.SetDefault("openai.model", "gpt-4o-mini")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.heartbeat_interval", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.client_header", "X-Client-ID")

	v.SetDefault("generator.default_target", 50)
	v.SetDefault("generator.max_target", 250)
	v.SetDefault("generator.max_fill_attempts", 4)
	v.SetDefault("generator.deadline_base", "30s")
	v.SetDefault("generator.deadline_per_track", "500ms")
	v.SetDefault("generator.deadline_max", "3m")

	v.SetDefault("history.retention", "720h")

	v.SetDefault("usage.daily_limit", 0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "1h")
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "crate")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// DataDir returns the directory for the history database
func DataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".local", "share", "crate"), nil
}

// Save writes configuration to file
func (c *Config) Save() error {
	return c.saveTo(getConfigDir())
}

func (c *Config) saveTo(configDir string) error {
	v := viper.New()
	configFile := filepath.Join(configDir, "config.yaml")

	v.Set("output_format", c.OutputFormat)
	v.Set("spotify.client_id", c.Spotify.ClientID)
	v.Set("spotify.client_secret", c.Spotify.ClientSecret)
	v.Set("spotify.market", c.Spotify.Market)
	v.Set("spotify.rate_limit", c.Spotify.RateLimit)
	v.Set("openai.api_key", c.OpenAI.APIKey)
	v.Set("openai.base_url", c.OpenAI.BaseURL)
	v.Set("openai.model", c.OpenAI.Model)
	v.Set("server.addr", c.Server.Addr)
	v.Set("server.heartbeat_interval", c.Server.HeartbeatInterval.String())
	v.Set("server.shutdown_timeout", c.Server.ShutdownTimeout.String())
	v.Set("server.client_header", c.Server.ClientHeader)
	v.Set("generator.default_target", c.Generator.DefaultTarget)
	v.Set("generator.max_target", c.Generator.MaxTarget)
	v.Set("generator.max_fill_attempts", c.Generator.MaxFillAttempts)
	v.Set("generator.deadline_base", c.Generator.DeadlineBase.String())
	v.Set("generator.deadline_per_track", c.Generator.DeadlinePerTrack.String())
	v.Set("generator.deadline_max", c.Generator.DeadlineMax.String())
	v.Set("history.db_path", c.History.DBPath)
	v.Set("history.retention", c.History.Retention.String())
	v.Set("usage.daily_limit", c.Usage.DailyLimit)
	v.Set("usage.plan", c.Usage.Plan)
	v.Set("redis.enabled", c.Redis.Enabled)
	v.Set("redis.addr", c.Redis.Addr)
	v.Set("redis.db", c.Redis.DB)
	v.Set("redis.ttl", c.Redis.TTL.String())

	// Write to file
	return v.WriteConfigAs(configFile)
}
