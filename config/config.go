package config

import (
	"log"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Alert      AlertConfig      `yaml:"alert"`
	Actuator   ActuatorConfig   `yaml:"actuator"`
	Weather    WeatherConfig    `yaml:"weather"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the push notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	ConnectRetries         int    `yaml:"connect_retries"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// AuthConfig holds the device shared secret and the bearer token settings.
type AuthConfig struct {
	DeviceSecret   string `yaml:"device_secret"`
	JWTSecret      string `yaml:"jwt_secret"`
	JWTAudience    string `yaml:"jwt_audience"`
	JWTIssuer      string `yaml:"jwt_issuer"`
	TokenMaxAgeSec int    `yaml:"token_max_age_sec"`

	TokenMaxAge time.Duration `yaml:"-"`
}

// TelemetryConfig holds the notable-change thresholds and the danger band.
type TelemetryConfig struct {
	DeviceID      string  `yaml:"device_id"`
	PHDelta       float64 `yaml:"ph_delta"`
	PPMDelta      float64 `yaml:"ppm_delta"`
	TempDelta     float64 `yaml:"temp_delta"`
	BandHalfWidth float64 `yaml:"band_half_width"`
	// DefaultBandLow/High apply when no planted cycle is active. Unset keys
	// take the defaults; an explicit DefaultBandHigh of zero or less makes the
	// fallback band unbounded.
	DefaultBandLow  *float64 `yaml:"default_band_low"`
	DefaultBandHigh *float64 `yaml:"default_band_high"`
	PageLimit       int      `yaml:"page_limit"`
}

// FallbackBand returns the danger band used without an active cycle. An
// unbounded band has a High of +Inf.
func (t TelemetryConfig) FallbackBand() (low, high float64) {
	low, high = 600, 1200
	if t.DefaultBandLow != nil {
		low = *t.DefaultBandLow
	}
	if t.DefaultBandHigh != nil {
		high = *t.DefaultBandHigh
	}
	if high <= 0 {
		high = math.Inf(1)
	}
	return low, high
}

// AlertConfig holds the PPM alert policy and the email transport.
type AlertConfig struct {
	CooldownMinutes int         `yaml:"cooldown_minutes"`
	DebounceCount   int         `yaml:"debounce_count"`
	Email           EmailConfig `yaml:"email"`

	Cooldown time.Duration `yaml:"-"`
}

// EmailConfig holds the SMTP settings for alert emails.
type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Enabled reports whether email alerts can be sent.
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && len(e.To) > 0
}

// ActuatorConfig holds per-actuator ON durations.
type ActuatorConfig struct {
	NutrientSeconds   int  `yaml:"nutrient_seconds"`
	PesticideSeconds  int  `yaml:"pesticide_seconds"`
	RejectOverlapping bool `yaml:"reject_overlapping"`

	NutrientDuration  time.Duration `yaml:"-"`
	PesticideDuration time.Duration `yaml:"-"`
}

// WeatherConfig holds the humidity lookup settings.
type WeatherConfig struct {
	Enabled         bool    `yaml:"enabled"`
	BaseURL         string  `yaml:"base_url"`
	Latitude        float64 `yaml:"latitude"`
	Longitude       float64 `yaml:"longitude"`
	Timezone        string  `yaml:"timezone"`
	RefreshMinutes  int     `yaml:"refresh_minutes"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	BreakerFailures int     `yaml:"breaker_failures"`

	Refresh time.Duration `yaml:"-"`
	Timeout time.Duration `yaml:"-"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// applyEnv lets deployment secrets override the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SECRET_KEY_IOT"); v != "" {
		cfg.Auth.DeviceSecret = v
	}
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		cfg.Alert.Email.User = v
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		cfg.Alert.Email.Password = v
	}
}

// ApplyDefaults fills unset fields and derives the duration fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.ConnectRetries <= 0 {
		cfg.Database.ConnectRetries = 5
	}

	if cfg.Auth.JWTAudience == "" {
		cfg.Auth.JWTAudience = "urn:audience:test"
	}
	if cfg.Auth.JWTIssuer == "" {
		cfg.Auth.JWTIssuer = "urn:issuer:test"
	}
	if cfg.Auth.TokenMaxAgeSec <= 0 {
		cfg.Auth.TokenMaxAgeSec = 14400
	}
	cfg.Auth.TokenMaxAge = time.Duration(cfg.Auth.TokenMaxAgeSec) * time.Second

	t := &cfg.Telemetry
	if t.DeviceID == "" {
		t.DeviceID = "esp-001"
	}
	if t.PHDelta <= 0 {
		t.PHDelta = 1
	}
	if t.PPMDelta <= 0 {
		t.PPMDelta = 100
	}
	if t.TempDelta <= 0 {
		t.TempDelta = 3
	}
	if t.BandHalfWidth <= 0 {
		t.BandHalfWidth = 200
	}
	if t.PageLimit <= 0 {
		t.PageLimit = 50
	}

	if cfg.Alert.CooldownMinutes <= 0 {
		cfg.Alert.CooldownMinutes = 30
	}
	cfg.Alert.Cooldown = time.Duration(cfg.Alert.CooldownMinutes) * time.Minute
	if cfg.Alert.DebounceCount <= 0 {
		cfg.Alert.DebounceCount = 1
	}
	if cfg.Alert.Email.Port <= 0 {
		cfg.Alert.Email.Port = 587
	}
	if cfg.Alert.Email.From == "" {
		cfg.Alert.Email.From = cfg.Alert.Email.User
	}

	if cfg.Actuator.NutrientSeconds <= 0 {
		cfg.Actuator.NutrientSeconds = 5
	}
	if cfg.Actuator.PesticideSeconds <= 0 {
		cfg.Actuator.PesticideSeconds = 5
	}
	cfg.Actuator.NutrientDuration = time.Duration(cfg.Actuator.NutrientSeconds) * time.Second
	cfg.Actuator.PesticideDuration = time.Duration(cfg.Actuator.PesticideSeconds) * time.Second

	w := &cfg.Weather
	if w.BaseURL == "" {
		w.BaseURL = "https://api.open-meteo.com/v1/forecast"
	}
	if w.Latitude == 0 && w.Longitude == 0 {
		w.Latitude, w.Longitude = -6.67778, 106.85389
	}
	if w.Timezone == "" {
		w.Timezone = "Asia/Jakarta"
	}
	if w.RefreshMinutes <= 0 {
		w.RefreshMinutes = 60
	}
	w.Refresh = time.Duration(w.RefreshMinutes) * time.Minute
	if w.TimeoutSeconds <= 0 {
		w.TimeoutSeconds = 10
	}
	w.Timeout = time.Duration(w.TimeoutSeconds) * time.Second
	if w.BreakerFailures <= 0 {
		w.BreakerFailures = 3
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
