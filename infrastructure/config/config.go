package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ixp-grapher/domain/core/entities"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the service reads, so
// server.address is GRAPHER_SERVER_ADDRESS.
const EnvPrefix = "GRAPHER"

// ConfigFileEnv names the optional YAML file layered under the environment.
const ConfigFileEnv = "GRAPHER_CONFIG"

// Config holds all application configuration
type Config struct {
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Grapher   GrapherConfig   `mapstructure:"grapher"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Features  FeatureFlags    `mapstructure:"features"`

	// File is the config file the values were read from, empty when none
	File string `mapstructure:"-"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// AuthConfig configures bearer token verification. An empty secret leaves
// every request anonymous.
type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience"`
}

// GrapherConfig selects and configures the graph backends.
type GrapherConfig struct {
	// Backends is the preference order of the enabled backends
	Backends      []string         `mapstructure:"backends" validate:"min=1,dive,oneof=mrtg sflow smokeping dummy"`
	DefaultPeriod string           `mapstructure:"default_period" validate:"omitempty,oneof=day week month year"`
	Mrtg          BackendConfig    `mapstructure:"mrtg"`
	Sflow         BackendConfig    `mapstructure:"sflow"`
	Smokeping     BackendConfig    `mapstructure:"smokeping"`
	Breaker       BreakerConfig    `mapstructure:"breaker"`
	Trunks        []entities.Trunk `mapstructure:"trunks"`
}

// BackendConfig locates one backend. Location is a base URL, or for mrtg
// also a local directory.
type BackendConfig struct {
	Location string        `mapstructure:"location"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// BreakerConfig tunes the per backend circuit breakers.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests" validate:"gt=0"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	FailureThreshold float64       `mapstructure:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

// CacheConfig sets the freshness of rendered graphs per period.
type CacheConfig struct {
	Day   time.Duration `mapstructure:"day" validate:"gt=0"`
	Week  time.Duration `mapstructure:"week" validate:"gt=0"`
	Month time.Duration `mapstructure:"month" validate:"gt=0"`
	Year  time.Duration `mapstructure:"year" validate:"gt=0"`
}

// InventoryConfig points at the exchange snapshot.
type InventoryConfig struct {
	Path  string `mapstructure:"path" validate:"required"`
	Watch bool   `mapstructure:"watch"`
}

// SessionConfig configures the sticky filter sessions.
type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name" validate:"required"`
	TTL        time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// RateLimitConfig bounds requests per client.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"gte=0"`
	Burst             int `mapstructure:"burst" validate:"gte=0"`
}

// AWSConfig names the AWS resources used for the shared cache.
type AWSConfig struct {
	Region       string `mapstructure:"region"`
	RenderTable  string `mapstructure:"render_table"`
	EventBusName string `mapstructure:"event_bus_name"`
}

// TracingConfig configures the OTLP exporter.
type TracingConfig struct {
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// FeatureFlags toggle optional subsystems.
type FeatureFlags struct {
	EnableMetrics        bool `mapstructure:"enable_metrics"`
	EnableTracing        bool `mapstructure:"enable_tracing"`
	EnableCORS           bool `mapstructure:"enable_cors"`
	EnableSharedCache    bool `mapstructure:"enable_shared_cache"`
	PublishInvalidations bool `mapstructure:"publish_invalidations"`
	StrictParameters     bool `mapstructure:"strict_parameters"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 25*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "ixp-grapher")
	v.SetDefault("auth.jwt_audience", "")

	v.SetDefault("grapher.backends", []string{"mrtg", "sflow", "smokeping"})
	v.SetDefault("grapher.default_period", "day")
	v.SetDefault("grapher.mrtg.location", "http://localhost:8081/mrtg")
	v.SetDefault("grapher.mrtg.timeout", 10*time.Second)
	v.SetDefault("grapher.sflow.location", "http://localhost:8082/grapher")
	v.SetDefault("grapher.sflow.timeout", 10*time.Second)
	v.SetDefault("grapher.smokeping.location", "http://localhost:8083/smokeping.cgi")
	v.SetDefault("grapher.smokeping.timeout", 10*time.Second)
	v.SetDefault("grapher.breaker.max_requests", 5)
	v.SetDefault("grapher.breaker.interval", 30*time.Second)
	v.SetDefault("grapher.breaker.timeout", 60*time.Second)
	v.SetDefault("grapher.breaker.failure_threshold", 0.8)
	v.SetDefault("grapher.breaker.min_requests", 5)

	v.SetDefault("cache.day", 5*time.Minute)
	v.SetDefault("cache.week", 30*time.Minute)
	v.SetDefault("cache.month", 2*time.Hour)
	v.SetDefault("cache.year", 12*time.Hour)

	v.SetDefault("inventory.path", "config/exchange.yaml")
	v.SetDefault("inventory.watch", false)

	v.SetDefault("session.cookie_name", "grapher_session")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("rate_limit.requests_per_minute", 600)
	v.SetDefault("rate_limit.burst", 60)

	v.SetDefault("aws.region", "us-west-2")
	v.SetDefault("aws.render_table", "ixp-grapher-renders")
	v.SetDefault("aws.event_bus_name", "ixp-grapher-events")

	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 0.1)

	v.SetDefault("features.enable_metrics", true)
	v.SetDefault("features.enable_tracing", false)
	v.SetDefault("features.enable_cors", true)
	v.SetDefault("features.enable_shared_cache", false)
	v.SetDefault("features.publish_invalidations", false)
	v.SetDefault("features.strict_parameters", false)
}

// LoadConfig reads defaults, the optional file named by GRAPHER_CONFIG and
// GRAPHER_* environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile is LoadConfig with an explicit config file; path may be empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

var validate = validator.New()

// Validate checks struct tags plus the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("invalid configuration: auth.jwt_secret is required in production")
	}
	if c.Features.EnableSharedCache && c.AWS.RenderTable == "" {
		return fmt.Errorf("invalid configuration: aws.render_table is required when the shared cache is enabled")
	}
	if c.Features.PublishInvalidations && c.AWS.EventBusName == "" {
		return fmt.Errorf("invalid configuration: aws.event_bus_name is required to publish invalidations")
	}

	seen := make(map[string]bool, len(c.Grapher.Backends))
	for _, b := range c.Grapher.Backends {
		if seen[b] {
			return fmt.Errorf("invalid configuration: backend %q listed twice", b)
		}
		seen[b] = true
		if b != "dummy" && c.Grapher.Backend(b).Location == "" {
			return fmt.Errorf("invalid configuration: grapher.%s.location is required", b)
		}
	}

	trunks := make(map[string]bool, len(c.Grapher.Trunks))
	for _, t := range c.Grapher.Trunks {
		if t.Name == "" {
			return fmt.Errorf("invalid configuration: trunk without a name")
		}
		if trunks[t.Name] {
			return fmt.Errorf("invalid configuration: trunk %q listed twice", t.Name)
		}
		trunks[t.Name] = true
	}
	return nil
}

// Backend returns the settings of a named backend.
func (g GrapherConfig) Backend(name string) BackendConfig {
	switch name {
	case "mrtg":
		return g.Mrtg
	case "sflow":
		return g.Sflow
	case "smokeping":
		return g.Smokeping
	default:
		return BackendConfig{Timeout: 5 * time.Second}
	}
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
