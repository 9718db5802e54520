package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/samirrijal/geofields/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig         `mapstructure:"server"`
	Log       LogConfig            `mapstructure:"log"`
	Database  DatabaseConfig       `mapstructure:"database"`
	NATS      NATSConfig           `mapstructure:"nats"`
	Valkey    ValkeyConfig         `mapstructure:"valkey"`
	Telemetry TelemetryConfig      `mapstructure:"telemetry"`
	Cache     CacheConfig          `mapstructure:"cache"`
	Resources []domain.ResourceDef `mapstructure:"resources"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	return load(v)
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(service, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return load(v)
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "geofields")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "geofields")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("cache.ttl_seconds", 30)
}

func load(v *viper.Viper) (*Config, error) {
	// Environment variables: GEOFIELDS_DATABASE_HOST → database.host
	v.SetEnvPrefix("GEOFIELDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyResourceDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyResourceDefaults fills table, primary key and geometry format of
// resource definitions that leave them out.
func (c *Config) applyResourceDefaults() {
	for i := range c.Resources {
		r := &c.Resources[i]
		if r.Table == "" {
			r.Table = r.Name
		}
		if r.PrimaryKey == "" {
			r.PrimaryKey = "id"
		}
		if r.GeometryFormat == "" {
			r.GeometryFormat = domain.FormatGeoJSON
		}
		for j, m := range r.Methods {
			r.Methods[j] = strings.ToLower(m)
		}
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, "cache.ttl_seconds must not be negative")
	}

	seen := make(map[string]bool, len(c.Resources))
	for i, r := range c.Resources {
		switch {
		case r.Name == "":
			errs = append(errs, fmt.Sprintf("resources[%d].name is required", i))
		case seen[r.Name]:
			errs = append(errs, fmt.Sprintf("resources[%d]: duplicate name %q", i, r.Name))
		case !identRe.MatchString(r.Name):
			errs = append(errs, fmt.Sprintf("resources[%d]: invalid name %q", i, r.Name))
		}
		seen[r.Name] = true
		if !identRe.MatchString(r.Table) {
			errs = append(errs, fmt.Sprintf("resources[%d]: invalid table %q", i, r.Table))
		}
		if !r.GeometryFormat.Valid() {
			errs = append(errs, fmt.Sprintf("resources[%d]: geometry_format must be geojson or polyline, got %q", i, r.GeometryFormat))
		}
		for _, m := range r.Methods {
			if !validMethod(m) {
				errs = append(errs, fmt.Sprintf("resources[%d]: unknown method %q", i, m))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validMethod(m string) bool {
	for _, d := range domain.DefaultMethods {
		if m == d {
			return true
		}
	}
	return false
}
