package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for assetsync.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	API          APIConfig          `yaml:"api"`
	Database     DatabaseConfig     `yaml:"database"`
	FixtureStore FixtureStoreConfig `yaml:"fixture_store"`
	Registry     RegistryConfig     `yaml:"registry"`
	Tracking     TrackingConfig     `yaml:"tracking"`
	GIS          GISConfig          `yaml:"gis"`
	Zones        ZonesConfig        `yaml:"zones"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServiceConfig identifies this deployment.
type ServiceConfig struct {
	Name string `yaml:"name"`
	// EnvFile is an optional dotenv file loaded before environment overrides.
	EnvFile string `yaml:"env_file"`
}

// APIConfig contains HTTP intake server settings.
type APIConfig struct {
	Host         string           `yaml:"host"`
	Port         int              `yaml:"port"`
	Timeouts     APITimeoutConfig `yaml:"timeouts"`
	MaxBodyBytes int64            `yaml:"max_body_bytes"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DatabaseConfig contains the local state SQLite settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// FixtureStoreConfig points at the relational store holding gateway-routed fixtures.
type FixtureStoreConfig struct {
	// Driver is "pgx" for PostgreSQL or "sqlite3".
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Table     string `yaml:"table"`
	GatewayID int    `yaml:"gateway_id"`
	Timeout   int    `yaml:"timeout"`
}

// RegistryConfig contains device-management registry credentials and scope.
type RegistryConfig struct {
	BaseURL      string `yaml:"base_url"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	ClientID     string `yaml:"client_id"`
	Site         string `yaml:"site"`
	GroupID      int    `yaml:"group_id"`
	GatewayID    int    `yaml:"gateway_id"`
	DeviceTypeID int    `yaml:"device_type_id"`
	// SwitchGroups maps a switch type reported by the field crew to a relay group.
	SwitchGroups map[string]int `yaml:"switch_groups"`
	Timeout      int            `yaml:"timeout"`
}

// TrackingConfig contains tracking board API settings.
type TrackingConfig struct {
	APIURL  string `yaml:"api_url"`
	FileURL string `yaml:"file_url"`
	APIKey  string `yaml:"api_key"`
	BoardID int64  `yaml:"board_id"`
	GroupID string `yaml:"group_id"`
	Timeout int    `yaml:"timeout"`
}

// GISConfig contains image source settings.
type GISConfig struct {
	PicturesURL string `yaml:"pictures_url"`
	APIKey      string `yaml:"api_key"`
	LayerID     int64  `yaml:"layer_id"`
	Timeout     int    `yaml:"timeout"`
}

// ZonesConfig points at the zone polygon file.
type ZonesConfig struct {
	File         string `yaml:"file"`
	DefaultIdent string `yaml:"default_ident"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// TracingConfig controls OTLP trace export. An empty endpoint disables export.
type TracingConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Dotenv file, if present (never overrides variables already set)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: ASSETSYNC_SECTION_KEY
// For example: ASSETSYNC_REGISTRY_PASSWORD, ASSETSYNC_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := loadEnvFile(cfg.Service.EnvFile); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadEnvFile loads a dotenv file. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:    "assetsync",
			EnvFile: ".env",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
			MaxBodyBytes: 1 << 20,
		},
		Database: DatabaseConfig{
			Path:        "./data/assetsync.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		FixtureStore: FixtureStoreConfig{
			Driver:    "pgx",
			Table:     "tbl_fixtures",
			GatewayID: 14,
			Timeout:   10,
		},
		Registry: RegistryConfig{
			ClientID:     "ngAuthApp",
			GroupID:      259,
			GatewayID:    14,
			DeviceTypeID: 1,
			SwitchGroups: map[string]int{},
			Timeout:      15,
		},
		Tracking: TrackingConfig{
			APIURL:  "https://api.monday.com/v2",
			FileURL: "https://api.monday.com/v2/file",
			Timeout: 15,
		},
		GIS: GISConfig{
			PicturesURL: "https://editor.giscloud.com/rest/1",
			Timeout:     15,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "assetsync",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ASSETSYNC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("ASSETSYNC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("ASSETSYNC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Local state
	if v := os.Getenv("ASSETSYNC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Fixture store
	if v := os.Getenv("ASSETSYNC_FIXTURE_STORE_DRIVER"); v != "" {
		cfg.FixtureStore.Driver = v
	}
	if v := os.Getenv("ASSETSYNC_FIXTURE_STORE_DSN"); v != "" {
		cfg.FixtureStore.DSN = v
	}

	// Registry
	if v := os.Getenv("ASSETSYNC_REGISTRY_URL"); v != "" {
		cfg.Registry.BaseURL = v
	}
	if v := os.Getenv("ASSETSYNC_REGISTRY_USERNAME"); v != "" {
		cfg.Registry.Username = v
	}
	if v := os.Getenv("ASSETSYNC_REGISTRY_PASSWORD"); v != "" {
		cfg.Registry.Password = v
	}

	// Tracking board
	if v := os.Getenv("ASSETSYNC_TRACKING_API_KEY"); v != "" {
		cfg.Tracking.APIKey = v
	}

	// GIS
	if v := os.Getenv("ASSETSYNC_GIS_API_KEY"); v != "" {
		cfg.GIS.APIKey = v
	}

	// MQTT
	if v := os.Getenv("ASSETSYNC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ASSETSYNC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ASSETSYNC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("ASSETSYNC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Tracing
	if v := os.Getenv("ASSETSYNC_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
}

// Validate checks the configuration for missing or inconsistent values.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	switch c.FixtureStore.Driver {
	case "pgx", "sqlite3":
	default:
		errs = append(errs, "fixture_store.driver must be pgx or sqlite3")
	}
	if c.FixtureStore.DSN == "" {
		errs = append(errs, "fixture_store.dsn is required (set ASSETSYNC_FIXTURE_STORE_DSN)")
	}
	if c.FixtureStore.Table == "" {
		errs = append(errs, "fixture_store.table is required")
	}

	if c.Registry.BaseURL == "" {
		errs = append(errs, "registry.base_url is required")
	}
	if c.Registry.Username == "" || c.Registry.Password == "" {
		errs = append(errs, "registry credentials are required (set ASSETSYNC_REGISTRY_USERNAME and ASSETSYNC_REGISTRY_PASSWORD)")
	}
	if c.Registry.Site == "" {
		errs = append(errs, "registry.site is required")
	}
	if c.Registry.GroupID <= 0 {
		errs = append(errs, "registry.group_id must be positive")
	}

	if c.Tracking.APIURL == "" {
		errs = append(errs, "tracking.api_url is required")
	}
	if c.Tracking.APIKey == "" {
		errs = append(errs, "tracking.api_key is required (set ASSETSYNC_TRACKING_API_KEY)")
	}
	if c.Tracking.BoardID <= 0 {
		errs = append(errs, "tracking.board_id must be positive")
	}

	if c.GIS.PicturesURL == "" {
		errs = append(errs, "gis.pictures_url is required")
	}

	if c.Zones.File == "" {
		errs = append(errs, "zones.file is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// seconds converts a configured timeout, falling back when unset.
func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

// RegistryTimeout returns the per-call registry timeout.
func (c *Config) RegistryTimeout() time.Duration { return seconds(c.Registry.Timeout, 15) }

// TrackingTimeout returns the per-call tracking board timeout.
func (c *Config) TrackingTimeout() time.Duration { return seconds(c.Tracking.Timeout, 15) }

// GISTimeout returns the per-call image source timeout.
func (c *Config) GISTimeout() time.Duration { return seconds(c.GIS.Timeout, 15) }

// FixtureTimeout returns the per-statement fixture store timeout.
func (c *Config) FixtureTimeout() time.Duration { return seconds(c.FixtureStore.Timeout, 10) }
