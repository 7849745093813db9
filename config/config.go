// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, with dots replaced by
// underscores: LEPIDOPTERA_STORAGE_DRIVER sets storage.driver.
const EnvPrefix = "LEPIDOPTERA"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// Drivers lists the supported storage drivers.
var Drivers = []string{DriverMemory, DriverFile, DriverSQLite, DriverDynamoDB}

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("lepidoptera: invalid configuration")

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Replica ReplicaConfig `mapstructure:"replica"`
	Log     LogConfig     `mapstructure:"log"`
	AWS     AWSConfig     `mapstructure:"aws"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageConfig selects and configures the record backend.
type StorageConfig struct {
	Driver   string        `mapstructure:"driver"`
	Path     string        `mapstructure:"path"`  // file and sqlite
	Table    string        `mapstructure:"table"` // dynamodb
	CacheTTL time.Duration `mapstructure:"cachettl"`
}

// ReplicaConfig names the DynamoDB table the stream handler copies new
// records into.
type ReplicaConfig struct {
	Table  string `mapstructure:"table"`
	Region string `mapstructure:"region"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AWSConfig configures the AWS SDK. Endpoint overrides the DynamoDB endpoint,
// for DynamoDB Local.
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// setDefaults registers the default of every key, which also makes every key
// visible to AutomaticEnv during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdowntimeout", 10*time.Second)

	v.SetDefault("storage.driver", DriverFile)
	v.SetDefault("storage.path", "db.json")
	v.SetDefault("storage.table", "lepidoptera")
	v.SetDefault("storage.cachettl", 10*time.Minute)

	v.SetDefault("replica.table", "")
	v.SetDefault("replica.region", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.endpoint", "")
}

// Load reads path (when non-empty) and the environment over the defaults and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is honoured for compatibility with hosting platforms that set it.
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdowntimeout must not be negative"))
	}

	if !slices.Contains(Drivers, c.Storage.Driver) {
		errs = append(errs, fmt.Errorf("storage.driver %q must be one of %s", c.Storage.Driver, strings.Join(Drivers, ", ")))
	}
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver))
		}
	case DriverDynamoDB:
		if c.Storage.Table == "" {
			errs = append(errs, errors.New("storage.table is required for the dynamodb driver"))
		}
	}
	if c.Replica.Table != "" && c.Replica.Table == c.Storage.Table && c.Replica.Region == "" {
		errs = append(errs, errors.New("replica.table must differ from storage.table in the same region"))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
