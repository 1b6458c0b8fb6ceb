package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

var ErrMissingKey = errors.New("COSMOS_DB_KEY is required for the sql api")

// Config holds application configuration
type Config struct {
	Database DatabaseConfig
	Workload WorkloadConfig
	Server   ServerConfig
	LogLevel string
}

type DatabaseConfig struct {
	API              string
	Endpoint         string
	Key              string
	ConnectionString string
	Name             string
	Container        string
	InsecureTLS      bool
	Timeout          time.Duration
}

type WorkloadConfig struct {
	Count       int
	ExtraFields int
	Seed        int64
}

type ServerConfig struct {
	Host string
	Port string
}

// Keys and the environment variables they are read from.
var envKeys = map[string]string{
	"api":               "COSMOS_API",
	"endpoint":          "COSMOS_ENDPOINT",
	"key":               "COSMOS_DB_KEY",
	"connection-string": "COSMOS_CONNECTION_STRING",
	"database":          "COSMOS_DATABASE",
	"container":         "COSMOS_CONTAINER",
	"insecure":          "COSMOS_INSECURE_TLS",
	"op-timeout":        "COSMOS_OP_TIMEOUT",
	"count":             "WORKLOAD_COUNT",
	"extra-fields":      "WORKLOAD_EXTRA_FIELDS",
	"seed":              "WORKLOAD_SEED",
	"host":              "SERVER_HOST",
	"port":              "PORT",
	"log-level":         "LOG_LEVEL",
}

// SetDefaults registers env bindings and defaults on v.
func SetDefaults(v *viper.Viper) {
	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}
	v.SetDefault("api", database.APISQL)
	v.SetDefault("endpoint", "https://localhost:8081/")
	v.SetDefault("database", "SampleDatabase")
	v.SetDefault("container", "SampleContainer")
	v.SetDefault("insecure", true)
	v.SetDefault("op-timeout", 30*time.Second)
	v.SetDefault("count", 10000)
	v.SetDefault("extra-fields", 10)
	v.SetDefault("seed", 0)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "3000")
	v.SetDefault("log-level", "info")
}

// LoadConfig reads and validates the configuration.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	cfg, err := Read(v, configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads configuration from a .env file, an optional config file and
// the environment. Flags bound to v take precedence.
func Read(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file found or error loading it: %v", err)
	}
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			API:              strings.ToLower(v.GetString("api")),
			Endpoint:         v.GetString("endpoint"),
			Key:              v.GetString("key"),
			ConnectionString: v.GetString("connection-string"),
			Name:             v.GetString("database"),
			Container:        v.GetString("container"),
			InsecureTLS:      v.GetBool("insecure"),
			Timeout:          v.GetDuration("op-timeout"),
		},
		Workload: WorkloadConfig{
			Count:       v.GetInt("count"),
			ExtraFields: v.GetInt("extra-fields"),
			Seed:        v.GetInt64("seed"),
		},
		Server: ServerConfig{
			Host: v.GetString("host"),
			Port: v.GetString("port"),
		},
		LogLevel: v.GetString("log-level"),
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.API {
	case database.APISQL:
		if c.Database.Key == "" {
			return ErrMissingKey
		}
	case database.APIMongo:
		if c.Database.ConnectionString == "" {
			return fmt.Errorf("COSMOS_CONNECTION_STRING is required for the mongo api")
		}
	case database.APIMemory:
	default:
		return fmt.Errorf("invalid api: %s. Use 'sql', 'mongo' or 'memory'", c.Database.API)
	}
	if c.Workload.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", c.Workload.Count)
	}
	if c.Workload.ExtraFields < 0 {
		return fmt.Errorf("extra-fields must not be negative, got %d", c.Workload.ExtraFields)
	}
	return nil
}

// Options converts the database section for database.Open.
func (c DatabaseConfig) Options() database.Options {
	return database.Options{
		API:              c.API,
		Endpoint:         c.Endpoint,
		Key:              c.Key,
		ConnectionString: c.ConnectionString,
		Database:         c.Name,
		Container:        c.Container,
		InsecureTLS:      c.InsecureTLS,
		Timeout:          c.Timeout,
	}
}

// MaskedKey shows the first and last five characters of the key.
func (c DatabaseConfig) MaskedKey() string {
	if len(c.Key) <= 10 {
		return strings.Repeat("*", len(c.Key))
	}
	return c.Key[:5] + "*********" + c.Key[len(c.Key)-5:]
}
