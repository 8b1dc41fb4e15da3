package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Horizon  HorizonConfig  `mapstructure:"horizon"`
	Explorer ExplorerConfig `mapstructure:"explorer"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Neo4J    Neo4JConfig    `mapstructure:"neo4j"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPPort int    `mapstructure:"http_port"`
}

// HorizonConfig represents the Horizon API client configuration
type HorizonConfig struct {
	URL string `mapstructure:"url"`
	// RequestsPerSecond caps outgoing API calls across all concurrent fetches
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	PageSize          int           `mapstructure:"page_size"`
}

// ExplorerConfig represents network build defaults and limits
type ExplorerConfig struct {
	FetchConcurrency  int           `mapstructure:"fetch_concurrency"`
	BuildTimeout      time.Duration `mapstructure:"build_timeout"`
	DefaultMaxDepth   int           `mapstructure:"default_max_depth"`
	DefaultMaxWallets int           `mapstructure:"default_max_wallets"`
	DefaultPageBudget string        `mapstructure:"default_page_budget"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `mapstructure:"url"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	Enabled           bool          `mapstructure:"enabled"`
}

// Neo4JConfig represents Neo4J configuration
type Neo4JConfig struct {
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	ConnectTimeout               time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
	Enabled                      bool          `mapstructure:"enabled"`
}

// Load loads configuration from environment variables and files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/stellar-wallet-network-explorer")

	// Environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	// Map environment variables to nested config keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Default values
	setDefaults()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.http_port", 8080)

	// Horizon defaults
	viper.SetDefault("horizon.url", "https://horizon.stellar.org")
	viper.SetDefault("horizon.requests_per_second", 5)
	viper.SetDefault("horizon.timeout", "30s")
	viper.SetDefault("horizon.max_retries", 3)
	viper.SetDefault("horizon.retry_delay", "1s")
	viper.SetDefault("horizon.page_size", 200)

	// Explorer defaults
	viper.SetDefault("explorer.fetch_concurrency", 4)
	viper.SetDefault("explorer.build_timeout", "10m")
	viper.SetDefault("explorer.default_max_depth", 2)
	viper.SetDefault("explorer.default_max_wallets", 50)
	viper.SetDefault("explorer.default_page_budget", "normal")

	// NATS defaults
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.subject_prefix", "wallet-network")
	viper.SetDefault("nats.connect_timeout", "10s")
	viper.SetDefault("nats.reconnect_attempts", 5)
	viper.SetDefault("nats.reconnect_delay", "2s")
	viper.SetDefault("nats.enabled", false)

	// Neo4J defaults
	viper.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.connect_timeout", "10s")
	viper.SetDefault("neo4j.max_connection_pool_size", 50)
	viper.SetDefault("neo4j.connection_acquisition_timeout", "60s")
	viper.SetDefault("neo4j.enabled", false)

	// Bind env for external endpoints
	viper.BindEnv("horizon.url", "HORIZON_URL")
	viper.BindEnv("nats.url", "NATS_URL")
}
