// Package config loads the application configuration from a JSON file with
// FRIDAY_* environment overrides. Credentials are never hardcoded; they come
// from the file or the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant service
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	Providers  []ProviderConfig `mapstructure:"providers"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Vector     VectorConfig     `mapstructure:"vector"`
	Drive      DriveConfig      `mapstructure:"drive"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.JWTSecret) == "" {
		return fmt.Errorf("server.jwt_secret required")
	}
	return nil
}

// ProviderConfig describes one chat-completion provider in the fallback
// chain. Lower priority is tried first.
type ProviderConfig struct {
	Name        string  `mapstructure:"name"`
	URL         string  `mapstructure:"url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Shape       string  `mapstructure:"shape"` // openai or cohere
	Enabled     bool    `mapstructure:"enabled"`
	Priority    int     `mapstructure:"priority"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

func (p ProviderConfig) Validate() error {
	if !p.Enabled {
		return nil
	}
	if strings.TrimSpace(p.URL) == "" {
		return fmt.Errorf("providers[%s].url required", p.Name)
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return fmt.Errorf("providers[%s].api_key required", p.Name)
	}
	switch p.Shape {
	case "", "openai", "cohere":
	default:
		return fmt.Errorf("providers[%s].shape must be openai or cohere", p.Name)
	}
	return nil
}

// EmbeddingsConfig configures the embeddings provider and local fallback
type EmbeddingsConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       int           `mapstructure:"retries"`
	LocalFallback bool          `mapstructure:"local_fallback"`
}

// VectorConfig configures the vector-store proxy
type VectorConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Namespace string        `mapstructure:"namespace"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func (v VectorConfig) Validate() error {
	if strings.TrimSpace(v.BaseURL) == "" {
		return fmt.Errorf("vector.base_url required")
	}
	return nil
}

// DriveConfig configures Google Drive access. Exactly one of the credential
// mechanisms is used: service-account file, delegated OAuth refresh token, or
// an API key for public folders.
type DriveConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	ClientID        string `mapstructure:"client_id"`
	ClientSecret    string `mapstructure:"client_secret"`
	RefreshToken    string `mapstructure:"refresh_token"`
	APIKey          string `mapstructure:"api_key"`
}

// Configured reports whether any Drive credential mechanism is set.
func (d DriveConfig) Configured() bool {
	return d.CredentialsFile != "" || d.RefreshToken != "" || d.APIKey != ""
}

// StorageConfig groups the storage backends
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN renders the connection string.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Host) != ""
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("embeddings.model", "text-embedding-3-small")
	viper.SetDefault("embeddings.local_fallback", true)
	viper.SetDefault("embeddings.retries", 2)
	viper.SetDefault("vector.namespace", "files")
	viper.SetDefault("storage.redis.port", "6379")
	viper.SetDefault("storage.redis.timeout", "5s")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("FRIDAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match (FRIDAY_*)

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Server.Validate(); err != nil {
		panic(err)
	}
	if err := config.Vector.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	for _, p := range config.Providers {
		if err := p.Validate(); err != nil {
			panic(err)
		}
	}
	return &config
}
