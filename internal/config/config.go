package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	"Luanshi/server/internal/bond"
	"Luanshi/server/internal/effects"
	"Luanshi/server/internal/intent"
	"Luanshi/server/internal/world"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	AI       AIConfig       `yaml:"ai"`
	Engine   EngineConfig   `yaml:"engine"`
	History  HistoryConfig  `yaml:"history"`
	Memory   MemoryConfig   `yaml:"memory"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TurnTimeout  time.Duration `yaml:"turn_timeout"`
}

type DatabaseConfig struct {
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Qdrant QdrantConfig `yaml:"qdrant"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type MySQLConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	TTL      time.Duration `yaml:"ttl"`
}

type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	VectorSize int    `yaml:"vector_size"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
)

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type AIConfig struct {
	GLM5      GLM5Config      `yaml:"glm5"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

type GLM5Config struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type EmbeddingConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// EngineConfig carries the game tuning. Zero fields fall back to each
// package's defaults.
type EngineConfig struct {
	World   world.Config   `yaml:"world"`
	Bond    bond.Config    `yaml:"bond"`
	Intent  intent.Config  `yaml:"intent"`
	Effects effects.Config `yaml:"effects"`
}

type HistoryConfig struct {
	Retention int `yaml:"retention"`
}

type MemoryConfig struct {
	Enabled     bool `yaml:"enabled"`
	RecallLimit int  `yaml:"recall_limit"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envOverrides are applied on top of the YAML file.
type envOverrides struct {
	APIKey        string `env:"LUANSHI_API_KEY"`
	QdrantAPIKey  string `env:"QDRANT_API_KEY"`
	StorageDriver string `env:"LUANSHI_STORAGE_DRIVER"`
	Port          int    `env:"LUANSHI_PORT"`
	MySQLPassword string `env:"LUANSHI_MYSQL_PASSWORD"`
	RedisPassword string `env:"LUANSHI_REDIS_PASSWORD"`
	SQLitePath    string `env:"LUANSHI_SQLITE_PATH"`
	LogLevel      string `env:"LUANSHI_LOG_LEVEL"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and applies environment overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.apply(ov)
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) apply(ov envOverrides) {
	if ov.APIKey != "" {
		c.AI.GLM5.APIKey = ov.APIKey
		c.AI.Embedding.APIKey = ov.APIKey
	}
	if ov.QdrantAPIKey != "" {
		c.Database.Qdrant.APIKey = ov.QdrantAPIKey
	}
	if ov.StorageDriver != "" {
		c.Storage.Driver = ov.StorageDriver
	}
	if ov.Port != 0 {
		c.Server.Port = ov.Port
	}
	if ov.MySQLPassword != "" {
		c.Database.MySQL.Password = ov.MySQLPassword
	}
	if ov.RedisPassword != "" {
		c.Database.Redis.Password = ov.RedisPassword
	}
	if ov.SQLitePath != "" {
		c.Database.SQLite.Path = ov.SQLitePath
	}
	if ov.LogLevel != "" {
		c.Logging.Level = ov.LogLevel
	}
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 3 * time.Minute
	}
	if c.Server.TurnTimeout == 0 {
		c.Server.TurnTimeout = 150 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "luanshi.db"
	}
	if c.Database.Qdrant.Collection == "" {
		c.Database.Qdrant.Collection = "luanshi_memories"
	}
	if c.Database.Qdrant.VectorSize == 0 {
		c.Database.Qdrant.VectorSize = 1024
	}
	if c.Engine.World.Seed == 0 {
		c.Engine.World.Seed = world.DefaultConfig().Seed
	}
	if c.History.Retention > 0 && c.Engine.Effects.HistoryRetention == 0 {
		c.Engine.Effects.HistoryRetention = c.History.Retention
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverMySQL, DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
