// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf holds the settings loaded by Init.
var Conf Config

// Config mirrors configs/config.yaml.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Milvus        MilvusConfig        `mapstructure:"milvus"`
	VectorStore   VectorStoreConfig   `mapstructure:"vector_store"`
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Auth          AuthConfig          `mapstructure:"auth"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port          string `mapstructure:"port" validate:"required"`
	Mode          string `mapstructure:"mode" validate:"omitempty,oneof=debug release test"`
	MaxUploadMB   int64  `mapstructure:"max_upload_mb" validate:"gte=1"`
	SeedDirectory string `mapstructure:"seed_directory"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json console"`
	OutputPath string `mapstructure:"output_path"`
}

// DatabaseConfig selects the document record store. An empty driver keeps
// records in process memory.
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver" validate:"omitempty,oneof=mysql postgres"`
	DSN    string      `mapstructure:"dsn" validate:"required_with=Driver"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic" validate:"required_with=Brokers"`
	GroupID string `mapstructure:"group_id"`
}

type TikaConfig struct {
	ServerURL string `mapstructure:"server_url" validate:"omitempty,url"`
}

type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name" validate:"required_with=Endpoint"`
}

type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

type MilvusConfig struct {
	Address        string `mapstructure:"address"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	CollectionName string `mapstructure:"collection_name"`
}

// VectorStoreConfig picks the external index tried at startup.
// "memory" skips the attempt.
type VectorStoreConfig struct {
	Provider   string `mapstructure:"provider" validate:"oneof=memory elasticsearch milvus"`
	Dimensions int    `mapstructure:"dimensions" validate:"gt=0"`
	TopK       int    `mapstructure:"top_k" validate:"gt=0"`
}

type ChunkingConfig struct {
	Size    int `mapstructure:"size" validate:"gt=0"`
	Overlap int `mapstructure:"overlap" validate:"gte=0,ltfield=Size"`
}

// EmbeddingConfig selects the embedder. "hash" needs no network.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" validate:"oneof=hash openai"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

type LLMConfig struct {
	Provider   string              `mapstructure:"provider"`
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model" validate:"required"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	TopP        float64 `mapstructure:"top_p" validate:"gte=0,lte=1"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gte=0"`
}

type AgentConfig struct {
	Personality        string `mapstructure:"personality"`
	CustomInstructions string `mapstructure:"custom_instructions"`
	PersonalitiesFile  string `mapstructure:"personalities_file"`
}

type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	TokenExpireHours  int    `mapstructure:"token_expire_hours" validate:"gte=0"`
	AdminUsername     string `mapstructure:"admin_username"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

type RateLimitConfig struct {
	ChatPerSecond float64 `mapstructure:"chat_per_second" validate:"gte=0"`
	ChatBurst     int     `mapstructure:"chat_burst" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_upload_mb", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "document-rebuild")
	v.SetDefault("kafka.group_id", "docbrain-rebuild")
	v.SetDefault("elasticsearch.index_name", "documents")
	v.SetDefault("milvus.collection_name", "documents")
	v.SetDefault("vector_store.provider", "memory")
	v.SetDefault("vector_store.dimensions", 384)
	v.SetDefault("vector_store.top_k", 5)
	v.SetDefault("chunking.size", 1000)
	v.SetDefault("chunking.overlap", 200)
	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("tika.server_url", "")
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("elasticsearch.addresses", "")
	v.SetDefault("milvus.address", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.generation.temperature", 0.7)
	v.SetDefault("llm.generation.max_tokens", 1500)
	v.SetDefault("agent.personality", "government_professional")
	v.SetDefault("agent.custom_instructions", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_expire_hours", 24)
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("rate_limit.chat_per_second", 2)
	v.SetDefault("rate_limit.chat_burst", 5)
}

// Load reads the YAML file at configPath, applies environment overrides
// (LLM_API_KEY overrides llm.api_key and so on) and validates the result.
// A missing file is not an error; defaults and the environment still apply.
func Load(configPath string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// GROQ_API_KEY is the variable name older deployments export.
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "GROQ_API_KEY")

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Init loads the configuration into Conf and panics on failure.
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
