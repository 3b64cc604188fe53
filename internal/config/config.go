package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported LLM providers
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Supported blob storage drivers
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	LLM      LLMConfig
	Quiz     QuizConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimitMB  int
}

type LoggerConfig struct {
	Level string
	Env   string
}

type LLMConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

type QuizConfig struct {
	NumQuestions int
	MaxTextRunes int
	CacheTTL     time.Duration
	SessionTTL   time.Duration
}

type StorageConfig struct {
	Driver   string
	BasePath string
	S3       S3Config
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

var defaults = map[string]interface{}{
	"server.port":           8090,
	"server.read_timeout":   "30s",
	"server.write_timeout":  "180s",
	"server.body_limit_mb":  64,
	"logger.level":          "info",
	"logger.env":            "development",
	"llm.provider":          ProviderGroq,
	"llm.temperature":       0.2,
	"llm.timeout":           "120s",
	"quiz.num_questions":    10,
	"quiz.max_text_runes":   0,
	"quiz.cache_ttl":        "24h",
	"quiz.session_ttl":      "6h",
	"storage.driver":        StorageFS,
	"storage.base_path":     "uploaded_pdfs",
	"storage.s3.region":     "auto",
	"redis.db":              0,
	"database.driver":       "",
}

// Environment variables that don't follow the SECTION_KEY naming.
var envAliases = map[string][]string{
	"llm.api_key":                  {"LLM_API_KEY", "GROQ_API_KEY"},
	"storage.s3.access_key_id":     {"S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"},
	"storage.s3.secret_access_key": {"S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"},
	"logger.env":                   {"LOGGER_ENV", "ENV"},
}

// LoadConfig reads .env (if present), config.yaml (if present) and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envAliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			BodyLimitMB:  v.GetInt("server.body_limit_mb"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Env:   v.GetString("logger.env"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			APIKey:      v.GetString("llm.api_key"),
			Model:       v.GetString("llm.model"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			Timeout:     v.GetDuration("llm.timeout"),
		},
		Quiz: QuizConfig{
			NumQuestions: v.GetInt("quiz.num_questions"),
			MaxTextRunes: v.GetInt("quiz.max_text_runes"),
			CacheTTL:     v.GetDuration("quiz.cache_ttl"),
			SessionTTL:   v.GetDuration("quiz.session_ttl"),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(v.GetString("storage.driver")),
			BasePath: v.GetString("storage.base_path"),
			S3: S3Config{
				Bucket:          v.GetString("storage.s3.bucket"),
				Region:          v.GetString("storage.s3.region"),
				Endpoint:        v.GetString("storage.s3.endpoint"),
				AccessKeyID:     v.GetString("storage.s3.access_key_id"),
				SecretAccessKey: v.GetString("storage.s3.secret_access_key"),
			},
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database.driver")),
			DSN:    v.GetString("database.dsn"),
		},
	}

	return cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderGemini:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%s is not set. Please set it in the .env file", c.APIKeyEnvName())
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLM.Provider)
	}

	switch c.Storage.Driver {
	case StorageFS:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when storage.driver is %q", StorageS3)
		}
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.Storage.Driver)
	}

	if c.Quiz.NumQuestions <= 0 {
		return fmt.Errorf("quiz.num_questions must be positive, got %d", c.Quiz.NumQuestions)
	}
	return nil
}

// APIKeyEnvName is the variable users are told to set for the configured provider.
func (c *Config) APIKeyEnvName() string {
	if c.LLM.Provider == ProviderGroq {
		return "GROQ_API_KEY"
	}
	return "LLM_API_KEY"
}
