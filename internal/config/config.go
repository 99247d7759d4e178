package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Logging       LoggingConfig
	AI            AIConfig
	Azure         AzureConfig
	Storage       StorageConfig
	Security      SecurityConfig
	Transcription TranscriptionConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// AIConfig holds generative model configuration
type AIConfig struct {
	Provider string // gemini or azure-openai
	BaseURL  string
	APIKeys  []string
	Timeout  time.Duration
	Timezone string
	Models   ModelsConfig
	Thinking ThinkingConfig
}

// ModelsConfig selects the model per capability
type ModelsConfig struct {
	ImageAnalysis string
	Pharmacy      string
	Chat          string
	Therapy       string
	Triage        string
	Transcription string
}

// ThinkingConfig holds optional thinking budgets per capability; zero leaves the model default
type ThinkingConfig struct {
	ImageAnalysis int32
	Triage        int32
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	OpenAI  OpenAIConfig
	Speech  SpeechConfig
	Storage BlobConfig
}

// OpenAIConfig holds Azure OpenAI configuration
type OpenAIConfig struct {
	Endpoint   string
	APIVersion string
	Deployment string
}

// SpeechConfig holds Azure Speech Service configuration
type SpeechConfig struct {
	SubscriptionKey string
	Region          string
	Language        string
}

// BlobConfig holds Azure Blob Storage configuration for captured images
type BlobConfig struct {
	AccountName    string
	AccountKey     string
	ImageContainer string
}

// Enabled reports whether blob storage credentials are present
func (b BlobConfig) Enabled() bool {
	return b.AccountName != "" && b.AccountKey != ""
}

// StorageConfig selects and configures the local state store
type StorageConfig struct {
	Driver   string // sqlite, postgres, redis or memory
	SQLite   SQLiteConfig
	Postgres PostgresConfig
	Redis    RedisConfig
}

// SQLiteConfig holds the on-device database location
type SQLiteConfig struct {
	Path string
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// SecurityConfig holds at-rest encryption configuration
type SecurityConfig struct {
	EncryptionKey string // 32 bytes, base64 encoded
}

// TranscriptionConfig selects the speech-to-text engine
type TranscriptionConfig struct {
	Engine string // model or azure-speech
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Optional config file
	if path := os.Getenv("MEDASSIST_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read from environment variables
	v.AutomaticEnv()

	// Bind specific environment variables
	bindEnvVars(v)

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.AI.APIKeys = envAPIKeys(v)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.maxuploadbytes", 20<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// AI defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", 45*time.Second)
	v.SetDefault("ai.timezone", "Asia/Kolkata")
	v.SetDefault("ai.models.imageanalysis", "gemini-2.5-flash")
	v.SetDefault("ai.models.pharmacy", "gemini-2.5-flash")
	v.SetDefault("ai.models.chat", "gemini-2.5-flash")
	v.SetDefault("ai.models.therapy", "gemini-2.5-flash")
	v.SetDefault("ai.models.triage", "gemini-2.5-flash")
	v.SetDefault("ai.models.transcription", "gemini-2.5-flash")
	v.SetDefault("ai.thinking.imageanalysis", 0)
	v.SetDefault("ai.thinking.triage", 0)

	// Azure defaults
	v.SetDefault("azure.openai.apiversion", "2024-08-01-preview")
	v.SetDefault("azure.speech.language", "en-IN")
	v.SetDefault("azure.storage.imagecontainer", "medical-images")

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "medassist.db")
	v.SetDefault("storage.postgres.maxconns", 10)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.keyprefix", "medassist:")

	// Transcription defaults
	v.SetDefault("transcription.engine", "model")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// AI
	v.BindEnv("ai.provider", "AI_PROVIDER")
	v.BindEnv("ai.baseurl", "AI_BASE_URL")
	v.BindEnv("ai.timeout", "AI_TIMEOUT")
	v.BindEnv("ai.timezone", "AI_TIMEZONE")
	v.BindEnv("ai.models.imageanalysis", "AI_MODEL_IMAGE_ANALYSIS")
	v.BindEnv("ai.models.chat", "AI_MODEL_CHAT")

	// Azure OpenAI
	v.BindEnv("azure.openai.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure.openai.deployment", "AZURE_OPENAI_DEPLOYMENT")

	// Azure Speech
	v.BindEnv("azure.speech.subscriptionkey", "AZURE_SPEECH_KEY")
	v.BindEnv("azure.speech.region", "AZURE_SPEECH_REGION")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")

	// Storage
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.sqlite.path", "SQLITE_PATH")
	v.BindEnv("storage.postgres.url", "DATABASE_URL")
	v.BindEnv("storage.redis.addr", "REDIS_ADDR")
	v.BindEnv("storage.redis.password", "REDIS_PASSWORD")

	// Security
	v.BindEnv("security.encryptionkey", "ENCRYPTION_KEY")

	// Transcription
	v.BindEnv("transcription.engine", "TRANSCRIPTION_ENGINE")

	// API key fallback, read by envAPIKeys
	v.BindEnv("ai.apikeys", "GEMINI_API_KEYS")
	v.BindEnv("ai.apikey", "GEMINI_API_KEY", "API_KEY")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// envAPIKeys collects the fallback credential list. The list comes first,
// followed by the single-key variables. ai.apikeys may be a YAML sequence
// or a comma separated string.
func envAPIKeys(v *viper.Viper) []string {
	var keys []string
	for _, item := range v.GetStringSlice("ai.apikeys") {
		for _, k := range strings.Split(item, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	if k := strings.TrimSpace(v.GetString("ai.apikey")); k != "" {
		keys = append(keys, k)
	}
	return keys
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "gemini":
	case "azure-openai":
		if c.Azure.OpenAI.Endpoint == "" {
			return fmt.Errorf("azure.openai.endpoint is required for the azure-openai provider")
		}
		if c.Azure.OpenAI.Deployment == "" {
			return fmt.Errorf("azure.openai.deployment is required for the azure-openai provider")
		}
	default:
		return fmt.Errorf("unsupported ai.provider: %s", c.AI.Provider)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive")
	}

	if _, err := time.LoadLocation(c.AI.Timezone); err != nil {
		return fmt.Errorf("invalid ai.timezone %q: %w", c.AI.Timezone, err)
	}

	switch c.Storage.Driver {
	case "sqlite", "memory", "redis":
	case "postgres":
		if c.Storage.Postgres.URL == "" {
			return fmt.Errorf("storage.postgres.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported storage.driver: %s", c.Storage.Driver)
	}

	switch c.Transcription.Engine {
	case "model":
	case "azure-speech":
		if c.Azure.Speech.SubscriptionKey == "" || c.Azure.Speech.Region == "" {
			return fmt.Errorf("azure speech credentials are required for the azure-speech transcription engine")
		}
	default:
		return fmt.Errorf("unsupported transcription.engine: %s", c.Transcription.Engine)
	}

	return nil
}
