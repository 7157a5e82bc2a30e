package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is not set. A missing default file is not an error.
const DefaultPath = "config.yaml"

type Config struct {
	Env string `yaml:"env"`

	Server struct {
		Port                int      `yaml:"port"`
		ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds"`
		WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds"`
		IdleTimeoutSeconds  int      `yaml:"idleTimeoutSeconds"`
		CORSOrigins         []string `yaml:"corsOrigins"`
		RateLimit           struct {
			Capacity        int `yaml:"capacity"`
			RefillPerMinute int `yaml:"refillPerMinute"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Database struct {
		// Driver is mysql, postgres or sqlite.
		Driver      string `yaml:"driver"`
		DSN         string `yaml:"dsn"`
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		User        string `yaml:"user"`
		Password    string `yaml:"password"`
		Name        string `yaml:"name"`
		SSLMode     string `yaml:"sslMode"`
		AutoMigrate bool   `yaml:"autoMigrate"`
	} `yaml:"database"`

	LLM struct {
		// Provider is gemini or openai.
		Provider       string `yaml:"provider"`
		Model          string `yaml:"model"`
		APIKey         string `yaml:"apiKey"`
		BaseURL        string `yaml:"baseURL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
		// MaxRetries nil means 2; 0 disables retry.
		MaxRetries      *int `yaml:"maxRetries"`
		RetryBaseMillis int  `yaml:"retryBaseMillis"`
	} `yaml:"llm"`

	Analysis struct {
		HistoryWindow       int `yaml:"historyWindow"`
		TopIssues           int `yaml:"topIssues"`
		ConsumerTextLimit   int `yaml:"consumerTextLimit"`
		EnterpriseTextLimit int `yaml:"enterpriseTextLimit"`
		ConsumerRoundUnit   int `yaml:"consumerRoundUnit"`
		EnterpriseRoundUnit int `yaml:"enterpriseRoundUnit"`
		WriteTimeoutSeconds int `yaml:"writeTimeoutSeconds"`
	} `yaml:"analysis"`

	Voice struct {
		APIKey         string `yaml:"apiKey"`
		VoiceID        string `yaml:"voiceId"`
		BaseURL        string `yaml:"baseURL"`
		MaxChars       int    `yaml:"maxChars"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
		Archive        bool   `yaml:"archive"`
	} `yaml:"voice"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Load reads .env (when present), the YAML file at path, then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Env, "APP_ENV")
	setInt(&c.Server.Port, "PORT")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			setString(&c.LLM.APIKey, "OPENAI_API_KEY")
		default:
			setString(&c.LLM.APIKey, "GEMINI_API_KEY")
		}
	}
	setString(&c.Voice.APIKey, "ELEVENLABS_API_KEY")
	setString(&c.Voice.VoiceID, "ELEVENLABS_VOICE_ID")
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "production"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	// LLM calls plus retries must fit in one response
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 120
	}
	if c.Server.IdleTimeoutSeconds == 0 {
		c.Server.IdleTimeoutSeconds = 60
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000", "https://rd-flg.tech"}
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 10
	}
	if c.Server.RateLimit.RefillPerMinute == 0 {
		c.Server.RateLimit.RefillPerMinute = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "data/rdflg.db"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 45
	}
	if c.LLM.MaxRetries == nil {
		retries := 2
		c.LLM.MaxRetries = &retries
	}
	if c.LLM.RetryBaseMillis == 0 {
		c.LLM.RetryBaseMillis = 500
	}
	if c.Analysis.HistoryWindow == 0 {
		c.Analysis.HistoryWindow = 50
	}
	if c.Analysis.TopIssues == 0 {
		c.Analysis.TopIssues = 10
	}
	if c.Analysis.ConsumerTextLimit == 0 {
		c.Analysis.ConsumerTextLimit = 15000
	}
	if c.Analysis.EnterpriseTextLimit == 0 {
		c.Analysis.EnterpriseTextLimit = 20000
	}
	if c.Analysis.ConsumerRoundUnit == 0 {
		c.Analysis.ConsumerRoundUnit = 10
	}
	if c.Analysis.EnterpriseRoundUnit == 0 {
		c.Analysis.EnterpriseRoundUnit = 5
	}
	if c.Analysis.WriteTimeoutSeconds == 0 {
		c.Analysis.WriteTimeoutSeconds = 10
	}
	if c.Voice.VoiceID == "" {
		c.Voice.VoiceID = "21m00Tcm4TlvDq8ikWAM"
	}
	if c.Voice.MaxChars == 0 {
		c.Voice.MaxChars = 5000
	}
	if c.Voice.TimeoutSeconds == 0 {
		c.Voice.TimeoutSeconds = 60
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver: unsupported %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("llm.provider: unsupported %q", c.LLM.Provider)
	}
	for name, unit := range map[string]int{
		"analysis.consumerRoundUnit":   c.Analysis.ConsumerRoundUnit,
		"analysis.enterpriseRoundUnit": c.Analysis.EnterpriseRoundUnit,
	} {
		if unit < 1 || unit > 100 {
			return fmt.Errorf("%s: must be within 1..100, got %d", name, unit)
		}
	}
	if *c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.maxRetries: must not be negative")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DSN returns the explicit dsn or one built for the configured driver.
func (c *Config) DSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	switch c.Database.Driver {
	case "mysql":
		return c.MySQLDSN()
	case "postgres":
		return c.PostgresDSN()
	}
	return ""
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.IdleTimeoutSeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) Retries() int {
	if c.LLM.MaxRetries == nil {
		return 0
	}
	return *c.LLM.MaxRetries
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.LLM.RetryBaseMillis) * time.Millisecond
}

func (c *Config) VoiceTimeout() time.Duration {
	return time.Duration(c.Voice.TimeoutSeconds) * time.Second
}

func (c *Config) AnalysisWriteTimeout() time.Duration {
	return time.Duration(c.Analysis.WriteTimeoutSeconds) * time.Second
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
