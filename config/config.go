package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Image    ImageConfig    `yaml:"image"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Quota    QuotaConfig    `yaml:"quota"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql
	DSN  string `yaml:"dsn"`
}

type LLMConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type ImageConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
}

// PipelineConfig carries the generation tunables. Tests shrink these instead
// of patching constants inside the pipeline.
type PipelineConfig struct {
	BatchSize       int           `yaml:"batch_size"`
	BatchCooldown   time.Duration `yaml:"batch_cooldown"`
	ImageMaxRetries int           `yaml:"image_max_retries"`
	ImageRetryDelay time.Duration `yaml:"image_retry_delay"`
	PlanWeeks       int           `yaml:"plan_weeks"`
	Timezone        string        `yaml:"timezone"`
	Workers         int           `yaml:"workers"`
	StuckTimeout    time.Duration `yaml:"stuck_timeout"`
}

type QuotaConfig struct {
	DailyCreateLimit     int `yaml:"daily_create_limit"`
	DailyRegenerateLimit int `yaml:"daily_regenerate_limit"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

func loadConfig() *Config {
	config := Default()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		yaml.Unmarshal(data, config)
	}

	applyEnv(config)
	return config
}

// Default returns the built-in configuration. Exported so tests can start
// from a known baseline without going through the singleton.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/app.db",
		},
		LLM: LLMConfig{
			APIURL: "https://api.openai.com/v1",
			Model:  "gpt-4o",
		},
		Image: ImageConfig{
			APIURL: "https://api.openai.com/v1",
			Model:  "gpt-image-1",
		},
		Storage: StorageConfig{
			Region: "auto",
			Bucket: "contentpilot",
		},
		Pipeline: PipelineConfig{
			BatchSize:       4,
			BatchCooldown:   1500 * time.Millisecond,
			ImageMaxRetries: 1,
			ImageRetryDelay: time.Second,
			PlanWeeks:       4,
			Timezone:        "Asia/Seoul",
			Workers:         2,
			StuckTimeout:    10 * time.Minute,
		},
		Quota: QuotaConfig{
			DailyCreateLimit:     3,
			DailyRegenerateLimit: 2,
		},
	}
}

// applyEnv overlays environment variables on top of file values.
func applyEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
		if config.Image.APIKey == "" {
			config.Image.APIKey = apiKey
		}
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.APIURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL_NAME"); model != "" {
		config.LLM.Model = model
	}
	if apiKey := os.Getenv("IMAGE_API_KEY"); apiKey != "" {
		config.Image.APIKey = apiKey
	}
	if model := os.Getenv("IMAGE_MODEL_NAME"); model != "" {
		config.Image.Model = model
	}

	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}

	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		config.Storage.Endpoint = endpoint
	}
	if accessKey := os.Getenv("S3_ACCESS_KEY"); accessKey != "" {
		config.Storage.AccessKey = accessKey
	}
	if secretKey := os.Getenv("S3_SECRET_KEY"); secretKey != "" {
		config.Storage.SecretKey = secretKey
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		config.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		config.Server.Mode = mode
	}

	if workers := os.Getenv("PIPELINE_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			config.Pipeline.Workers = n
		}
	}
}
