package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Data    DataConfig
	Store   StoreConfig
	SQLite  SQLiteConfig
	LLM     LLMConfig
	Search  SearchConfig
	Detect  DetectConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

// DataConfig points at the uploaded input files. The defaults match the
// filenames the synthetic dataset generator produces.
type DataConfig struct {
	Dir         string
	SalesFile   string
	ContextFile string
	BacklogFile string
}

type StoreConfig struct {
	Path string
}

type SQLiteConfig struct {
	Path string
}

type LLMConfig struct {
	APIKey         string
	AnalystModel   string
	ReasoningModel string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
}

type SearchConfig struct {
	Enabled    bool
	SerpAPIKey string
	MaxResults int
	TimeoutSec int
	CacheTTL   int
}

type DetectConfig struct {
	MaxAttempts    int
	TopFindings    int
	EvidenceRows   int
	ExecTimeoutSec int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/nexusflow-signals")

	viper.SetEnvPrefix("SIGNALS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 600)
	viper.SetDefault("server.bodyLimit", 52428800)

	viper.SetDefault("data.dir", "./data")
	viper.SetDefault("data.salesFile", "nexusflow_sales_2025_full.csv")
	viper.SetDefault("data.contextFile", "internal_context_dump.txt")
	viper.SetDefault("data.backlogFile", "transformation_backlog.json")

	viper.SetDefault("store.path", "./data/signals_history.json")
	viper.SetDefault("sqlite.path", "./data/audit_runs.db")

	viper.SetDefault("llm.apiKey", "")
	viper.SetDefault("llm.analystModel", "gpt-4o-mini")
	viper.SetDefault("llm.reasoningModel", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.maxTokens", 2000)
	viper.SetDefault("llm.timeoutSec", 60)

	viper.SetDefault("search.enabled", true)
	viper.SetDefault("search.serpAPIKey", "")
	viper.SetDefault("search.maxResults", 3)
	viper.SetDefault("search.timeoutSec", 10)
	viper.SetDefault("search.cacheTTL", 3600)

	viper.SetDefault("detect.maxAttempts", 3)
	viper.SetDefault("detect.topFindings", 10)
	viper.SetDefault("detect.evidenceRows", 10)
	viper.SetDefault("detect.execTimeoutSec", 30)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
