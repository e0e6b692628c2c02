package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is where the feedback API listens when nothing else is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// BaseURLEnv overrides APIConfig.BaseURL when set.
const BaseURLEnv = "FEEDBACK_API_URL"

// APIConfig locates the remote feedback API.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// UploadConfig holds ingest defaults.
type UploadConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// QueryConfig holds per-question defaults.
type QueryConfig struct {
	TopK            int   `yaml:"top_k"`
	GenerateSummary *bool `yaml:"generate_summary,omitempty"`
}

// SummaryEnabled returns whether summaries are requested; defaults to true when unset.
func (q QueryConfig) SummaryEnabled() bool {
	if q.GenerateSummary != nil {
		return *q.GenerateSummary
	}
	return true
}

// LogConfig configures the rotated log file.
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// EmbeddingsConfig points the local backend at an OpenAI-compatible
// embeddings API. The key is read from the environment variable named by
// APIKeyEnv, never from the file.
type EmbeddingsConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// BackendConfig configures the local reference backend started by `feedback serve`.
type BackendConfig struct {
	Addr                string           `yaml:"addr"`
	MaxSummarySentences int              `yaml:"max_summary_sentences"`
	Embedder            string           `yaml:"embedder"` // "tfidf" or "openai"
	MaxTerms            int              `yaml:"max_terms"`
	OpenAI              EmbeddingsConfig `yaml:"openai"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	API     APIConfig     `yaml:"api"`
	Upload  UploadConfig  `yaml:"upload"`
	Query   QueryConfig   `yaml:"query"`
	Log     LogConfig     `yaml:"log"`
	Backend BackendConfig `yaml:"backend"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/feedback/config.yaml.
// If neither exists, it writes defaults to ~/.config/feedback/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "feedback", "config.yaml"), nil
}

func defaultLogPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "feedback", "feedback.log")
	}
	return filepath.Join(os.TempDir(), "feedback.log")
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		API:    APIConfig{BaseURL: DefaultBaseURL},
		Upload: UploadConfig{BatchSize: 32},
		Query:  QueryConfig{TopK: 5},
		Log:    LogConfig{File: defaultLogPath(), Level: "info", MaxSizeMB: 10, MaxBackups: 3},
		Backend: BackendConfig{
			Addr:                "127.0.0.1:8000",
			MaxSummarySentences: 3,
			Embedder:            "tfidf",
			OpenAI:              EmbeddingsConfig{APIKeyEnv: "OPENAI_API_KEY"},
		},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.Upload.BatchSize <= 0 {
		cfg.Upload.BatchSize = 32
	}
	if cfg.Query.TopK <= 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Log.File == "" {
		cfg.Log.File = defaultLogPath()
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Backend.Addr == "" {
		cfg.Backend.Addr = "127.0.0.1:8000"
	}
	if cfg.Backend.MaxSummarySentences <= 0 {
		cfg.Backend.MaxSummarySentences = 3
	}
	if cfg.Backend.Embedder == "" {
		cfg.Backend.Embedder = "tfidf"
	}
	if cfg.Backend.OpenAI.APIKeyEnv == "" {
		cfg.Backend.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
}

// applyEnv lets the environment (including a loaded .env file) point the
// client at a different API without editing the config file.
func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(BaseURLEnv)); v != "" {
		cfg.API.BaseURL = strings.TrimRight(v, "/")
	}
}
