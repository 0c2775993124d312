// Package config loads the service configuration from YAML with
// ${ENV_VAR} expansion.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	HTTP struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"http"`

	Scheduler struct {
		PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
		ToleranceSeconds    int     `yaml:"tolerance_seconds"`
		DispatchTimeoutSecs int     `yaml:"dispatch_timeout_seconds"`
		MaxRetries          int     `yaml:"max_retries"`
		RatePerSecond       float64 `yaml:"rate_per_second"`
		Burst               int     `yaml:"burst"`
	} `yaml:"scheduler"`

	Audit struct {
		HistoryRetentionDays int    `yaml:"history_retention_days"`
		ExportOnStart        bool   `yaml:"export_on_start"`
		PlantName            string `yaml:"plant_name"`
	} `yaml:"audit"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
	} `yaml:"sheets"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	// Managers receive the monthly audit report, by Telegram chat id.
	Managers []int64 `yaml:"managers"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/vacation_manager.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) SchedulerPollInterval() time.Duration {
	if c.Scheduler.PollIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Scheduler.PollIntervalSeconds) * time.Second
}

func (c *Config) SchedulerTolerance() time.Duration {
	if c.Scheduler.ToleranceSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Scheduler.ToleranceSeconds) * time.Second
}

func (c *Config) DispatchTimeout() time.Duration {
	if c.Scheduler.DispatchTimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Scheduler.DispatchTimeoutSecs) * time.Second
}

func (c *Config) RedisCacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
