// engine/internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port            int    `yaml:"port" json:"port"`
		DataDir         string `yaml:"data_dir" json:"data_dir"`
		ExtensionSecret string `yaml:"extension_secret" json:"extension_secret"`
		RubricPath      string `yaml:"rubric_path" json:"rubric_path"`
	} `yaml:"app" json:"app"`

	Fetch struct {
		TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		UserAgent      string  `yaml:"user_agent" json:"user_agent"`
		MaxChars       int     `yaml:"max_chars" json:"max_chars"`
		ReqPerSec      float64 `yaml:"req_per_sec" json:"req_per_sec"`
		Burst          int     `yaml:"burst" json:"burst"`
	} `yaml:"fetch" json:"fetch"`

	LLM struct {
		Provider       string `yaml:"provider" json:"provider"` // gemini | openai
		Model          string `yaml:"model" json:"model"`
		APIKey         string `yaml:"api_key" json:"api_key"`
		BaseURL        string `yaml:"base_url" json:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	} `yaml:"llm" json:"llm"`

	Email struct {
		Enabled          bool   `yaml:"enabled" json:"enabled"`
		IMAPHost         string `yaml:"imap_host" json:"imap_host"`
		IMAPPort         int    `yaml:"imap_port" json:"imap_port"`
		Username         string `yaml:"username" json:"username"`
		Mailbox          string `yaml:"mailbox" json:"mailbox"`
		DaysBack         int    `yaml:"days_back" json:"days_back"`
		ScanLimit        int    `yaml:"scan_limit" json:"scan_limit"`
		ConnectSeconds   int    `yaml:"connect_seconds" json:"connect_seconds"`
		ParseConcurrency int    `yaml:"parse_concurrency" json:"parse_concurrency"`
		AnalyzeOnImport  bool   `yaml:"analyze_on_import" json:"analyze_on_import"`
	} `yaml:"email" json:"email"`

	Schedule struct {
		ImportCron string `yaml:"import_cron" json:"import_cron"`
	} `yaml:"schedule" json:"schedule"`

	Store struct {
		Driver string `yaml:"driver" json:"driver"` // sqlite | postgres
		DSN    string `yaml:"dsn" json:"dsn"`
	} `yaml:"store" json:"store"`

	Cache struct {
		RedisURL string `yaml:"redis_url" json:"redis_url"`
		TTLHours int    `yaml:"ttl_hours" json:"ttl_hours"`
	} `yaml:"cache" json:"cache"`

	SMTP struct {
		Host     string `yaml:"host" json:"host"`
		Port     int    `yaml:"port" json:"port"`
		Username string `yaml:"username" json:"username"`
		Password string `yaml:"password" json:"password"`
		From     string `yaml:"from" json:"from"`
	} `yaml:"smtp" json:"smtp"`
}

// Default returns the built-in configuration used when no file exists.
func Default() Config {
	var cfg Config
	cfg.App.Port = 38471
	cfg.App.DataDir = "data"

	cfg.Fetch.TimeoutSeconds = 10
	cfg.Fetch.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	cfg.Fetch.MaxChars = 4000
	cfg.Fetch.ReqPerSec = 1
	cfg.Fetch.Burst = 2

	cfg.LLM.Provider = "gemini"
	cfg.LLM.Model = "gemini-1.5-flash"
	cfg.LLM.TimeoutSeconds = 10

	cfg.Email.IMAPHost = "imap.gmail.com"
	cfg.Email.IMAPPort = 993
	cfg.Email.Mailbox = "INBOX"
	cfg.Email.DaysBack = 30
	cfg.Email.ScanLimit = 50
	cfg.Email.ConnectSeconds = 10
	cfg.Email.ParseConcurrency = 4
	cfg.Email.AnalyzeOnImport = true

	cfg.Schedule.ImportCron = "@every 30m"

	cfg.Store.Driver = "sqlite"

	cfg.Cache.TTLHours = 24

	cfg.SMTP.Port = 587
	return cfg
}

// Load reads a YAML config on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// ApplyEnv fills secrets that are usually kept out of the YAML file.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("EXTENSION_SECRET"); v != "" {
		cfg.App.ExtensionSecret = v
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.Driver = "postgres"
		cfg.Store.DSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}
}

const redactedMask = "********"

// Redacted returns a copy safe to hand to API clients.
func (c Config) Redacted() Config {
	out := c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redactedMask
	}
	out.App.ExtensionSecret = mask(out.App.ExtensionSecret)
	out.LLM.APIKey = mask(out.LLM.APIKey)
	out.SMTP.Password = mask(out.SMTP.Password)
	out.Store.DSN = mask(out.Store.DSN)
	out.Cache.RedisURL = mask(out.Cache.RedisURL)
	return out
}

// Unredact puts back secrets a client echoed as the mask from Redacted.
func (c Config) Unredact(cur Config) Config {
	keep := func(dst *string, src string) {
		if *dst == redactedMask {
			*dst = src
		}
	}
	keep(&c.App.ExtensionSecret, cur.App.ExtensionSecret)
	keep(&c.LLM.APIKey, cur.LLM.APIKey)
	keep(&c.SMTP.Password, cur.SMTP.Password)
	keep(&c.Store.DSN, cur.Store.DSN)
	keep(&c.Cache.RedisURL, cur.Cache.RedisURL)
	return c
}
