package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig   `toml:"logging"`
	Schedule    ScheduleConfig  `toml:"schedule"`
	Cadence     CadenceConfig   `toml:"cadence"`
	News        NewsConfig      `toml:"news"`
	Warehouse   WarehouseConfig `toml:"warehouse"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	SMTP        SMTPConfig      `toml:"smtp"`
	IMAP        IMAPConfig      `toml:"imap"`
	Report      ReportConfig    `toml:"report"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ScheduleConfig controls daemon mode. The cron expression fires the run;
// the cadence gate inside the run decides whether anything is sent.
type ScheduleConfig struct {
	Cron string `toml:"cron"` // Cron expression for -serve mode
}

// CadenceConfig selects the backing store for the reporting cadence.
type CadenceConfig struct {
	Backend string `toml:"backend" validate:"oneof=file badger"` // "file" or "badger"
	Path    string `toml:"path"`                                 // State file path or badger directory
}

// NewsConfig contains the article search parameters.
type NewsConfig struct {
	APIKey   string   `toml:"api_key"`
	Keywords []string `toml:"keywords"` // Joined with OR into one query
	Domains  []string `toml:"domains"`  // Source domain allow-list
	PageSize int      `toml:"page_size" validate:"min=1,max=100"`
	Language string   `toml:"language"`
}

// WarehouseConfig contains the BigQuery analytics warehouse settings.
type WarehouseConfig struct {
	ProjectID       string `toml:"project_id"`
	Dataset         string `toml:"dataset"` // GA4 export dataset, e.g. "analytics_123456789"
	CredentialsFile string `toml:"credentials_file"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude"
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from" validate:"omitempty,email"`
	FromName string `toml:"from_name"`
	UseTLS   bool   `toml:"use_tls"`
}

type IMAPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	UseTLS   bool   `toml:"use_tls"`
}

// ReportConfig describes the report recipient and the inbound command channel.
type ReportConfig struct {
	Recipient      string   `toml:"recipient" validate:"omitempty,email"`
	Subject        string   `toml:"subject"`
	AllowedSenders []string `toml:"allowed_senders"` // Only these may change the cadence
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Schedule: ScheduleConfig{
			Cron: "0 7 * * *", // 07:00 every day; the cadence gate filters from there
		},
		Cadence: CadenceConfig{
			Backend: "file",
			Path:    "./data/cadence",
		},
		News: NewsConfig{
			Keywords: []string{
				"mixed heritage", "mixed race", "biracial", "dual heritage",
				"multiethnic", "racial identity", "cultural identity", "interracial family",
			},
			Domains: []string{
				"bbc.co.uk", "theguardian.com", "independent.co.uk",
				"nytimes.com", "cnn.com", "npr.org",
				"euronews.com", "dw.com", "lemonde.fr", "spiegel.de",
			},
			PageSize: 10,
			Language: "en",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		SMTP: SMTPConfig{
			Port:     587,
			FromName: "Herald",
			UseTLS:   true,
		},
		IMAP: IMAPConfig{
			Port:   993,
			UseTLS: true,
		},
		Report: ReportConfig{
			Subject: "Herald: Media & Analytics Brief",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files, later files
// overriding earlier files, then applies environment variable overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct-level constraints on the merged configuration
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("HERALD_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Logging
	if level := os.Getenv("HERALD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("HERALD_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Schedule
	if cronExpr := os.Getenv("HERALD_SCHEDULE_CRON"); cronExpr != "" {
		config.Schedule.Cron = cronExpr
	}

	// Cadence store
	if backend := os.Getenv("HERALD_CADENCE_BACKEND"); backend != "" {
		config.Cadence.Backend = backend
	}
	if path := os.Getenv("HERALD_CADENCE_PATH"); path != "" {
		config.Cadence.Path = path
	}

	// News search
	if apiKey := os.Getenv("HERALD_NEWS_API_KEY"); apiKey != "" {
		config.News.APIKey = apiKey
	} else if apiKey := os.Getenv("NEWS_API_KEY"); apiKey != "" {
		config.News.APIKey = apiKey
	}
	if pageSize := os.Getenv("HERALD_NEWS_PAGE_SIZE"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil {
			config.News.PageSize = ps
		}
	}

	// Warehouse
	if projectID := os.Getenv("HERALD_WAREHOUSE_PROJECT_ID"); projectID != "" {
		config.Warehouse.ProjectID = projectID
	}
	if dataset := os.Getenv("HERALD_WAREHOUSE_DATASET"); dataset != "" {
		config.Warehouse.Dataset = dataset
	}
	if creds := os.Getenv("HERALD_WAREHOUSE_CREDENTIALS_FILE"); creds != "" {
		config.Warehouse.CredentialsFile = creds
	} else if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		config.Warehouse.CredentialsFile = creds
	}

	// Gemini
	if apiKey := os.Getenv("HERALD_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("HERALD_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	// Claude
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("HERALD_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // HERALD_ prefix takes priority
	}
	if model := os.Getenv("HERALD_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// LLM provider
	if provider := os.Getenv("HERALD_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// SMTP
	if host := os.Getenv("HERALD_SMTP_HOST"); host != "" {
		config.SMTP.Host = host
	}
	if port := os.Getenv("HERALD_SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.SMTP.Port = p
		}
	}
	if username := os.Getenv("HERALD_SMTP_USERNAME"); username != "" {
		config.SMTP.Username = username
	}
	if password := os.Getenv("HERALD_SMTP_PASSWORD"); password != "" {
		config.SMTP.Password = password
	}
	if from := os.Getenv("HERALD_SMTP_FROM"); from != "" {
		config.SMTP.From = from
	}

	// IMAP
	if host := os.Getenv("HERALD_IMAP_HOST"); host != "" {
		config.IMAP.Host = host
	}
	if port := os.Getenv("HERALD_IMAP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.IMAP.Port = p
		}
	}
	if username := os.Getenv("HERALD_IMAP_USERNAME"); username != "" {
		config.IMAP.Username = username
	}
	if password := os.Getenv("HERALD_IMAP_PASSWORD"); password != "" {
		config.IMAP.Password = password
	}

	// Report
	if recipient := os.Getenv("HERALD_REPORT_RECIPIENT"); recipient != "" {
		config.Report.Recipient = recipient
	}
	if subject := os.Getenv("HERALD_REPORT_SUBJECT"); subject != "" {
		config.Report.Subject = subject
	}
	if senders := os.Getenv("HERALD_REPORT_ALLOWED_SENDERS"); senders != "" {
		allowed := []string{}
		for _, s := range strings.Split(senders, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				allowed = append(allowed, trimmed)
			}
		}
		if len(allowed) > 0 {
			config.Report.AllowedSenders = allowed
		}
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables -> config fallback -> error
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"HERALD_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"HERALD_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"news_api_key":      {"HERALD_NEWS_API_KEY", "NEWS_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
