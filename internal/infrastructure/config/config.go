// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback, optionally from a .env file)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
//	monarchToken := cfg.GetAPIKey(cfg.Monarch.APIKey, "MONARCH_TOKEN")
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied to unset fields.
const (
	DefaultDatabasePath    = "amazon_tagger.db"
	DefaultBackupPath      = "monarch_backups"
	DefaultMaxDays         = 5
	DefaultMaxCombinations = 20
	DefaultAPIPort         = 8085
	DateLayout             = "2006-01-02"
)

// DefaultAmazonDomains are the storefronts whose "{domain}: " prefix marks a
// transaction as already tagged.
var DefaultAmazonDomains = []string{
	"amazon.com", "amazon.cn", "amazon.in", "amazon.co.jp", "amazon.com.sg",
	"amazon.com.tr", "amazon.fr", "amazon.de", "amazon.it", "amazon.nl",
	"amazon.es", "amazon.co.uk", "amazon.ca", "amazon.com.mx",
	"amazon.com.au", "amazon.com.br",
}

// DefaultDescriptionFilter selects ledger transactions that look like
// Amazon purchases.
var DefaultDescriptionFilter = []string{"amazon", "amzn"}

// Config represents the entire application configuration
type Config struct {
	Amazon        AmazonConfig        `yaml:"amazon"`
	Monarch       MonarchConfig       `yaml:"monarch"`
	Tagger        TaggerConfig        `yaml:"tagger"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// AmazonConfig holds order-history export settings
type AmazonConfig struct {
	ExportPaths    []string `yaml:"export_paths"`
	PrefixOverride string   `yaml:"description_prefix_override"`
	Domains        []string `yaml:"domains"`
	StrictParsing  bool     `yaml:"strict_parsing"`
}

// MonarchConfig holds Monarch Money API configuration
type MonarchConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	AccountIDs []string      `yaml:"account_ids"`

	BackupPath string `yaml:"backup_path"`
	SaveBackup bool   `yaml:"save_json_backup"`
	UseBackup  int64  `yaml:"use_json_backup" validate:"gte=0"` // Snapshot epoch to replay

	// OFXFiles replaces the API with local statements (read-only).
	OFXFiles []string `yaml:"ofx_files"`
}

// TaggerConfig holds matching and tagging behaviour
type TaggerConfig struct {
	DryRun                   bool  `yaml:"dry_run"`
	VerboseItemize           bool  `yaml:"verbose_itemize"`
	NoItemize                bool  `yaml:"no_itemize"`
	SkipFreeShippingOverride *bool `yaml:"skip_free_shipping"` // Defaults to !verbose_itemize
	RetagChanged             bool  `yaml:"retag_changed"`
	PromptRetag              bool  `yaml:"prompt_retag"`
	NoTagCategories          bool  `yaml:"no_tag_categories"`
	DoNotPredictCategories   bool  `yaml:"do_not_predict_categories"`
	NumUpdates               int   `yaml:"num_updates" validate:"gte=0"`
	Force                    bool  `yaml:"force"` // Re-send updates already recorded as applied

	DescriptionFilter      []string `yaml:"description_filter"`
	IncludeUserDescription bool     `yaml:"include_user_description"`
	CategoriesFilter       []string `yaml:"categories_filter"`
	StartDate              string   `yaml:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate                string   `yaml:"end_date" validate:"omitempty,datetime=2006-01-02"`

	MaxDaysBetweenPaymentAndShipping int    `yaml:"max_days_between_payment_and_shipping" validate:"gte=0,lte=365"`
	MaxCombinations                  int    `yaml:"max_unmatched_charges_combinations" validate:"gte=2,lte=24"`
	Anchor                           string `yaml:"anchor" validate:"omitempty,oneof=latest_ship_date earliest_ship_date order_date latest earliest order"`
	RepairWorkers                    int    `yaml:"repair_workers" validate:"gte=0"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port" validate:"gte=0,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// ConfigurationError reports an invalid or inconsistent setting. It is
// surfaced before any processing starts.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Message)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${MONARCH_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only. A .env
// file in the working directory is read first when present.
func LoadFromEnv() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Amazon: AmazonConfig{
			ExportPaths:    getEnvList("AMAZON_EXPORT_PATHS"),
			PrefixOverride: os.Getenv("AMAZON_PREFIX_OVERRIDE"),
		},
		Monarch: MonarchConfig{
			APIKey:     os.Getenv("MONARCH_TOKEN"),
			BaseURL:    os.Getenv("MONARCH_BASE_URL"),
			MaxRetries: getEnvInt("MONARCH_MAX_RETRIES", 3),
			AccountIDs: getEnvList("MONARCH_ACCOUNT_IDS"),
			BackupPath: os.Getenv("MONARCH_BACKUP_PATH"),
		},
		Tagger: TaggerConfig{
			MaxDaysBetweenPaymentAndShipping: getEnvInt("TAGGER_MAX_DAYS", DefaultMaxDays),
			MaxCombinations:                  getEnvInt("TAGGER_MAX_COMBINATIONS", DefaultMaxCombinations),
			Anchor:                           os.Getenv("TAGGER_ANCHOR"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("TAGGER_DB_PATH", DefaultDatabasePath),
		},
		API: APIConfig{
			Port: getEnvInt("API_PORT", DefaultAPIPort),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) applyDefaults() {
	if len(c.Amazon.Domains) == 0 {
		c.Amazon.Domains = append([]string(nil), DefaultAmazonDomains...)
	}
	if c.Monarch.BackupPath == "" {
		c.Monarch.BackupPath = DefaultBackupPath
	}
	if c.Monarch.Timeout == 0 {
		c.Monarch.Timeout = 30 * time.Second
	}
	if len(c.Tagger.DescriptionFilter) == 0 {
		c.Tagger.DescriptionFilter = append([]string(nil), DefaultDescriptionFilter...)
	}
	if c.Tagger.MaxDaysBetweenPaymentAndShipping == 0 {
		c.Tagger.MaxDaysBetweenPaymentAndShipping = DefaultMaxDays
	}
	if c.Tagger.MaxCombinations == 0 {
		c.Tagger.MaxCombinations = DefaultMaxCombinations
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = DefaultDatabasePath
	}
	if c.API.Port == 0 {
		c.API.Port = DefaultAPIPort
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// Validate checks field constraints and cross-field consistency. Every
// failure is a *ConfigurationError.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigurationError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed %q constraint (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return &ConfigurationError{Field: "config", Message: err.Error()}
	}

	t := c.Tagger
	if (t.StartDate == "") != (t.EndDate == "") {
		return &ConfigurationError{Field: "tagger.start_date", Message: "a date range needs both start_date and end_date"}
	}
	if start, end, ok := c.DateRange(); ok && end.Before(start) {
		return &ConfigurationError{Field: "tagger.end_date", Message: "end_date is before start_date"}
	}
	if t.NoItemize && t.VerboseItemize {
		return &ConfigurationError{Field: "tagger.no_itemize", Message: "no_itemize conflicts with verbose_itemize"}
	}
	if t.RetagChanged && t.PromptRetag {
		return &ConfigurationError{Field: "tagger.prompt_retag", Message: "prompt_retag conflicts with retag_changed"}
	}
	if c.Monarch.UseBackup != 0 && c.Monarch.SaveBackup {
		return &ConfigurationError{Field: "monarch.use_json_backup", Message: "cannot save a backup while replaying one"}
	}
	if c.Monarch.UseBackup != 0 && len(c.Monarch.OFXFiles) > 0 {
		return &ConfigurationError{Field: "monarch.ofx_files", Message: "ofx_files conflicts with use_json_backup"}
	}
	return nil
}

// DateRange returns the configured transaction date range, if any.
func (c *Config) DateRange() (start, end time.Time, ok bool) {
	if c.Tagger.StartDate == "" || c.Tagger.EndDate == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err1 := time.Parse(DateLayout, c.Tagger.StartDate)
	end, err2 := time.Parse(DateLayout, c.Tagger.EndDate)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// SkipFreeShipping resolves the free-shipping setting: unless set
// explicitly it follows !verbose_itemize.
func (t TaggerConfig) SkipFreeShipping() bool {
	if t.SkipFreeShippingOverride != nil {
		return *t.SkipFreeShippingOverride
	}
	return !t.VerboseItemize
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList splits a comma-separated environment variable
func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Monarch.APIKey, "MONARCH_TOKEN")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	// First, try the config value
	if configValue != "" {
		return configValue
	}

	// Then try each environment variable in order
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
