// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults used by the legacy deployment.
const (
	DefaultRecordsBaseURL  = "https://api.airtable.com/v0"
	DefaultBrokerURL       = "redis://localhost:6379/0"
	DefaultSuccessURL      = "https://example.com/success"
	DefaultPortalLoginURL  = "https://billing.stripe.com/p/login/fZe5o106saRx6ZO3cc"
	DefaultTimezone        = "Australia/Brisbane"
	DefaultSchedulerPeriod = 30000
	DefaultTaskType        = "contacts.sync"
)

var (
	defaultPaymentMethodTypes = []string{"card", "afterpay_clearpay", "link", "zip"}
	defaultShippingCountries  = []string{"AU", "US", "CA", "GB", "NZ"}
)

// envOverrides maps config fields to the environment keys checked when the field is still empty.
// The second key of each entry is the legacy environment name.
var envOverrides = []struct {
	keys   []string
	target func(*Config) *string
}{
	{[]string{"RECORDS_API_KEY", "API_KEY"}, func(c *Config) *string { return &c.Records.APIKey }},
	{[]string{"RECORDS_BASE_ID", "BASE_ID"}, func(c *Config) *string { return &c.Records.BaseID }},
	{[]string{"RECORDS_TABLE_ID", "CONTACTS_TABLE_ID"}, func(c *Config) *string { return &c.Records.TableID }},
	{[]string{"PAYMENTS_API_KEY", "STRIPE_API_KEY"}, func(c *Config) *string { return &c.Payments.APIKey }},
	{[]string{"PAYMENTS_PRODUCT_ID", "STRIPE_PRODUCT_ID"}, func(c *Config) *string { return &c.Payments.ProductID }},
	{[]string{"BROKER_URL", "CELERY_BROKER_URL"}, func(c *Config) *string { return &c.Broker.URL }},
	{[]string{"CAMUNDA_BROKER_ADDRESS", "ZEEBE_ADDRESS"}, func(c *Config) *string { return &c.Camunda.BrokerAddress }},
}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml and applies the environment.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return build(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Zero is a meaningful value for these, so they are defaulted here rather than in applyDefaults.
	v.SetDefault("sync.timezone", DefaultTimezone)
	v.SetDefault("sync.open_hour", 7)
	v.SetDefault("sync.close_hour", 19)
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found near the working directory or the project root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values. Unset variables expand to "",
// which leaves the field to overrideEmptyConfig and applyDefaults.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets and endpoints that neither the files nor viper's env binding set.
func overrideEmptyConfig(cfg *Config) {
	for _, o := range envOverrides {
		field := o.target(cfg)
		if *field != "" {
			continue
		}
		for _, key := range o.keys {
			if val := os.Getenv(key); val != "" {
				*field = val
				break
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "contact-sync"
	}

	if cfg.Records.BaseURL == "" {
		cfg.Records.BaseURL = DefaultRecordsBaseURL
	}
	if cfg.Records.Timeout == 0 {
		cfg.Records.Timeout = 30000
	}

	if cfg.Payments.Currency == "" {
		cfg.Payments.Currency = "aud"
	}
	cfg.Payments.Currency = strings.ToLower(cfg.Payments.Currency)
	if cfg.Payments.SuccessURL == "" {
		cfg.Payments.SuccessURL = DefaultSuccessURL
	}
	if cfg.Payments.PortalLoginURL == "" {
		cfg.Payments.PortalLoginURL = DefaultPortalLoginURL
	}
	if len(cfg.Payments.PaymentMethodTypes) == 0 {
		cfg.Payments.PaymentMethodTypes = append([]string(nil), defaultPaymentMethodTypes...)
	}
	if len(cfg.Payments.ShippingCountries) == 0 {
		cfg.Payments.ShippingCountries = append([]string(nil), defaultShippingCountries...)
	}
	if cfg.Payments.Timeout == 0 {
		cfg.Payments.Timeout = 30000
	}

	if cfg.Sync.CustomerMemoTTL == 0 {
		cfg.Sync.CustomerMemoTTL = int((24 * time.Hour).Milliseconds())
	}

	if cfg.Scheduler.Mode == "" {
		cfg.Scheduler.Mode = "ticker"
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = DefaultSchedulerPeriod
	}
	if cfg.Scheduler.LeaseTTL == 0 {
		cfg.Scheduler.LeaseTTL = 5 * cfg.Scheduler.Interval
	}

	if cfg.Broker.URL == "" {
		cfg.Broker.URL = DefaultBrokerURL
	}

	if cfg.Camunda.TaskType == "" {
		cfg.Camunda.TaskType = DefaultTaskType
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 1
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 120000
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if _, err := time.LoadLocation(cfg.Sync.Timezone); err != nil {
		return fmt.Errorf("sync.timezone: %w", err)
	}

	if cfg.Scheduler.Mode == "zeebe" && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when scheduler.mode is zeebe")
	}

	return nil
}
