// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Records   RecordsConfig   `mapstructure:"records"`
	Payments  PaymentsConfig  `mapstructure:"payments"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Camunda   CamundaConfig   `mapstructure:"camunda"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// RecordsConfig points at the tabular records service holding contact rows.
type RecordsConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key" validate:"required"`
	BaseID  string `mapstructure:"base_id" validate:"required"`
	TableID string `mapstructure:"table_id" validate:"required"`
	Timeout int    `mapstructure:"timeout" validate:"gt=0"` // milliseconds
}

// PaymentsConfig holds the payments service credentials and the payment link options.
type PaymentsConfig struct {
	APIKey string `mapstructure:"api_key" validate:"required"`
	// APIURL overrides the payments API endpoint; empty means the SDK default.
	APIURL             string   `mapstructure:"api_url" validate:"omitempty,url"`
	ProductID          string   `mapstructure:"product_id" validate:"required"`
	Currency           string   `mapstructure:"currency" validate:"required,len=3,alpha"`
	SuccessURL         string   `mapstructure:"success_url" validate:"required,url"`
	PortalLoginURL     string   `mapstructure:"portal_login_url" validate:"required,url"`
	PaymentMethodTypes []string `mapstructure:"payment_method_types" validate:"min=1,dive,required"`
	ShippingCountries  []string `mapstructure:"shipping_countries" validate:"min=1,dive,len=2,alpha"`
	Timeout            int      `mapstructure:"timeout" validate:"gt=0"` // milliseconds
}

// SyncConfig holds the business rules of the sync pipeline.
type SyncConfig struct {
	Timezone  string `mapstructure:"timezone" validate:"required"`
	OpenHour  int    `mapstructure:"open_hour" validate:"min=0,max=23"`
	CloseHour int    `mapstructure:"close_hour" validate:"min=1,max=24,gtfield=OpenHour"`
	// ReuseCustomers remembers customers created for records that failed later in the pipeline.
	ReuseCustomers  bool `mapstructure:"reuse_customers"`
	CustomerMemoTTL int  `mapstructure:"customer_memo_ttl" validate:"gt=0"` // milliseconds
}

type SchedulerConfig struct {
	Mode      string `mapstructure:"mode" validate:"oneof=ticker zeebe"`
	Interval  int    `mapstructure:"interval" validate:"gt=0"` // milliseconds
	Exclusive bool   `mapstructure:"exclusive"`
	LeaseTTL  int    `mapstructure:"lease_ttl" validate:"gt=0"` // milliseconds
}

// BrokerConfig is the Redis connection used for run leases and the customer memo.
type BrokerConfig struct {
	URL string `mapstructure:"url"`
}

type CamundaConfig struct {
	BrokerAddress string `mapstructure:"broker_address"`
	TaskType      string `mapstructure:"task_type"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// NeedsBroker reports whether any enabled feature requires the Redis broker.
func (c *Config) NeedsBroker() bool {
	return c.Scheduler.Exclusive || c.Sync.ReuseCustomers
}
