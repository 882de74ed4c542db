package synccontacts

import (
	"fmt"
	"time"

	"contact-sync/internal/common/config"
)

type Config struct {
	Location  *time.Location
	OpenHour  int
	CloseHour int

	Currency           string
	ProductID          string
	SuccessURL         string
	PortalLoginURL     string
	PaymentMethodTypes []string
	ShippingCountries  []string

	ReuseCustomers bool
	LeaseKey       string
	LeaseTTL       time.Duration

	// Timeout bounds one invocation started from a Zeebe job.
	Timeout time.Duration
}

func DefaultConfig() *Config {
	loc, _ := time.LoadLocation(config.DefaultTimezone)
	return &Config{
		Location:           loc,
		OpenHour:           7,
		CloseHour:          19,
		Currency:           "aud",
		SuccessURL:         config.DefaultSuccessURL,
		PortalLoginURL:     config.DefaultPortalLoginURL,
		PaymentMethodTypes: []string{"card", "afterpay_clearpay", "link", "zip"},
		ShippingCountries:  []string{"AU", "US", "CA", "GB", "NZ"},
		LeaseKey:           "contact-sync:run-lease",
		LeaseTTL:           150 * time.Second,
		Timeout:            2 * time.Minute,
	}
}

// ConfigFromApp derives the worker configuration from the loaded application config.
func ConfigFromApp(app *config.Config) (*Config, error) {
	loc, err := time.LoadLocation(app.Sync.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", app.Sync.Timezone, err)
	}

	cfg := DefaultConfig()
	cfg.Location = loc
	cfg.OpenHour = app.Sync.OpenHour
	cfg.CloseHour = app.Sync.CloseHour
	cfg.Currency = app.Payments.Currency
	cfg.ProductID = app.Payments.ProductID
	cfg.SuccessURL = app.Payments.SuccessURL
	cfg.PortalLoginURL = app.Payments.PortalLoginURL
	cfg.PaymentMethodTypes = app.Payments.PaymentMethodTypes
	cfg.ShippingCountries = app.Payments.ShippingCountries
	cfg.ReuseCustomers = app.Sync.ReuseCustomers
	cfg.LeaseTTL = config.GetDuration(app.Scheduler.LeaseTTL)
	cfg.Timeout = config.GetDuration(app.Camunda.Timeout)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Location == nil {
		return fmt.Errorf("location is required")
	}
	if c.OpenHour < 0 || c.CloseHour > 24 || c.OpenHour >= c.CloseHour {
		return fmt.Errorf("invalid operating window %d-%d", c.OpenHour, c.CloseHour)
	}
	if c.ProductID == "" {
		return fmt.Errorf("product_id is required")
	}
	if c.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.LeaseTTL < time.Second {
		return fmt.Errorf("lease ttl must be at least 1s")
	}
	return nil
}
