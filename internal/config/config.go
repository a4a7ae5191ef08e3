package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/spf13/viper"
)

// Config holds the resolved application settings.
type Config struct {
	Database DatabaseConfig
	Currency CurrencyConfig
	Alerts   AlertsConfig
	Logging  LoggingConfig
}

// DatabaseConfig locates the SQLite file backing the slots.
type DatabaseConfig struct {
	Path string
}

// CurrencyConfig configures the exchange-rate provider.
type CurrencyConfig struct {
	APIURL  string
	APIKey  string
	Base    string
	Timeout time.Duration
}

// AlertsConfig configures budget alert publishing. An empty AMQPURL disables alerts.
type AlertsConfig struct {
	AMQPURL    string
	Exchange   string
	RoutingKey string
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string
	Format string
}

// Enabled reports whether alerts should be published.
func (a AlertsConfig) Enabled() bool {
	return a.AMQPURL != ""
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("currency.api_url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("currency.base", model.DefaultCurrency)
	v.SetDefault("currency.timeout", 10*time.Second)
	v.SetDefault("alerts.exchange", "purse")
	v.SetDefault("alerts.routing_key", "budget.alerts")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Currency: CurrencyConfig{
			APIURL:  strings.TrimRight(v.GetString("currency.api_url"), "/"),
			APIKey:  v.GetString("currency.api_key"),
			Base:    model.NormalizeCurrency(v.GetString("currency.base")),
			Timeout: v.GetDuration("currency.timeout"),
		},
		Alerts: AlertsConfig{
			AMQPURL:    v.GetString("alerts.amqp_url"),
			Exchange:   v.GetString("alerts.exchange"),
			RoutingKey: v.GetString("alerts.routing_key"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.Path == "" {
		problems = append(problems, "database.path cannot be empty")
	}

	if u, err := url.Parse(c.Currency.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		problems = append(problems, fmt.Sprintf("invalid currency.api_url %q: must be an http(s) URL", c.Currency.APIURL))
	}
	if len(c.Currency.Base) != 3 {
		problems = append(problems, fmt.Sprintf("invalid currency.base %q: must be a 3-letter code", c.Currency.Base))
	}
	if c.Currency.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid currency.timeout %v: must be positive", c.Currency.Timeout))
	} else if c.Currency.Timeout > 2*time.Minute {
		problems = append(problems, fmt.Sprintf("invalid currency.timeout %v: must be at most 2m", c.Currency.Timeout))
	}

	if c.Alerts.Enabled() {
		if u, err := url.Parse(c.Alerts.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid alerts.amqp_url: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid alerts.amqp_url scheme %q: must be amqp or amqps", u.Scheme))
		}
		if c.Alerts.Exchange == "" {
			problems = append(problems, "alerts.exchange cannot be empty when alerts.amqp_url is set")
		}
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		problems = append(problems, fmt.Sprintf("invalid logging.format %q: must be console or json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n- %s", common.ErrInvalidConfig, strings.Join(problems, "\n- "))
	}
	return nil
}
