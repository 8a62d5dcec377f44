// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration for a single run.
// It is loaded once at startup and never mutated by the core loop.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Booking     BookingConfig     `mapstructure:"booking" yaml:"booking"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Network     NetworkConfig     `mapstructure:"network" yaml:"network"`
	Alert       AlertConfig       `mapstructure:"alert" yaml:"alert"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// CredentialsConfig carries the portal login identity. The password is never
// serialized back out.
type CredentialsConfig struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"-"`
}

// BookingConfig describes the appointment slot being targeted and the data
// used to fill the booking form once it is reached.
type BookingConfig struct {
	// ServiceID identifies the appointment type on the portal. The booking
	// resource lives at /Services/Booking/<ServiceID>.
	ServiceID string `mapstructure:"service_id" yaml:"service_id"`
	// Address is the applicant's residence address.
	Address string `mapstructure:"address" yaml:"address"`
	// ProofOfResidencePath points at the document uploaded with the form.
	// If non-empty it must exist on disk; checked once at startup.
	ProofOfResidencePath string `mapstructure:"proof_of_residence_path" yaml:"proof_of_residence_path"`
	// Notes is free text copied into the booking notes field.
	Notes string `mapstructure:"notes" yaml:"notes"`
	// BookingType selects the first dynamic dropdown on the form, when set.
	BookingType string `mapstructure:"booking_type" yaml:"booking_type"`
	// PollInterval paces the watch loop. Applied before every re-attempt.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// Language is the portal locale to ensure after login (en-US or it-IT).
	Language string `mapstructure:"language" yaml:"language"`
}

// BrowserConfig holds settings for the driven browser instance.
type BrowserConfig struct {
	// Type selects the browser binary: chrome, chromium or edge.
	Type       string   `mapstructure:"type" yaml:"type"`
	Headless   bool     `mapstructure:"headless" yaml:"headless"`
	ProfileDir string   `mapstructure:"profile_dir" yaml:"profile_dir"`
	Args       []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig tunes the bounded waits around browser interactions.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleWait        time.Duration `mapstructure:"settle_wait" yaml:"settle_wait"`
	DialogWait        time.Duration `mapstructure:"dialog_wait" yaml:"dialog_wait"`
	OptionWait        time.Duration `mapstructure:"option_wait" yaml:"option_wait"`
}

// AlertConfig tunes the audible operator alerts.
type AlertConfig struct {
	// Duration is how long the handover alert keeps sounding.
	Duration time.Duration `mapstructure:"duration" yaml:"duration"`
	// CaptchaBeep is the short alert repeated while a captcha wall is up.
	CaptchaBeep time.Duration `mapstructure:"captcha_beep" yaml:"captcha_beep"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "prenotabot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Booking --
	v.SetDefault("booking.service_id", "4996")
	v.SetDefault("booking.poll_interval", "2s")
	v.SetDefault("booking.language", "en-US")

	// -- Browser --
	v.SetDefault("browser.type", "chrome")
	// Headless sessions trip the portal's bot wall far more often, and the
	// operator needs a visible window at handover anyway.
	v.SetDefault("browser.headless", false)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "60s")
	v.SetDefault("network.settle_wait", "2s")
	v.SetDefault("network.dialog_wait", "2s")
	v.SetDefault("network.option_wait", "20s")

	// -- Alert --
	v.SetDefault("alert.duration", "3m")
	v.SetDefault("alert.captcha_beep", "2s")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials may come from the environment rather than the file.
	v.BindEnv("credentials.email", "PRENOTABOT_EMAIL")
	v.BindEnv("credentials.password", "PRENOTABOT_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration struct populated with defaults.
// Credentials are empty and must be supplied before Validate passes.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
// A failure here is fatal at startup; nothing in the run loop re-validates.
func (c *Config) Validate() error {
	if c.Credentials.Email == "" {
		return fmt.Errorf("credentials.email is required")
	}
	if c.Credentials.Password == "" {
		return fmt.Errorf("credentials.password is required")
	}
	if c.Booking.ServiceID == "" {
		return fmt.Errorf("booking.service_id is required")
	}
	if c.Booking.PollInterval <= 0 {
		return fmt.Errorf("booking.poll_interval must be a positive duration")
	}
	if c.Alert.Duration <= 0 {
		return fmt.Errorf("alert.duration must be a positive duration")
	}
	switch c.Browser.Type {
	case "chrome", "chromium", "edge":
	default:
		return fmt.Errorf("browser.type must be one of chrome, chromium, edge (got %q)", c.Browser.Type)
	}
	if p := c.Booking.ProofOfResidencePath; p != "" {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("booking.proof_of_residence_path %q is not readable: %w", p, err)
		}
	}
	return nil
}
