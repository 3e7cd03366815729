package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/mertdlkr/portfolio-tracker/internal/scheduler"
)

// Config represents the application configuration
type Config struct {
	RPCUrl          string          `mapstructure:"rpc_url" validate:"omitempty,url"`
	RPCUrls         []string        `mapstructure:"rpc_urls" validate:"omitempty,dive,url"`
	RegistryAddress string          `mapstructure:"registry_address" validate:"omitempty,eth_addr"`
	OwnerAddress    string          `mapstructure:"owner_address" validate:"omitempty,eth_addr"`
	ChainID         int64           `mapstructure:"chain_id" validate:"omitempty,min=1"`
	UpstreamURL     string          `mapstructure:"upstream_url" validate:"required,url"`
	ProxyURL        string          `mapstructure:"proxy_url" validate:"omitempty,url"`
	HTTPPort        int             `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	PollInterval    string          `mapstructure:"poll_interval" validate:"omitempty,duration"`
	RefreshInterval string          `mapstructure:"refresh_interval" validate:"omitempty,schedule"`
	LogLevel        string          `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Timezone        string          `mapstructure:"timezone" validate:"omitempty,tzlocation"`
	RunImmediately  *bool           `mapstructure:"run_immediately"`
	DefaultIDs      []string        `mapstructure:"default_ids" validate:"omitempty,dive,min=1"`
	Holdings        []HoldingConfig `mapstructure:"holdings" validate:"omitempty,dive"`
}

// HoldingConfig seeds one portfolio holding.
type HoldingConfig struct {
	Identifier string  `mapstructure:"identifier" validate:"required,min=1"`
	Symbol     string  `mapstructure:"symbol" validate:"omitempty,max=20"`
	Name       string  `mapstructure:"name" validate:"omitempty,max=100"`
	Amount     float64 `mapstructure:"amount" validate:"omitempty,min=0"`
}

// Normalize folds the single rpc_url form into the rpc_urls list.
// An empty result is valid: the serve command needs no chain access.
func (c *Config) Normalize() error {
	if len(c.RPCUrls) == 0 && c.RPCUrl != "" {
		c.RPCUrls = []string{c.RPCUrl}
	}
	c.RPCUrl = ""
	return nil
}

// HasRegistry reports whether enough chain configuration is present for
// registry reads and writes.
func (c *Config) HasRegistry() bool {
	return len(c.RPCUrls) > 0 && c.RegistryAddress != ""
}

// RequireRegistry errors unless chain configuration is complete.
func (c *Config) RequireRegistry() error {
	if len(c.RPCUrls) == 0 {
		return fmt.Errorf("rpc_url or rpc_urls is required for registry access")
	}
	if c.RegistryAddress == "" {
		return fmt.Errorf("registry_address is required for registry access")
	}
	return nil
}

// GetTimezone resolves the configured timezone, defaulting to UTC.
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldRunImmediately reports whether the on-chain refresh job runs on
// start. Unset defaults to true.
func (c *Config) ShouldRunImmediately() bool {
	if c.RunImmediately == nil {
		return true
	}
	return *c.RunImmediately
}

// GetPollInterval parses the price poll interval; empty falls back to
// five seconds.
func (c *Config) GetPollInterval() time.Duration {
	if c.PollInterval == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// ethAddressValidator validates Ethereum addresses
func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// durationValidator validates duration strings
func durationValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// scheduleValidator validates duration-or-cron schedule strings
func scheduleValidator(fl validator.FieldLevel) bool {
	return scheduler.ValidateScheduleInterval(fl.Field().String()) == nil
}

// timezoneValidator validates IANA timezone names
func timezoneValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("eth_addr", ethAddressValidator)
	validate.RegisterValidation("duration", durationValidator)
	validate.RegisterValidation("schedule", scheduleValidator)
	validate.RegisterValidation("tzlocation", timezoneValidator)
	return validate
}
