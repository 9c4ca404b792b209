package config

import (
	"time"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/logger"
	"github.com/kbukum/gfnkit/observability"
	"github.com/kbukum/gfnkit/store"
	"github.com/kbukum/gfnkit/validation"
	"github.com/kbukum/gfnkit/version"
)

// DefaultName is the service name used when none is configured.
const DefaultName = "gfnkit"

// Environments accepted by Config.Validate.
var Environments = []string{"development", "staging", "production"}

// Config is the top-level gfnkit configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
	Storage store.Config  `yaml:"storage" mapstructure:"storage"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Compose ComposeConfig `yaml:"compose" mapstructure:"compose"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig controls OTLP metric export.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ComposeConfig locates pipeline manifests.
type ComposeConfig struct {
	// Dirs are searched in order for {name}.yaml pipelines.
	Dirs []string `yaml:"dirs" mapstructure:"dirs"`
	// Concurrency bounds parallel archive reads per build.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Version == "" {
		c.Version = version.GetShortVersion()
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Storage.ApplyDefaults()

	tracing := observability.DefaultTracerConfig(c.Name)
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = tracing.Endpoint
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = tracing.SampleRate
	}
	metrics := observability.DefaultMeterConfig(c.Name)
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = metrics.Endpoint
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = metrics.Interval
	}
	if len(c.Compose.Dirs) == 0 {
		c.Compose.Dirs = []string{"./pipelines"}
	}
}

// Validate checks the whole configuration and reports every invalid field.
func (c *Config) Validate() error {
	v := validation.New().
		Required("name", c.Name).
		OneOf("environment", c.Environment, Environments).
		Custom(c.Tracing.SampleRate >= 0 && c.Tracing.SampleRate <= 1, "tracing.sample_rate",
			"must be between 0 and 1").
		Custom(c.Metrics.Interval >= 0, "metrics.interval", "must not be negative").
		Custom(c.Compose.Concurrency >= 0, "compose.concurrency", "must not be negative")
	collect(v, "logging", c.Logging.Validate())
	collect(v, "storage", c.Storage.Validate())
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// collect copies the field errors of a nested Validate into v.
func collect(v *validation.Validator, section string, err error) {
	if err == nil {
		return
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		v.AddError(section, err.Error())
		return
	}
	fields, ok := appErr.Details["fields"].([]validation.FieldError)
	if !ok {
		v.AddError(section, appErr.Message)
		return
	}
	for _, fe := range fields {
		v.AddError(fe.Field, fe.Message)
	}
}

// TracerConfig returns the observability tracer settings.
func (c *Config) TracerConfig() observability.TracerConfig {
	return observability.TracerConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Tracing.Endpoint,
		Insecure:       c.Tracing.Insecure,
		SampleRate:     c.Tracing.SampleRate,
	}
}

// MeterConfig returns the observability meter settings.
func (c *Config) MeterConfig() observability.MeterConfig {
	return observability.MeterConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Metrics.Endpoint,
		Insecure:       c.Metrics.Insecure,
		Interval:       c.Metrics.Interval,
	}
}
