package logger

import "github.com/kbukum/gfnkit/validation"

// Config contains logging configuration. Output is "stdout" or "stderr".
type Config struct {
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	Output      string `yaml:"output" mapstructure:"output"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp   bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller      bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

// Levels and Formats accepted by Config.Validate.
var (
	Levels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	Formats = []string{"json", "console", FormatPretty}
)

// Validate checks the level and format.
func (c *Config) Validate() error {
	v := validation.New().
		OneOf("logging.level", c.Level, Levels).
		OneOf("logging.format", c.Format, Formats)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
