// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jd-highlighter/internal/highlight"
	"github.com/jonathan/jd-highlighter/internal/legend"
)

// Config can be loaded from a JSON file and overridden by environment
// variables. Zero values mean "not set" and are filled by MergeWithDefaults.
type Config struct {
	// Registry data
	CategoriesFile string `json:"categories_file,omitempty" validate:"omitempty,file"` // Custom category definitions
	LegendFile     string `json:"legend_file,omitempty" validate:"omitempty,file"`     // Legend matching the custom categories

	// Segmentation budget
	MaxSteps      int `json:"max_steps,omitempty" validate:"gte=0"`
	MaxDurationMS int `json:"max_duration_ms,omitempty" validate:"gte=0,lte=60000"`

	// Server
	Port             int     `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	DatabaseURL      string  `json:"database_url,omitempty" validate:"omitempty,url"`
	RateLimitRPS     float64 `json:"rate_limit_rps,omitempty" validate:"gte=0"`
	RateLimitBurst   int     `json:"rate_limit_burst,omitempty" validate:"gte=0"`
	MaxBodyBytes     int64   `json:"max_body_bytes,omitempty" validate:"gte=0"`
	BatchConcurrency int     `json:"batch_concurrency,omitempty" validate:"gte=0,lte=64"`
	MemoSize         int     `json:"memo_size,omitempty" validate:"gte=0"`

	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// Defaults returns the values used when neither a file nor the environment
// sets a field.
func Defaults() Config {
	return Config{
		MaxSteps:         highlight.DefaultMaxSteps,
		MaxDurationMS:    int(highlight.DefaultMaxDuration / time.Millisecond),
		Port:             8080,
		RateLimitRPS:     10,
		RateLimitBurst:   20,
		MaxBodyBytes:     1 << 20,
		BatchConcurrency: 4,
		MemoSize:         256,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads the environment. Unset or unparsable variables leave the
// field at its zero value.
func FromEnv() Config {
	cfg := Config{
		CategoriesFile: getEnvString("HIGHLIGHT_CATEGORIES_FILE", ""),
		LegendFile:     getEnvString("HIGHLIGHT_LEGEND_FILE", ""),
		MaxSteps:       getEnvInt("HIGHLIGHT_MAX_STEPS", 0),
		Port:           getEnvInt("PORT", 0),
		DatabaseURL:    getEnvString("DATABASE_URL", ""),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 0),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 0)),
		Verbose:        getEnvBool("HIGHLIGHT_VERBOSE", false),
	}
	if d := getEnvDuration("HIGHLIGHT_MAX_DURATION", 0); d > 0 {
		cfg.MaxDurationMS = int(d / time.Millisecond)
	}
	return cfg
}

// Load resolves the effective configuration: environment over file over
// defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	file := &Config{}
	if path != "" {
		var err error
		file, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	env := FromEnv()
	merged := env.MergeWithDefaults(*file)
	merged.Verbose = env.Verbose || file.Verbose
	merged = merged.MergeWithDefaults(Defaults())

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration has valid values. Required values
// are not checked here; defaults fill them after merging.
func (c *Config) Validate() error {
	if c.LegendFile != "" && c.CategoriesFile == "" {
		return fmt.Errorf("config error: 'legend_file' requires 'categories_file'")
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config error: %w", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problem := fmt.Sprintf("'%s' failed '%s'", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			problem += "=" + fe.Param()
		}
		problems = append(problems, problem)
	}
	return fmt.Errorf("config error: %s", strings.Join(problems, "; "))
}

// MergeWithDefaults returns a new Config with zero fields filled from
// defaults. Bools are not merged since unset and false look the same.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.CategoriesFile == "" {
		result.CategoriesFile = defaults.CategoriesFile
	}
	if result.LegendFile == "" {
		result.LegendFile = defaults.LegendFile
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.MaxSteps == 0 {
		result.MaxSteps = defaults.MaxSteps
	}
	if result.MaxDurationMS == 0 {
		result.MaxDurationMS = defaults.MaxDurationMS
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RateLimitRPS == 0 {
		result.RateLimitRPS = defaults.RateLimitRPS
	}
	if result.RateLimitBurst == 0 {
		result.RateLimitBurst = defaults.RateLimitBurst
	}
	if result.MaxBodyBytes == 0 {
		result.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if result.BatchConcurrency == 0 {
		result.BatchConcurrency = defaults.BatchConcurrency
	}
	if result.MemoSize == 0 {
		result.MemoSize = defaults.MemoSize
	}

	return result
}

// Budget converts the configured limits into a segmentation budget.
func (c *Config) Budget() highlight.Budget {
	return highlight.Budget{
		MaxSteps:    c.MaxSteps,
		MaxDuration: time.Duration(c.MaxDurationMS) * time.Millisecond,
	}
}

// LoadRegistry returns the custom registry when CategoriesFile is set and
// the built-in one otherwise.
func (c *Config) LoadRegistry() (*highlight.Registry, error) {
	if c.CategoriesFile == "" {
		return highlight.DefaultRegistry()
	}

	data, err := os.ReadFile(c.CategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file %s: %w", c.CategoriesFile, err)
	}
	return highlight.LoadRegistry(data)
}

// LoadLegend returns the legend for reg. A custom registry needs a
// LegendFile; the built-in legend only matches the built-in categories.
func (c *Config) LoadLegend(reg *highlight.Registry) (*legend.Legend, error) {
	if c.LegendFile == "" {
		return legend.Default(reg)
	}

	data, err := os.ReadFile(c.LegendFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read legend file %s: %w", c.LegendFile, err)
	}
	return legend.Load(reg, data)
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as a float with a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
