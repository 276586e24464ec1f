// Package config loads and validates the application configuration from
// environment variables (CNE_ prefix) with optional YAML file overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Sources  SourcesConfig  `yaml:"sources" envconfig:"SOURCES"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
}

// PipelineConfig contains the economic model parameters. The historical
// literature quotes several calibrations for these, so every one of them is
// caller-supplied rather than hardcoded.
type PipelineConfig struct {
	// Alpha is the capital share in the Cobb-Douglas production function.
	Alpha float64 `yaml:"alpha" envconfig:"ALPHA" default:"0.3333333333333333" validate:"gt=0,lt=1"`

	// CapitalOutputRatio anchors the baseline capital stock (K = kappa * Y).
	CapitalOutputRatio float64 `yaml:"capital_output_ratio" envconfig:"CAPITAL_OUTPUT_RATIO" default:"3.0" validate:"gt=0"`

	// BaselineYear is the preferred anchor year for capital rebasing.
	BaselineYear int `yaml:"baseline_year" envconfig:"BASELINE_YEAR" default:"2017" validate:"gte=1950"`

	// EndYear is the target year every series is extended to.
	EndYear int `yaml:"end_year" envconfig:"END_YEAR" default:"2030" validate:"gte=1950"`

	// Minimum observed history per method before falling back to the
	// average growth rate. The ARIMA floor matches the fitting library's
	// requirement of p+d+q+10 points for an ARIMA(1,1,1); setting it lower
	// just routes those series through the fit-error fallback.
	MinObsARIMA  int `yaml:"min_obs_arima" envconfig:"MIN_OBS_ARIMA" default:"13" validate:"gte=2"`
	MinObsLinear int `yaml:"min_obs_linear" envconfig:"MIN_OBS_LINEAR" default:"3" validate:"gte=2"`
}

// SourcesConfig contains the download layer configuration
type SourcesConfig struct {
	WDIBaseURL     string        `yaml:"wdi_base_url" envconfig:"WDI_BASE_URL" default:"https://api.worldbank.org/v2"`
	PWTFile        string        `yaml:"pwt_file" envconfig:"PWT_FILE" default:"pwt1001.xlsx"`
	IMFFile        string        `yaml:"imf_file" envconfig:"IMF_FILE" default:"imf_fiscal_monitor.csv"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3" validate:"gte=0"`
	RetryBackoff   time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF" default:"2s"`
	RatePerSecond  float64       `yaml:"rate_per_second" envconfig:"RATE_PER_SECOND" default:"5" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	CacheDir   string `yaml:"cache_dir" envconfig:"CACHE_DIR" default:"data/cache"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// ServerConfig contains the report server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
}

// Load loads configuration in three layers: struct defaults, then CNE_*
// environment variables, then the optional YAML file, which wins. A missing
// file path is tolerated; a present but malformed file is not.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CNE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration ranges. The pipeline core assumes these
// have been enforced before it runs.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Pipeline.EndYear < c.Pipeline.BaselineYear {
		return fmt.Errorf("end_year %d precedes baseline_year %d", c.Pipeline.EndYear, c.Pipeline.BaselineYear)
	}
	return nil
}

// EnsureDirectories creates every configured directory that does not exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ReportsDir, c.Paths.CacheDir, c.Paths.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
