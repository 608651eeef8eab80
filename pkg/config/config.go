// Package config loads clonebench settings from a YAML file, CLONEBENCH_*
// environment variables and built-in defaults, in increasing order of
// precedence below command-line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/clonebench/internal/dataset"
	"github.com/Sumatoshi-tech/clonebench/internal/gcj"
	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

// Sentinel validation errors.
var (
	ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")
	ErrInvalidWorkers   = errors.New("workers must be at least 1")
	ErrInvalidFormat    = errors.New("unknown report format")
	ErrInvalidSource    = errors.New("unknown detector source")
	ErrInvalidMisses    = errors.New("max misses must not be negative")
	ErrInvalidLogFormat = errors.New("unknown log format")
	ErrInvalidLogLevel  = errors.New("unknown log level")
	ErrNoLanguages      = errors.New("build needs at least one language")
)

// Default configuration values.
const (
	DefaultThreshold    = 0.7
	DefaultWorkers      = 1
	DefaultFormat       = "text"
	DefaultSource       = SourceAuto
	DefaultMaxMisses    = 20
	DefaultSolutionsDir = dataset.SolutionsDir
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Detector sources.
const (
	SourceAuto   = "auto"
	SourceSQLite = "sqlite"
	SourceCSV    = "csv"
)

// Formats lists the report formats accepted in report.format.
var Formats = []string{"text", "json", "yaml", "plot"}

var (
	sources    = []string{SourceAuto, SourceSQLite, SourceCSV}
	logFormats = []string{"text", "json"}
	logLevels  = []string{"debug", "info", "warn", "error"}
)

// Config holds all clonebench configuration.
type Config struct {
	Benchmark     BenchmarkConfig     `mapstructure:"benchmark"`
	Evaluation    EvaluationConfig    `mapstructure:"evaluation"`
	Detector      DetectorConfig      `mapstructure:"detector"`
	Report        ReportConfig        `mapstructure:"report"`
	Build         BuildConfig         `mapstructure:"build"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BenchmarkConfig locates the reference data.
type BenchmarkConfig struct {
	// BaseDir anchors relative benchmark paths. Empty means the directory
	// holding the benchmark CSV.
	BaseDir string `mapstructure:"base_dir"`
}

// EvaluationConfig holds the c-match parameters.
type EvaluationConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	// EmptyMatch lets two empty fragments match each other.
	EmptyMatch bool `mapstructure:"empty_match"`
	Workers    int  `mapstructure:"workers"`
}

// DetectorConfig describes where detector results live.
type DetectorConfig struct {
	Table  string `mapstructure:"table"`
	Source string `mapstructure:"source"`
}

// ReportConfig holds output settings.
type ReportConfig struct {
	Format    string `mapstructure:"format"`
	MaxMisses int    `mapstructure:"max_misses"`
	NoColor   bool   `mapstructure:"no_color"`
}

// BuildConfig holds benchmark builder settings.
type BuildConfig struct {
	Languages    []string `mapstructure:"languages"`
	SolutionsDir string   `mapstructure:"solutions_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	Environment        string  `mapstructure:"environment"`
	OTLPEndpoint       string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders        string  `mapstructure:"otlp_headers"`
	OTLPInsecure       bool    `mapstructure:"otlp_insecure"`
	SampleRatio        float64 `mapstructure:"sample_ratio"`
	PrometheusTextfile string  `mapstructure:"prometheus_textfile"`
}

// EmptyPolicy translates evaluation.empty_match.
func (c *Config) EmptyPolicy() cmatch.EmptyPolicy {
	if c.Evaluation.EmptyMatch {
		return cmatch.EmptyMatches
	}

	return cmatch.EmptyNeverMatches
}

// LoadConfig loads configuration from configPath, or from clonebench.yaml in
// the working directory, ./config or /etc/clonebench when configPath is
// empty. A missing default file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("clonebench")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/clonebench")
	}

	viperCfg.SetEnvPrefix("CLONEBENCH")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("benchmark.base_dir", "")

	viperCfg.SetDefault("evaluation.threshold", DefaultThreshold)
	viperCfg.SetDefault("evaluation.empty_match", true)
	viperCfg.SetDefault("evaluation.workers", DefaultWorkers)

	viperCfg.SetDefault("detector.table", dataset.DefaultTable)
	viperCfg.SetDefault("detector.source", DefaultSource)

	viperCfg.SetDefault("report.format", DefaultFormat)
	viperCfg.SetDefault("report.max_misses", DefaultMaxMisses)
	viperCfg.SetDefault("report.no_color", false)

	viperCfg.SetDefault("build.languages", []string{gcj.DefaultLanguage})
	viperCfg.SetDefault("build.solutions_dir", DefaultSolutionsDir)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.sample_ratio", 0.0)
	viperCfg.SetDefault("observability.prometheus_textfile", "")
}

// Validate checks the configuration. Commands call it again after applying
// flag overrides.
func (c *Config) Validate() error {
	if c.Evaluation.Threshold <= 0 || c.Evaluation.Threshold > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, c.Evaluation.Threshold)
	}

	if c.Evaluation.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Evaluation.Workers)
	}

	tableErr := dataset.ValidateTable(c.Detector.Table)
	if tableErr != nil {
		return tableErr
	}

	if !slices.Contains(sources, c.Detector.Source) {
		return fmt.Errorf("%w: %q", ErrInvalidSource, c.Detector.Source)
	}

	if !slices.Contains(Formats, c.Report.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Report.Format)
	}

	if c.Report.MaxMisses < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMisses, c.Report.MaxMisses)
	}

	if len(c.Build.Languages) == 0 {
		return ErrNoLanguages
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if !slices.Contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	return nil
}
