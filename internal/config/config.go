package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "breachstudy/internal/errors"
)

// Config represents the complete engine configuration.
//
// Every knob the pipeline depends on is an explicit field here; components
// never read the environment or apply hidden defaults of their own.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Windows  WindowsConfig  `yaml:"windows" envconfig:"WINDOWS"`
	Model    ModelConfig    `yaml:"model" envconfig:"MODEL"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	ML       MLConfig       `yaml:"ml" envconfig:"ML"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"text" validate:"oneof=text json"`
}

// PathsConfig contains input and output locations
type PathsConfig struct {
	RegistryFile     string `yaml:"registry_file" envconfig:"REGISTRY_FILE" validate:"required"`
	MarketFile       string `yaml:"market_file" envconfig:"MARKET_FILE" validate:"required"`
	FundamentalsFile string `yaml:"fundamentals_file" envconfig:"FUNDAMENTALS_FILE" validate:"required"`
	OutputDir        string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"output" validate:"required"`
}

// WindowsConfig contains the trading-day window parameters for the
// event-study computations
type WindowsConfig struct {
	EstimationDays      int   `yaml:"estimation_days" envconfig:"ESTIMATION_DAYS" default:"120" validate:"gte=30"`
	GapDays             int   `yaml:"gap_days" envconfig:"GAP_DAYS" default:"5" validate:"gte=1"`
	EventLengths        []int `yaml:"event_lengths" envconfig:"EVENT_LENGTHS" default:"5,30" validate:"min=1,dive,gte=1"`
	MinHistory          int   `yaml:"min_history" envconfig:"MIN_HISTORY" default:"60" validate:"gte=20"`
	MissingDayTolerance int   `yaml:"missing_day_tolerance" envconfig:"MISSING_DAY_TOLERANCE" default:"2" validate:"gte=0"`
	VolPreDays          int   `yaml:"vol_pre_days" envconfig:"VOL_PRE_DAYS" default:"30" validate:"gte=5"`
	VolPostDays         int   `yaml:"vol_post_days" envconfig:"VOL_POST_DAYS" default:"30" validate:"gte=5"`
}

// ModelConfig selects the benchmark return model
type ModelConfig struct {
	// Benchmark is "market" for the single-factor market model, or "mean"
	// for the mean-adjusted fallback when no index series is available
	Benchmark string `yaml:"benchmark" envconfig:"BENCHMARK" default:"market" validate:"oneof=market mean"`
	// EffectWindow is the CAR window length the effect-estimation layer
	// uses as its outcome; must be one of EventLengths
	EffectWindow int `yaml:"effect_window" envconfig:"EFFECT_WINDOW" default:"5" validate:"gte=1"`
}

// AnalysisConfig names the covariates used by the regression ladder
type AnalysisConfig struct {
	Controls   []string `yaml:"controls" envconfig:"CONTROLS" default:"firm_size,leverage,roa,log_records,prior_breaches,delay_days"`
	Moderators []string `yaml:"moderators" envconfig:"MODERATORS" default:"health_data,prior_breaches,exec_turnover,enforcement_action,size_tercile"`
}

// MLConfig contains the random-forest hyperparameters for the validation layer
type MLConfig struct {
	Trees    int   `yaml:"trees" envconfig:"TREES" default:"200" validate:"gte=10"`
	MaxDepth int   `yaml:"max_depth" envconfig:"MAX_DEPTH" default:"6" validate:"gte=1"`
	MinLeaf  int   `yaml:"min_leaf" envconfig:"MIN_LEAF" default:"5" validate:"gte=1"`
	Folds    int   `yaml:"folds" envconfig:"FOLDS" default:"5" validate:"gte=2"`
	Seed     int64 `yaml:"seed" envconfig:"SEED" default:"42"`
}

// Load loads configuration from environment variables and an optional YAML file.
// File values take precedence over environment values, matching how the
// pipeline is normally driven from a checked-in run configuration.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("BREACH", &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, apperrors.NewConfigError("config file not found", err).
				WithContext("path", configFile)
		}
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, apperrors.NewConfigError("failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to parse config file", err).
				WithContext("path", configFile)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and the cross-field window rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("invalid configuration", err)
	}

	// Event windows start at disclosure; the estimation window must end
	// strictly before that, which the gap guarantees. Contamination is a
	// config error, not a per-event condition.
	if c.Windows.GapDays < 1 {
		return apperrors.NewConfigError("gap_days must be at least 1 trading day", nil)
	}
	if c.Windows.MinHistory > c.Windows.EstimationDays {
		return apperrors.NewConfigError("min_history cannot exceed estimation_days", nil).
			WithContext("min_history", c.Windows.MinHistory).
			WithContext("estimation_days", c.Windows.EstimationDays)
	}

	lengths := append([]int(nil), c.Windows.EventLengths...)
	sort.Ints(lengths)
	for i := 1; i < len(lengths); i++ {
		if lengths[i] == lengths[i-1] {
			return apperrors.NewConfigError("duplicate event window length", nil).
				WithContext("length", lengths[i])
		}
	}
	if c.Windows.MissingDayTolerance >= lengths[0] {
		return apperrors.NewConfigError("missing_day_tolerance must be smaller than the shortest event window", nil).
			WithContext("tolerance", c.Windows.MissingDayTolerance).
			WithContext("shortest_window", lengths[0])
	}

	found := false
	for _, l := range c.Windows.EventLengths {
		if l == c.Model.EffectWindow {
			found = true
			break
		}
	}
	if !found {
		return apperrors.NewConfigError(
			fmt.Sprintf("effect_window %d is not one of the configured event lengths", c.Model.EffectWindow), nil)
	}

	return nil
}

// SortedEventLengths returns the configured event window lengths in
// ascending order; pipeline outputs iterate this, never the raw slice,
// to keep row order deterministic
func (c *Config) SortedEventLengths() []int {
	lengths := append([]int(nil), c.Windows.EventLengths...)
	sort.Ints(lengths)
	return lengths
}
