// Package config loads the pipeline settings from defaults, environment
// variables and command line flags through viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

// Environment variables read by Load.
const (
	EnvPreprocessedDataPath = "PREPROCESSED_DATA_PATH"
	EnvInputPath            = "CHURN_INPUT_PATH"
	EnvPlotPath             = "CHURN_IMPORTANCE_PLOT_PATH"
	EnvLogLevel             = "CHURN_LOG_LEVEL"
	EnvTestSize             = "CHURN_TEST_SIZE"
	EnvRandomState          = "CHURN_RANDOM_STATE"
	EnvCVFolds              = "CHURN_CV_FOLDS"
)

// Defaults
const (
	DefaultOutputPath  = "resource/preprocessed_data.csv"
	DefaultPlotPath    = "resource/feature_importance.png"
	DefaultLogLevel    = "info"
	DefaultTestSize    = 0.2
	DefaultRandomState = 42
	DefaultCVFolds     = 5
)

const (
	keyInputPath   = "input_path"
	keyOutputPath  = "output_path"
	keyPlotPath    = "plot_path"
	keyLogLevel    = "log_level"
	keyTestSize    = "test_size"
	keyRandomState = "random_state"
	keyCVFolds     = "cv_folds"
)

// Config holds every tunable of a pipeline run.
type Config struct {
	InputPath   string  `mapstructure:"input_path"`
	OutputPath  string  `mapstructure:"output_path"`
	PlotPath    string  `mapstructure:"plot_path"`
	LogLevel    string  `mapstructure:"log_level"`
	TestSize    float64 `mapstructure:"test_size"`
	RandomState int64   `mapstructure:"random_state"`
	CVFolds     int     `mapstructure:"cv_folds"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		OutputPath:  DefaultOutputPath,
		PlotPath:    DefaultPlotPath,
		LogLevel:    DefaultLogLevel,
		TestSize:    DefaultTestSize,
		RandomState: DefaultRandomState,
		CVFolds:     DefaultCVFolds,
	}
}

// Load resolves the configuration from v. Precedence is flags bound with
// BindFlags, then environment variables, then defaults.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(keyInputPath, d.InputPath)
	v.SetDefault(keyOutputPath, d.OutputPath)
	v.SetDefault(keyPlotPath, d.PlotPath)
	v.SetDefault(keyLogLevel, d.LogLevel)
	v.SetDefault(keyTestSize, d.TestSize)
	v.SetDefault(keyRandomState, d.RandomState)
	v.SetDefault(keyCVFolds, d.CVFolds)
}

func bindEnvVars(v *viper.Viper) error {
	bindings := [][2]string{
		{keyInputPath, EnvInputPath},
		{keyOutputPath, EnvPreprocessedDataPath},
		{keyPlotPath, EnvPlotPath},
		{keyLogLevel, EnvLogLevel},
		{keyTestSize, EnvTestSize},
		{keyRandomState, EnvRandomState},
		{keyCVFolds, EnvCVFolds},
	}
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return errors.Wrapf(err, "bind env %s", b[1])
		}
	}
	return nil
}

// BindFlags registers the command line flags on fs and binds them into v.
// Call it before fs.Parse; values are read lazily by Load.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	d := Default()
	fs.String("input", d.InputPath, "path of the raw purchase CSV")
	fs.String("output", d.OutputPath, "path of the preprocessed CSV snapshot")
	fs.String("plot", d.PlotPath, "path of the feature importance chart")
	fs.String("log-level", d.LogLevel, "log level (debug|info|warn|error)")
	fs.Float64("test-size", d.TestSize, "fraction of rows held out for testing")
	fs.Int64("random-state", d.RandomState, "seed of the train/test split and the model")
	fs.Int("cv", d.CVFolds, "number of cross-validation folds")

	flags := map[string]string{
		keyInputPath:   "input",
		keyOutputPath:  "output",
		keyPlotPath:    "plot",
		keyLogLevel:    "log-level",
		keyTestSize:    "test-size",
		keyRandomState: "random-state",
		keyCVFolds:     "cv",
	}
	for key, name := range flags {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return errors.Wrapf(err, "bind flag --%s", name)
		}
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize)
	}
	if c.CVFolds < 2 {
		return errors.NewValidationError("cv_folds", "must be at least 2", c.CVFolds)
	}
	if c.OutputPath == "" {
		return errors.NewValidationError("output_path", "must not be empty", c.OutputPath)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("log_level", fmt.Sprintf("unknown level %q", c.LogLevel), c.LogLevel)
	}
	return nil
}

// Level returns the parsed log level. Load has already validated it.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return lvl
}
