// Package config loads the thresholding parameters from defaults, an optional
// YAML/JSON/TOML config file, a .env file, environment variables and command
// line flags.
//
// Precedence, highest first: explicitly set flags, environment variables
// (prefix IMAGE_THRESHOLD_, dots replaced by underscores), the config file,
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/ironsheep/image-threshold/internal/imaging"
	"github.com/ironsheep/image-threshold/internal/threshold"
)

const (
	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "IMAGE_THRESHOLD"

	// ConfigName is the config file searched for in the home directory
	// (without extension).
	ConfigName = ".image-threshold"
)

// Viper keys.
const (
	KeyEpsilon       = "global.epsilon"
	KeyMaxIterations = "global.max_iterations"
	KeyWindowWidth   = "local.window_width"
	KeyWindowHeight  = "local.window_height"
	KeyGlobalOut     = "output.global"
	KeyLocalOut      = "output.local"
	KeyOCRLanguage   = "ocr.language"
	KeyLogLevel      = "log.level"
	KeyGray          = "input.gray"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved configuration.
type Config struct {
	Input  InputConfig  `mapstructure:"input"`
	Global GlobalConfig `mapstructure:"global"`
	Local  LocalConfig  `mapstructure:"local"`
	Output OutputConfig `mapstructure:"output"`
	OCR    OCRConfig    `mapstructure:"ocr"`
	Log    LogConfig    `mapstructure:"log"`
}

// InputConfig controls how input images are reduced to grayscale.
type InputConfig struct {
	// Gray is "luma" (BT.601) or "lightness" (CIE L*).
	Gray string `mapstructure:"gray"`
}

// GlobalConfig holds the iterative global threshold parameters.
type GlobalConfig struct {
	Epsilon       float64 `mapstructure:"epsilon"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

// LocalConfig holds the neighborhood size of the local threshold.
type LocalConfig struct {
	WindowWidth  int `mapstructure:"window_width"`
	WindowHeight int `mapstructure:"window_height"`
}

// OutputConfig names the files written by the binarize command.
type OutputConfig struct {
	Global string `mapstructure:"global"`
	Local  string `mapstructure:"local"`
}

// OCRConfig configures Tesseract scoring.
type OCRConfig struct {
	Language string `mapstructure:"language"`
}

// LogConfig configures logging. Level is "info" or "debug".
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyEpsilon, 1.0)
	v.SetDefault(KeyMaxIterations, threshold.DefaultMaxIterations)
	v.SetDefault(KeyWindowWidth, 51)
	v.SetDefault(KeyWindowHeight, 51)
	v.SetDefault(KeyGlobalOut, "global_binary.png")
	v.SetDefault(KeyLocalOut, "local_binary.png")
	v.SetDefault(KeyOCRLanguage, "eng")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyGray, string(imaging.Luma))
}

// Options selects the optional sources read by Load.
type Options struct {
	// ConfigFile is an explicit config file. When empty, ConfigName is
	// looked up in the home directory and its absence is not an error.
	ConfigFile string

	// EnvFile is a dotenv file loaded into the process environment before
	// the environment is read. A missing file is ignored unless
	// EnvFileRequired is set.
	EnvFile         string
	EnvFileRequired bool
}

// Load reads every configuration source into v and returns the validated
// result. Flags must already be bound to v.
func Load(v *viper.Viper, opts Options) (*Config, string, error) {
	SetDefaults(v)

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			if opts.EnvFileRequired || !errors.Is(err, os.ErrNotExist) {
				return nil, "", fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	used, err := readConfigFile(v, opts.ConfigFile)
	if err != nil {
		return nil, "", err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

func readConfigFile(v *viper.Viper, file string) (string, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		return v.ConfigFileUsed(), nil
	}

	home, err := homedir.Dir()
	if err != nil {
		// No home directory means no default config file.
		return "", nil
	}
	v.AddConfigPath(home)
	v.SetConfigName(ConfigName)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Validate rejects parameters the thresholders cannot use. Epsilon may be
// zero (the iteration cap still bounds the loop) but not negative or NaN.
func (c *Config) Validate() error {
	if math.IsNaN(c.Global.Epsilon) || math.IsInf(c.Global.Epsilon, 0) || c.Global.Epsilon < 0 {
		return fmt.Errorf("%w: epsilon must be a finite number >= 0, got %v", ErrInvalidConfig, c.Global.Epsilon)
	}
	if c.Global.MaxIterations < 0 {
		return fmt.Errorf("%w: max_iterations must be >= 0, got %d", ErrInvalidConfig, c.Global.MaxIterations)
	}
	if _, err := threshold.NewWindow(c.Local.WindowWidth, c.Local.WindowHeight); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := imaging.ParseConversion(c.Input.Gray); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "info", "debug":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}

// GlobalOptions converts the config into threshold.GlobalOptions.
func (c *Config) GlobalOptions() threshold.GlobalOptions {
	return threshold.GlobalOptions{
		Epsilon:       c.Global.Epsilon,
		MaxIterations: c.Global.MaxIterations,
	}
}

// LocalOptions converts the config into threshold.LocalOptions.
func (c *Config) LocalOptions() threshold.LocalOptions {
	return threshold.LocalOptions{
		WindowWidth:  c.Local.WindowWidth,
		WindowHeight: c.Local.WindowHeight,
	}
}

// Conversion returns the configured gray conversion, Luma when unset or
// invalid. Validate reports invalid names.
func (c *Config) Conversion() imaging.Conversion {
	conv, err := imaging.ParseConversion(c.Input.Gray)
	if err != nil {
		return imaging.Luma
	}
	return conv
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Log.Level, "debug")
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}
