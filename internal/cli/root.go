// Package cli implements the image-threshold command line.
package cli

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ironsheep/image-threshold/internal/config"
	"github.com/ironsheep/image-threshold/internal/imaging"
	"github.com/ironsheep/image-threshold/internal/threshold"
)

// BuildInfo is stamped into the binary by ldflags.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"epsilon":        config.KeyEpsilon,
	"max-iterations": config.KeyMaxIterations,
	"window-width":   config.KeyWindowWidth,
	"window-height":  config.KeyWindowHeight,
	"global-out":     config.KeyGlobalOut,
	"local-out":      config.KeyLocalOut,
	"language":       config.KeyOCRLanguage,
	"log-level":      config.KeyLogLevel,
	"gray":           config.KeyGray,
}

// app carries the state shared by one execution of the command tree.
type app struct {
	info    BuildInfo
	cfg     *config.Config
	cfgFile string
	envFile string
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree, so tests can execute commands without shared state.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{info: info}

	root := &cobra.Command{
		Use:   "image-threshold",
		Short: "Binarize grayscale images with global and local thresholds",
		Long: `image-threshold converts images to black and white.

The global method finds one threshold for the whole image by iterative
mean-splitting. The local method compares every pixel with the mean of a
window centred on it, which copes with uneven illumination.

Parameters are read from flags, IMAGE_THRESHOLD_* environment variables,
a .env file and $HOME/.image-threshold.yaml, in that order of precedence.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is $HOME/.image-threshold.yaml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment")
	pf.String("log-level", "info", "log level: info or debug")

	root.AddCommand(
		a.binarizeCommand(),
		a.globalCommand(),
		a.localCommand(),
		a.ocrCommand(),
		a.serveCommand(),
		a.versionCommand(),
	)
	return root
}

// setup resolves the configuration for the command being run and
// configures logging.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	v := viper.New()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	envRequired := cmd.Flags().Changed("env-file")
	cfg, used, err := config.Load(v, config.Options{
		ConfigFile:      a.cfgFile,
		EnvFile:         a.envFile,
		EnvFileRequired: envRequired,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	// stdout may carry MCP traffic or results, so logs go to stderr
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if cfg.Debug() {
		log.Printf("image-threshold %s (built %s, commit %s)", a.info.Version, a.info.BuildTime, a.info.GitCommit)
		if used != "" {
			log.Printf("using config file: %s", used)
		}
		log.Printf("config: %+v", *cfg)
	}
	return nil
}

// bindFlags binds every flag of fs that overrides a config key.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("failed to bind --%s to %s: %w", f.Name, key, bindErr)
		}
	})
	return err
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.Float64("epsilon", 1.0, "convergence tolerance of the global threshold")
	fs.Int("max-iterations", threshold.DefaultMaxIterations, "refinement steps before the global threshold gives up")
}

func addLocalFlags(fs *pflag.FlagSet) {
	fs.Int("window-width", 51, "local neighborhood width in pixels (even values are raised to odd)")
	fs.Int("window-height", 51, "local neighborhood height in pixels (even values are raised to odd)")
}

func addGrayFlag(fs *pflag.FlagSet) {
	fs.String("gray", string(imaging.Luma), "gray conversion of color inputs: luma or lightness")
}

func addInputFlags(fs *pflag.FlagSet, region *string) {
	fs.StringVar(region, "region", "", "binarize only the region x1,y1,x2,y2 (x2,y2 exclusive)")
	addGrayFlag(fs)
}

// loadInput decodes path to grayscale and crops it to region when given.
func (a *app) loadInput(path, region string) (*imaging.Buffer, error) {
	buf, err := imaging.LoadFileAs(path, a.cfg.Conversion())
	if err != nil {
		return nil, err
	}
	if region == "" {
		return buf, nil
	}
	r, err := parseRegion(region)
	if err != nil {
		return nil, err
	}
	if a.cfg.Debug() {
		log.Printf("cropping %s to %+v", path, r)
	}
	return imaging.Crop(buf, r)
}

// parseRegion parses "x1,y1,x2,y2".
func parseRegion(s string) (imaging.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return imaging.Region{}, fmt.Errorf("invalid region %q: want x1,y1,x2,y2", s)
	}

	var vals [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return imaging.Region{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		vals[i] = n
	}
	return imaging.Region{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}, nil
}

// save writes buf to path, warning when the format cannot keep it binary.
func save(buf *imaging.Buffer, path string) error {
	if imaging.IsLossyPath(path) {
		log.Printf("warning: %s uses a lossy format, the saved image will not be strictly binary", path)
	}
	return imaging.Save(buf, path)
}
