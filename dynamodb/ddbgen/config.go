package ddbgen

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/acksell/ddbsdl/dynamodb/infra"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigFile is the name LoadConfig searches for.
const ConfigFile = "ddbgen.yaml"

// Config holds the generation parameters of a project.
type Config struct {
	// Schema lists the SDL globs, relative to Dir.
	Schema []string     `mapstructure:"schema" validate:"required,min=1,dive,required"`
	Output OutputConfig `mapstructure:"output"`
	// DependenciesModulePath is the import path prefix of the runtime
	// packages the generated code imports.
	DependenciesModulePath        string `mapstructure:"dependenciesModulePath" validate:"required"`
	LegacyEmptyKeySegmentBehavior bool   `mapstructure:"legacyEmptyKeySegmentBehavior"`
	// DefaultTable holds the models without a @table directive. Empty makes
	// @table mandatory.
	DefaultTable                     string                `mapstructure:"defaultTable"`
	DefaultDispatcherAlarmThresholds infra.AlarmThresholds `mapstructure:"defaultDispatcherAlarmThresholds"`
	DefaultHandlerAlarmThresholds    infra.AlarmThresholds `mapstructure:"defaultHandlerAlarmThresholds"`
	Infra                            infra.Config          `mapstructure:"infra"`

	// Dir is the directory of the config file, or the working directory when
	// there is none. Relative paths resolve against it.
	Dir string `mapstructure:"-"`
}

type OutputConfig struct {
	// Dir receives the generated package, its mains under cmd/ and the
	// schema dump.
	Dir        string `mapstructure:"dir" validate:"required"`
	Package    string `mapstructure:"package" validate:"required"`
	ImportPath string `mapstructure:"importPath" validate:"required"`
}

// flagKeys maps the flags of RegisterFlags to config keys.
var flagKeys = map[string]string{
	"schema":                    "schema",
	"out":                       "output.dir",
	"package":                   "output.package",
	"import-path":               "output.importPath",
	"default-table":             "defaultTable",
	"legacy-empty-key-segments": "legacyEmptyKeySegmentBehavior",
}

// RegisterFlags adds the flags that override config keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringSlice("schema", nil, "SDL file globs")
	fs.String("out", "", "output directory of the generated package")
	fs.String("package", "", "name of the generated package")
	fs.String("import-path", "", "import path of the generated package")
	fs.String("default-table", "", "table of models without @table")
	fs.Bool("legacy-empty-key-segments", false, "keep empty key segments in place")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema", []string{"schema/*.graphql"})
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.package", "data")
	v.SetDefault("output.importPath", "")
	v.SetDefault("dependenciesModulePath", "github.com/acksell/ddbsdl")
	v.SetDefault("legacyEmptyKeySegmentBehavior", false)
	v.SetDefault("defaultTable", "")

	setAlarmDefaults(v, "defaultDispatcherAlarmThresholds", infra.DefaultDispatcherAlarms())
	setAlarmDefaults(v, "defaultHandlerAlarmThresholds", infra.DefaultHandlerAlarms())

	d := infra.DefaultConfig()
	v.SetDefault("infra.template", d.Template)
	v.SetDefault("infra.logRetentionDays", d.LogRetentionDays)
	v.SetDefault("infra.batchSize", d.BatchSize)
	v.SetDefault("infra.maximumRetryAttempts", d.MaximumRetryAttempts)
	v.SetDefault("infra.maximumEventAgeSeconds", d.MaximumEventAgeSeconds)
	v.SetDefault("infra.timeoutSeconds", d.TimeoutSeconds)
	v.SetDefault("infra.memoryMB", d.MemoryMB)
	v.SetDefault("infra.eventSourcePrefix", d.EventSourcePrefix)
	v.SetDefault("infra.eventBusName", d.EventBusName)
	v.SetDefault("infra.runtime", d.Runtime)
	v.SetDefault("infra.architecture", d.Architecture)
}

func setAlarmDefaults(v *viper.Viper, key string, t infra.AlarmThresholds) {
	v.SetDefault(key+".coldStarts", t.ColdStarts)
	v.SetDefault(key+".durationP99Ms", t.DurationP99Ms)
	v.SetDefault(key+".iteratorAgeMs", t.IteratorAgeMs)
	v.SetDefault(key+".memoryUtilizationPercent", t.MemoryUtilizationPercent)
	v.SetDefault(key+".dlqDepth", t.DLQDepth)
}

// LoadConfig reads the configuration from path, or from the nearest
// ddbgen.yaml above the working directory when path is empty. Environment
// variables prefixed DDBGEN_ override the file (DDBGEN_OUTPUT_DIR for
// output.dir) and changed flags of fs override both. fs may be nil.
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("DDBGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path == "" {
		path = findConfigFile()
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		dir = filepath.Dir(abs)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Dir = dir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks the decoded configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if !token.IsIdentifier(c.Output.Package) {
		return fmt.Errorf("invalid config: output.package %q is not a Go identifier", c.Output.Package)
	}
	return nil
}

// resolve makes p absolute against the config directory.
func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// findConfigFile searches for ddbgen.yaml walking up from the current
// directory.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
