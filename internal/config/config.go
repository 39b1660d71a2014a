// Package config loads the handful of options tracecore needs, layering an
// optional YAML file (lowest precedence) under pflag-bound CLI flags
// (highest precedence), per SPEC_FULL.md §7.2.
package config

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// Options is the full set of user-configurable knobs.
type Options struct {
	BaseImage string `yaml:"base_image"`
	OutDir    string `yaml:"out_dir"`
	Verbose   bool   `yaml:"verbose"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the built-in fallback values, used before any file or
// flag is applied.
func Defaults() Options {
	return Options{
		BaseImage: "scratch",
		OutDir:    "./tracecore-out",
		Verbose:   false,
		LogFormat: "text",
	}
}

// LoadFile merges a YAML config file's fields into opt, overwriting only
// the fields the file actually sets (a missing path is not an error: an
// optional --config flag the user didn't pass).
func LoadFile(opt *Options, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, opt)
}

// BindFlags registers --base-image/--out/--verbose/--log-format/--config on
// fs, defaulting each to opt's current value so file-then-flag layering
// works regardless of flag parse order: Defaults() -> LoadFile() ->
// BindFlags() -> fs.Parse().
func BindFlags(fs *pflag.FlagSet, opt *Options, configPath *string) {
	fs.StringVar(&opt.BaseImage, "base-image", opt.BaseImage, "base image for the generated Dockerfile's FROM line")
	fs.StringVar(&opt.OutDir, "out", opt.OutDir, "output directory for trace")
	fs.BoolVarP(&opt.Verbose, "verbose", "v", opt.Verbose, "enable debug-level logging of every decoded syscall")
	fs.StringVar(&opt.LogFormat, "log-format", opt.LogFormat, `log output format, "text" or "json"`)
	fs.StringVar(configPath, "config", "", "optional YAML file of option defaults")
}
