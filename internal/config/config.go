// Package config loads the site configuration using Viper from a YAML file,
// SITEFORGE_ environment variables and command-line flags.
//
// When nothing is configured the defaults describe a conventional static
// site: sources under src, output in _site, CSS and JS bundles minified by
// csso and terser when those tools are installed, src/css and src/js
// watched, and the usual favicon set copied if present.
package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// Config is the full site configuration.
type Config struct {
	Input    string `mapstructure:"input" yaml:"input"`
	Output   string `mapstructure:"output" yaml:"output"`
	Includes string `mapstructure:"includes" yaml:"includes"`
	Data     string `mapstructure:"data" yaml:"data"`

	Copy []CopyConfig `mapstructure:"copy" yaml:"copy"`
	// OptionalStatic names files under Input copied to the output root only
	// when they exist.
	OptionalStatic []string                   `mapstructure:"optional_static" yaml:"optional_static"`
	Bundles        []BundleConfig             `mapstructure:"bundles" yaml:"bundles"`
	Transforms     map[string]TransformConfig `mapstructure:"transforms" yaml:"transforms"`
	Watch          []string                   `mapstructure:"watch" yaml:"watch"`
	PostTransforms []PostTransformConfig      `mapstructure:"post_transforms" yaml:"post_transforms"`
	Filters        FiltersConfig              `mapstructure:"filters" yaml:"filters"`
	Build          BuildConfig                `mapstructure:"build" yaml:"build"`
}

type CopyConfig struct {
	Source      string `mapstructure:"source" yaml:"source"`
	Destination string `mapstructure:"destination" yaml:"destination"`
	Optional    bool   `mapstructure:"optional" yaml:"optional,omitempty"`
}

type BundleConfig struct {
	ID         string   `mapstructure:"id" yaml:"id"`
	Output     string   `mapstructure:"output" yaml:"output"`
	Sources    []string `mapstructure:"sources" yaml:"sources"`
	Transforms []string `mapstructure:"transforms" yaml:"transforms"`
	// Fallback is abort, skip-unavailable or passthrough.
	Fallback string `mapstructure:"fallback" yaml:"fallback,omitempty"`
	// Optional drops the bundle when none of its sources exist.
	Optional bool `mapstructure:"optional" yaml:"optional,omitempty"`
}

// TransformConfig declares an external command used as a bundle transform.
// Content is piped to stdin and read back from stdout.
type TransformConfig struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args,omitempty"`
}

type PostTransformConfig struct {
	AppliesTo string `mapstructure:"applies_to" yaml:"applies_to"`
	Rewrite   string `mapstructure:"rewrite" yaml:"rewrite"`
}

type FiltersConfig struct {
	Strict    bool `mapstructure:"strict" yaml:"strict"`
	CacheSize int  `mapstructure:"cache_size" yaml:"cache_size"`
}

type BuildConfig struct {
	Concurrency int  `mapstructure:"concurrency" yaml:"concurrency"`
	Clean       bool `mapstructure:"clean" yaml:"clean"`
}

// DefaultStaticFiles is copied to the output root whenever present in the
// input directory.
var DefaultStaticFiles = []string{
	"favicon.ico",
	"apple-touch-icon.png",
	"favicon-32x32.png",
	"favicon-16x16.png",
	"safari-pinned-tab.svg",
	"android-chrome-192x192.png",
	"android-chrome-256x256.png",
	"browserconfig.xml",
	"site.webmanifest",
}

// SetDefaults registers scalar defaults on v so environment overrides
// resolve even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", "src")
	v.SetDefault("output", "_site")
	v.SetDefault("includes", "_includes")
	v.SetDefault("data", "_data")
	v.SetDefault("filters.strict", false)
	v.SetDefault("filters.cache_size", 256)
	v.SetDefault("build.concurrency", runtime.NumCPU())
	v.SetDefault("build.clean", false)
}

// Load reads the configuration held by the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration held by v, fills defaults and validates
// the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	applyDefaults(v, &config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	cfg, err := LoadFrom(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

func applyDefaults(v *viper.Viper, config *Config) {
	if !v.IsSet("copy") {
		for _, dir := range []string{"css", "images", "js", "svg"} {
			config.Copy = append(config.Copy, CopyConfig{
				Source:      config.Input + "/" + dir,
				Destination: "assets/" + dir,
				Optional:    true,
			})
		}
	}

	if !v.IsSet("optional_static") {
		config.OptionalStatic = append([]string(nil), DefaultStaticFiles...)
	}

	if !v.IsSet("transforms") {
		config.Transforms = map[string]TransformConfig{
			"csso":   {Command: "csso"},
			"terser": {Command: "terser", Args: []string{"--compress", "--mangle"}},
		}
	}
	if config.Transforms == nil {
		config.Transforms = make(map[string]TransformConfig)
	}

	if !v.IsSet("bundles") {
		config.Bundles = []BundleConfig{
			{
				ID:         "css",
				Output:     "assets/css/bundle.css",
				Sources:    []string{config.Input + "/css/*.css"},
				Transforms: []string{"csso"},
				Fallback:   "skip-unavailable",
				Optional:   true,
			},
			{
				ID:         "js",
				Output:     "assets/js/bundle.js",
				Sources:    []string{config.Input + "/js/*.js"},
				Transforms: []string{"terser"},
				Fallback:   "skip-unavailable",
				Optional:   true,
			},
		}
	}

	if !v.IsSet("watch") {
		config.Watch = []string{config.Input + "/css", config.Input + "/js"}
	}

	if config.Build.Concurrency < 1 {
		config.Build.Concurrency = runtime.NumCPU()
	}
	if config.Filters.CacheSize < 1 {
		config.Filters.CacheSize = 256
	}
}
