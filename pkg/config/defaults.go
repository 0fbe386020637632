package config

import (
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultConfigFile     = ".texrun.yaml"
	DefaultEngine         = "pdflatex"
	DefaultEngineOptions  = "-shell-escape -halt-on-error"
	DefaultBibTeX         = "bibtex"
	DefaultReruns         = 2
	DefaultTimeout        = 5 * time.Minute
	DefaultCropCommand    = "pdfcrop"
	DefaultPNGCommand     = "pdftoppm"
	DefaultPNGResolution  = 300
	DefaultDebounce       = 300 * time.Millisecond
	DefaultWebhookTimeout = 10 * time.Second

	// MaxReruns guards against configurations that would loop the engine.
	MaxReruns = 10
)

// Environment variable names.
const (
	EnvEngine        = "TEXRUN_ENGINE"
	EnvEngineOptions = "TEXRUN_ENGINE_OPTIONS"
)

// DefaultClean returns the auxiliary file suffixes removed around a build.
func DefaultClean() []string {
	return []string{".aux", ".log", ".blg", ".bbl", ".out", ".pyg", ".toc", ".snm", ".nav", ".*.vrb"}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine:        DefaultEngine,
		EngineOptions: DefaultEngineOptions,
		BibTeX:        DefaultBibTeX,
		Reruns:        DefaultReruns,
		Timeout:       DefaultTimeout,
		Clean:         DefaultClean(),
		CropCommand:   DefaultCropCommand,
		PNGCommand:    DefaultPNGCommand,
		PNGResolution: DefaultPNGResolution,
		Watch: WatchConfig{
			Debounce:   DefaultDebounce,
			Extensions: []string{".tex", ".bib"},
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if engine := os.Getenv(EnvEngine); engine != "" {
		c.Engine = engine
	}
	if opts, ok := os.LookupEnv(EnvEngineOptions); ok {
		c.EngineOptions = opts
	}
}
