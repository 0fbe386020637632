// Package config provides configuration loading and validation for texrun.
package config

import "time"

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Engine is the TeX engine binary (pdflatex, xelatex, lualatex).
	Engine string `yaml:"engine"`

	// EngineOptions are passed to the engine before the target file.
	EngineOptions string `yaml:"engine_options"`

	// BibTeX is the bibliography processor binary.
	BibTeX string `yaml:"bibtex"`

	// Reruns is how many times the engine runs again after the
	// bibliography step to settle cross-references.
	Reruns int `yaml:"reruns"`

	// Timeout bounds each external command.
	Timeout time.Duration `yaml:"timeout"`

	// Clean lists the suffixes, appended to the job name, of auxiliary
	// files removed before and after a build. Glob characters are allowed.
	Clean []string `yaml:"clean"`

	CropCommand   string `yaml:"crop_command"`
	PNGCommand    string `yaml:"png_command"`
	PNGResolution int    `yaml:"png_resolution"`

	Watch    WatchConfig     `yaml:"watch"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// WatchConfig controls rebuilds on file changes.
type WatchConfig struct {
	// Debounce is how long to wait for a burst of events to settle.
	Debounce time.Duration `yaml:"debounce"`

	// Extensions lists the file extensions that trigger a rebuild.
	Extensions []string `yaml:"extensions"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnErrors fires only when a build reports errors (default).
	WebhookTriggerOnErrors WebhookTrigger = "on_errors"
	// WebhookTriggerAlways fires after every build.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for build reports.
type WebhookConfig struct {
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `yaml:"token,omitempty"`

	// Trigger defaults to "on_errors".
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
