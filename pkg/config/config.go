package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when given, otherwise the DefaultConfigFile in
// dir if one exists, otherwise the defaults.
func LoadOrDefault(ctx context.Context, path, dir string) (*Config, error) {
	if path != "" {
		return Load(ctx, path)
	}

	candidate := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(candidate); err == nil {
		return Load(ctx, candidate)
	}

	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks a configuration for errors and fills in defaults for
// unset durations and sizes.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Engine) == "" {
		return errors.New("engine: an engine command is required")
	}

	if strings.TrimSpace(cfg.BibTeX) == "" {
		return errors.New("bibtex: a bibliography command is required")
	}

	if cfg.Reruns < 0 || cfg.Reruns > MaxReruns {
		return fmt.Errorf("reruns: must be between 0 and %d, got %d", MaxReruns, cfg.Reruns)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.PNGResolution <= 0 {
		cfg.PNGResolution = DefaultPNGResolution
	}

	for i, suffix := range cfg.Clean {
		if err := validateCleanSuffix(suffix); err != nil {
			return fmt.Errorf("clean[%d] (%s): %w", i, suffix, err)
		}
	}

	if err := validateWatch(&cfg.Watch); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateCleanSuffix(suffix string) error {
	if !strings.HasPrefix(suffix, ".") {
		return errors.New("suffix must start with '.'")
	}
	if strings.ContainsAny(suffix, `/\`) {
		return errors.New("suffix must not contain path separators")
	}
	if _, err := filepath.Match(suffix, ""); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	return nil
}

func validateWatch(w *WatchConfig) error {
	if w.Debounce <= 0 {
		w.Debounce = DefaultDebounce
	}

	if len(w.Extensions) == 0 {
		return errors.New("extensions: at least one extension is required")
	}
	for i, ext := range w.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extensions[%d]: %q must look like \".tex\"", i, ext)
		}
	}
	return nil
}

// ValidateWebhook checks a webhook and fills in its default trigger and
// timeout. Tokens given as ${VAR} or $VAR are expanded.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnErrors
	case WebhookTriggerOnErrors, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_errors, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands a token given as ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}
