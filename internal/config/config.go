package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultPollInterval  = 15 * time.Minute
	defaultRetention     = 168 * time.Hour
	defaultClockDuration = time.Hour
	defaultHTTPTimeout   = 10 * time.Second
	defaultHypixelPerMin = 60
	defaultWebhookPerSec = 2
)

// Durations holds the parsed duration fields with defaults applied.
type Durations struct {
	PollInterval   time.Duration
	Retention      time.Duration
	ClockDuration  time.Duration
	HypixelTimeout time.Duration
	WebhookTimeout time.Duration
}

// Parse reads and strictly decodes the config file without applying
// environment overrides or validation.
func Parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, err := toJSON(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// Load parses the config file, overlays secrets from the environment and
// validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envSecrets are read as FORGEWATCH_HYPIXEL_API_KEY / FORGEWATCH_WEBHOOK_URL,
// falling back to the bare HYPIXEL_API_KEY / WEBHOOK_URL names.
type envSecrets struct {
	HypixelAPIKey string `envconfig:"HYPIXEL_API_KEY"`
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
}

func (c *Config) applyEnv() error {
	var s envSecrets
	if err := envconfig.Process("forgewatch", &s); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	if s.HypixelAPIKey != "" {
		c.Hypixel.APIKey = s.HypixelAPIKey
	}
	if s.WebhookURL != "" {
		c.Webhook.URL = s.WebhookURL
	}
	return nil
}

// Validate checks required fields and rejects malformed duration strings.
// The webhook URL is not required: without one the daemon still tracks and
// records, it just cannot deliver.
func (c *Config) Validate() error {
	if c.Hypixel.APIKey == "" {
		return errors.New("hypixel api key missing (set hypixel.api_key or HYPIXEL_API_KEY)")
	}
	if c.Stores.Registrations == "" {
		return errors.New("stores.registrations: path required")
	}
	if c.Stores.ClockUsage == "" {
		return errors.New("stores.clock_usage: path required")
	}
	if c.Stores.History.Path == "" {
		return errors.New("stores.history.path: path required")
	}
	if c.Stores.Catalog == "" {
		return errors.New("stores.catalog: path required")
	}
	_, err := c.Durations()
	return err
}

// Durations parses every duration field, applying defaults where omitted.
func (c *Config) Durations() (Durations, error) {
	var d Durations
	var err error
	if d.PollInterval, err = durationOrDefault("poll.interval", c.Poll.Interval, defaultPollInterval); err != nil {
		return d, err
	}
	if d.Retention, err = durationOrDefault("poll.retention", c.Poll.Retention, defaultRetention); err != nil {
		return d, err
	}
	if d.ClockDuration, err = durationOrDefault("clock.duration", c.Clock.Duration, defaultClockDuration); err != nil {
		return d, err
	}
	if d.HypixelTimeout, err = durationOrDefault("hypixel.timeout", c.Hypixel.Timeout, defaultHTTPTimeout); err != nil {
		return d, err
	}
	if d.WebhookTimeout, err = durationOrDefault("webhook.timeout", c.Webhook.Timeout, defaultHTTPTimeout); err != nil {
		return d, err
	}
	return d, nil
}

// HypixelRatePerMin returns the request budget with the default applied.
func (c *Config) HypixelRatePerMin() int {
	if c.Hypixel.RatePerMin > 0 {
		return c.Hypixel.RatePerMin
	}
	return defaultHypixelPerMin
}

// WebhookRatePerSec returns the delivery budget with the default applied.
func (c *Config) WebhookRatePerSec() int {
	if c.Webhook.RatePerSec > 0 {
		return c.Webhook.RatePerSec
	}
	return defaultWebhookPerSec
}
