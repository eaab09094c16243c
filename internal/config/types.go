package config

// Config is the daemon configuration. It loads from a JSON or YAML file;
// both formats go through the same strict decoder, so unknown keys are
// rejected early instead of being silently ignored.
//
// All durations are Go duration strings (e.g. "30s", "15m", "168h").
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Poll    PollConfig    `json:"poll"`
	Clock   ClockConfig   `json:"clock"`
	Stores  StoresConfig  `json:"stores"`
	Hypixel HypixelConfig `json:"hypixel"`
	Webhook WebhookConfig `json:"webhook"`
	Pprof   PprofConfig   `json:"pprof,omitempty"`
}

// PprofConfig controls the optional profiling listener. Binding to a
// non-loopback address requires a token.
type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`  // default "127.0.0.1:6060"
	Token   string `json:"token,omitempty"` // do not log
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// PollConfig controls the scan cycle.
type PollConfig struct {
	// Interval between scans. Default "15m".
	Interval string `json:"interval"`
	// Retention bounds how long delivered notifications are remembered.
	// Default "168h" (seven days).
	Retention string `json:"retention,omitempty"`
}

// ClockConfig controls the flat time-reduction buff.
type ClockConfig struct {
	// Duration each activation stays in effect. Default "1h".
	Duration string `json:"duration,omitempty"`
}

// StoresConfig names the persistence files.
type StoresConfig struct {
	Registrations string        `json:"registrations"`
	ClockUsage    string        `json:"clock_usage"`
	Catalog       string        `json:"catalog"`
	History       HistoryConfig `json:"history"`
}

// HistoryConfig selects the notification-history driver.
//
// Example:
//
//	"history": { "driver": "file", "path": "./forge_notifications.json" }
type HistoryConfig struct {
	Driver string `json:"driver,omitempty"` // "file" (default) or "sqlite"
	Path   string `json:"path"`
}

type HypixelConfig struct {
	// APIKey may be left empty here and supplied via HYPIXEL_API_KEY instead;
	// the environment always wins. Do not log.
	APIKey     string `json:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
	Timeout    string `json:"timeout,omitempty"`      // default "10s"
	RatePerMin int    `json:"rate_per_min,omitempty"` // default 60
}

type WebhookConfig struct {
	// URL may be left empty here and supplied via WEBHOOK_URL instead;
	// the environment always wins. Do not log.
	URL        string `json:"url,omitempty"`
	Timeout    string `json:"timeout,omitempty"`      // default "10s"
	RatePerSec int    `json:"rate_per_sec,omitempty"` // default 2
}
