// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"cors-proxy-go/internal/rules"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/cors-proxy/config.toml",
	"configs/config.toml",
}

// CLI holds the cors-proxy command-line arguments parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host     string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port     int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// StaticCLI holds the static-server command-line arguments parsed by Kong.
type StaticCLI struct {
	Config    string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Dir       string `kong:"short='d',help='Directory to serve (overrides config).',env='STATIC_DIR'"`
	Host      string `kong:"help='Listen host (overrides config).',env='HOST'"`
	StartPort int    `kong:"short='p',help='First port to try (overrides config).',env='START_PORT'"`
	Index     string `kong:"help='Index file opened in the browser (overrides config).'"`
	NoBrowser bool   `kong:"help='Do not open a browser after start.'"`
	LogLevel  string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration, shared by both binaries.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Rules    []RuleConfig   `toml:"rules"`
	Static   StaticConfig   `toml:"static"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath   string   // resolved config file path (unexported)
	missingEnv []string // env vars referenced by rules but unset
}

// ServerConfig holds HTTP server settings for the relay.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (8001); TOML cannot distinguish 0 from unset
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// UpstreamConfig holds outbound connection settings.
type UpstreamConfig struct {
	TimeoutSeconds     int      `toml:"timeout_seconds"`
	IdleConnections    int      `toml:"idle_connections"`
	InsecureSkipVerify bool     `toml:"insecure_skip_verify"`
	AllowedHosts       []string `toml:"allowed_hosts"` // empty means any host
	UserAgent          string   `toml:"user_agent"`
}

// RuleConfig is one header-injection rule as written in the config file.
// Header values may reference environment variables as ${VAR}; references
// to unset variables fail validation.
type RuleConfig struct {
	Match   string            `toml:"match"`
	Headers map[string]string `toml:"headers"`
}

// StaticConfig holds static file server settings.
type StaticConfig struct {
	Dir          string `toml:"dir"`
	Host         string `toml:"host"`
	StartPort    int    `toml:"start_port"`
	PortAttempts int    `toml:"port_attempts"`
	Index        string `toml:"index"`
	NoBrowser    bool   `toml:"no_browser"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies cors-proxy CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/cors-proxy/config.toml then configs/config.toml. A .env file in the
// working directory is loaded first so rule values can reference it.
func Load(cli *CLI) (*Config, error) {
	cfg, err := loadFile(cli.Config)
	if err != nil {
		return nil, err
	}

	if cli.Host != "" {
		cfg.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		cfg.Server.Port = cli.Port
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return cfg, nil
}

// LoadStatic reads the TOML config file and applies static-server CLI overrides.
func LoadStatic(cli *StaticCLI) (*Config, error) {
	cfg, err := loadFile(cli.Config)
	if err != nil {
		return nil, err
	}

	if cli.Dir != "" {
		cfg.Static.Dir = cli.Dir
	}
	if cli.Host != "" {
		cfg.Static.Host = cli.Host
	}
	if cli.StartPort != 0 {
		cfg.Static.StartPort = cli.StartPort
	}
	if cli.Index != "" {
		cfg.Static.Index = cli.Index
	}
	if cli.NoBrowser {
		cfg.Static.NoBrowser = true
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return cfg, nil
}

// loadFile resolves, reads and parses the config file and expands rule
// header values from the environment.
func loadFile(path string) (*Config, error) {
	// Best effort: a missing .env is not an error.
	_ = godotenv.Load()

	if path == "" {
		path = findConfigInPaths(configSearchPaths)
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cfg.expandRuleValues()
	return &cfg, nil
}

// expandRuleValues substitutes ${VAR} references in rule header values with
// environment values, recording references to unset variables for validate.
func (c *Config) expandRuleValues() {
	seen := make(map[string]bool)
	for i := range c.Rules {
		for k, v := range c.Rules[i].Headers {
			c.Rules[i].Headers[k] = os.Expand(v, func(name string) string {
				val, ok := os.LookupEnv(name)
				if !ok && !seen[name] {
					seen[name] = true
					c.missingEnv = append(c.missingEnv, name)
				}
				return val
			})
		}
	}
}

func (c *Config) validate() error {
	if len(c.missingEnv) > 0 {
		return fmt.Errorf("rules reference unset environment variables: %s", strings.Join(c.missingEnv, ", "))
	}

	for i, r := range c.Rules {
		if r.Match == "" {
			return fmt.Errorf("rules[%d].match must not be empty", i)
		}
	}

	for _, h := range c.Upstream.AllowedHosts {
		if h == "" {
			return fmt.Errorf("upstream.allowed_hosts must not contain empty entries")
		}
		if u, err := url.Parse("https://" + h); err != nil || u.Hostname() != h {
			return fmt.Errorf("upstream.allowed_hosts entry %q is not a plain hostname", h)
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Static.StartPort < 0 || c.Static.StartPort > 65535 {
		return fmt.Errorf("static.start_port must be 0–65535; got %d", c.Static.StartPort)
	}
	if c.Static.PortAttempts < 0 {
		return fmt.Errorf("static.port_attempts must be non-negative; got %d", c.Static.PortAttempts)
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		if p == "/" {
			return fmt.Errorf("metrics.path %q conflicts with the relay route", p)
		}
		for _, reserved := range []string{"/healthz", "/proxy/status"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, TimeoutSeconds, etc.), zero means "unset" because
// TOML cannot distinguish between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8001
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 1024 * 1024 // 1 MB; the relay only accepts GET and OPTIONS
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 10
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = "cors-proxy-go/1.0"
	}
	if c.Static.Dir == "" {
		c.Static.Dir = "public"
	}
	if c.Static.Host == "" {
		c.Static.Host = "127.0.0.1"
	}
	if c.Static.StartPort == 0 {
		c.Static.StartPort = 3000
	}
	if c.Static.PortAttempts == 0 {
		c.Static.PortAttempts = 100
	}
	if c.Static.Index == "" {
		c.Static.Index = "index.html"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// RuleSet builds the ordered header-injection rule set from the config.
func (c *Config) RuleSet() (*rules.Set, error) {
	rs := make([]rules.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rs = append(rs, rules.Rule{Match: r.Match, Headers: r.Headers})
	}
	return rules.NewSet(rs, c.Upstream.UserAgent)
}

// Addr returns the relay listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or
// others. Rule headers may carry API keys, so treat the file like a secret.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}

// WarnInsecure logs a prominent warning when outbound TLS verification is
// disabled. The flag exists for local development only.
func (c *Config) WarnInsecure(logger *slog.Logger) {
	if c.Upstream.InsecureSkipVerify {
		logger.Warn("outbound TLS certificate verification is DISABLED; do not use this setting outside local development")
	}
}
