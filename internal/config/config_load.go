package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with the spec's literal defaults.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               9000,
		MaxClients:         10,
		IdleTimeoutSeconds: 60,
		MaxMessageBytes:    16 * 1024,
		RateLimitPerSecond: 5,
		RateLimitBurst:     5,
		CatalogPath:        "aiIntegr/commands.json",
	}
}

// Load reads config from a JSON5 file (comments and trailing commas
// tolerated), then overlays environment variables. A missing file is not
// an error — Default() plus env overrides is a valid configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays recognized environment variables. Env vars
// take precedence over file values, matching the teacher's Load convention.
// $USHELL_MCP_AUDIT_LOG is the exception: it is not applied here, and
// AuditPath falls back to it only when the file leaves audit_log_path unset.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("USHELL_MCP_CATALOG"); v != "" {
		c.CatalogPath = v
	}
	if v := os.Getenv("USHELL_MCP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
	if v := os.Getenv("USHELL_MCP_MAX_CLIENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxClients = n
		}
	}
}

// AuditPath resolves the effective audit log path: the config file value
// if set, else $USHELL_MCP_AUDIT_LOG, else "" (logging disabled).
func (c *Config) AuditPath() string {
	if c.AuditLogPath != "" {
		return c.AuditLogPath
	}
	return os.Getenv("USHELL_MCP_AUDIT_LOG")
}
