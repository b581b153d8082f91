// Package config loads the ushell-mcpd server configuration.
package config

// Config is the root configuration for the unified-shell MCP server,
// a flat field set matching SPEC_FULL.md §6's documented config-file
// schema (port, max_clients, catalog_path, audit_log_path,
// idle_timeout_seconds, max_message_bytes).
type Config struct {
	Host               string  `json:"host"`
	Port               int     `json:"port"`
	MaxClients         int     `json:"max_clients"`
	IdleTimeoutSeconds int     `json:"idle_timeout_seconds"`
	MaxMessageBytes    int     `json:"max_message_bytes"`
	RateLimitPerSecond float64 `json:"rate_limit_per_second"`
	RateLimitBurst     int     `json:"rate_limit_burst"`
	CatalogPath        string  `json:"catalog_path"`
	AuditLogPath       string  `json:"audit_log_path,omitempty"`
}
