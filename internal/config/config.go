// Package config threads explicit configuration structs through
// constructors instead of module-level singletons (design note §9).
package config

import (
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures ServerOrchestrator. CLI-sourced; see cmd/server.
type ServerConfig struct {
	BoardPath         string
	Host              string
	Port              string
	BroadcastInterval time.Duration
}

// ClientConfig configures ClientSession, read from the environment per
// spec.md §6. No config file is read: each value comes from its environment
// variable, or from the default below when the variable is unset.
type ClientConfig struct {
	WebSocketURL string

	ReconnectionEnabled            bool
	ReconnectionMaxAttempts        int
	ReconnectionRetryDelay         time.Duration
	ReconnectionExponentialBackoff bool
	ReconnectionMaxRetryDelay      time.Duration
}

// LoadClientConfig binds the WEBSOCKET_* environment variables named in
// spec.md §6, with the defaults spec.md §4.8 specifies.
func LoadClientConfig() ClientConfig {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("WEBSOCKET_URL", "ws://localhost:3000")
	v.SetDefault("WEBSOCKET_RECONNECTION_ENABLED", true)
	v.SetDefault("WEBSOCKET_RECONNECTION_MAX_ATTEMPTS", 5)
	v.SetDefault("WEBSOCKET_RECONNECTION_RETRY_DELAY", 1000)
	v.SetDefault("WEBSOCKET_RECONNECTION_EXPONENTIAL_BACKOFF", true)
	v.SetDefault("WEBSOCKET_RECONNECTION_MAX_RETRY_DELAY", 30000)

	return ClientConfig{
		WebSocketURL:                   v.GetString("WEBSOCKET_URL"),
		ReconnectionEnabled:            v.GetBool("WEBSOCKET_RECONNECTION_ENABLED"),
		ReconnectionMaxAttempts:        v.GetInt("WEBSOCKET_RECONNECTION_MAX_ATTEMPTS"),
		ReconnectionRetryDelay:         time.Duration(v.GetInt("WEBSOCKET_RECONNECTION_RETRY_DELAY")) * time.Millisecond,
		ReconnectionExponentialBackoff: v.GetBool("WEBSOCKET_RECONNECTION_EXPONENTIAL_BACKOFF"),
		ReconnectionMaxRetryDelay:      time.Duration(v.GetInt("WEBSOCKET_RECONNECTION_MAX_RETRY_DELAY")) * time.Millisecond,
	}
}
