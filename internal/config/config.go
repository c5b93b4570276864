// Package config loads the server and client's process configuration:
// a handful of scalars read from command-line flags with
// environment-variable fallbacks, no struct-tag manifest needed.
package config

import (
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

// ServerConfig holds the tunables for cmd/battleship-server.
type ServerConfig struct {
	Host          string
	Port          int
	MaxSpectators int
	PreSharedKey  string
}

// ClientConfig holds the tunables for cmd/battleship-client.
type ClientConfig struct {
	Host         string
	Port         int
	PreSharedKey string
	PlayerName   string
}

// Defaults mirror the spec's design defaults: listen on loopback,
// the canonical Battleship port, and a mid-range spectator cap.
const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 5000
	DefaultMaxSpectators = 8
)

// devPreSharedKey is used only when no key is supplied by flag or
// environment; production deployments always set
// BATTLESHIP_PRESHARED_KEY (or --preshared-key) explicitly.
const devPreSharedKey = "battleship-dev-preshared-key-32!"

// LoadServerConfig parses os.Args (via pflag.CommandLine) into a
// ServerConfig, falling back to environment variables and finally to
// defaults.
func LoadServerConfig() ServerConfig {
	host := pflag.String("host", envOrDefault("BATTLESHIP_HOST", DefaultHost), "listen address")
	port := pflag.Int("port", envOrDefaultInt("BATTLESHIP_PORT", DefaultPort), "listen port")
	maxSpectators := pflag.Int("max-spectators", envOrDefaultInt("BATTLESHIP_MAX_SPECTATORS", DefaultMaxSpectators), "maximum concurrent spectators")
	psk := pflag.String("preshared-key", envOrDefault("BATTLESHIP_PRESHARED_KEY", devPreSharedKey), "32-byte pre-shared key for payload encryption")
	pflag.Parse()

	return ServerConfig{
		Host:          *host,
		Port:          *port,
		MaxSpectators: *maxSpectators,
		PreSharedKey:  *psk,
	}
}

// LoadClientConfig parses os.Args into a ClientConfig.
func LoadClientConfig() ClientConfig {
	host := pflag.String("host", envOrDefault("BATTLESHIP_HOST", DefaultHost), "server address")
	port := pflag.Int("port", envOrDefaultInt("BATTLESHIP_PORT", DefaultPort), "server port")
	psk := pflag.String("preshared-key", envOrDefault("BATTLESHIP_PRESHARED_KEY", devPreSharedKey), "32-byte pre-shared key for payload encryption")
	name := pflag.String("name", envOrDefault("BATTLESHIP_PLAYER_NAME", ""), "display name (kept in the config; the client does not send it to the server)")
	pflag.Parse()

	return ClientConfig{
		Host:         *host,
		Port:         *port,
		PreSharedKey: *psk,
		PlayerName:   *name,
	}
}

func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
