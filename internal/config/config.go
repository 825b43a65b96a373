// Package config assembles server configuration from layered sources:
// built-in defaults, then a config.ini file, then environment variables,
// then CLI flags (applied by the caller).
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Log levels: 0=DEBUG 1=INFO 2=WARN 3=ERROR.
const (
	LogLevelDebug = 0
	LogLevelInfo  = 1
	LogLevelWarn  = 2
	LogLevelError = 3
)

type Config struct {
	Address     string `ini:"address"`
	Port        int    `ini:"port"`
	HTTPAddress string `ini:"http_address"` // admin/WebSocket listener, empty disables

	PlayersPerRoom      int   `ini:"players_per_room"`
	MaxRatingDiff       int   `ini:"max_rating_diff"`
	ForceMatchOnTimeout bool  `ini:"force_match_on_timeout"`
	MatchTimeoutMs      int64 `ini:"match_timeout_ms"`

	LogFile  string `ini:"log_file"`
	LogLevel int    `ini:"log_level"`

	KafkaBrokers     []string `ini:"kafka_brokers"`
	AnalyticsEnabled bool     `ini:"analytics_enabled"`
	AnalyticsTopic   string   `ini:"analytics_topic"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Address:             "0.0.0.0",
		Port:                8080,
		HTTPAddress:         "",
		PlayersPerRoom:      2,
		MaxRatingDiff:       300,
		ForceMatchOnTimeout: true,
		MatchTimeoutMs:      5000,
		LogFile:             "gmatch.log",
		LogLevel:            LogLevelInfo,
		KafkaBrokers:        []string{"localhost:9092"},
		AnalyticsEnabled:    false,
		AnalyticsTopic:      "gmatch-events",
	}
}

// LoadFile overlays key = value pairs from a config.ini file.
func (c *Config) LoadFile(path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if err := file.Section("").MapTo(c); err != nil {
		return fmt.Errorf("failed to map config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays GMATCH_* environment variables.
func (c *Config) ApplyEnv() {
	c.Address = getEnv("GMATCH_ADDRESS", c.Address)
	c.Port = getEnvInt("GMATCH_PORT", c.Port)
	c.HTTPAddress = getEnv("GMATCH_HTTP_ADDRESS", c.HTTPAddress)
	c.PlayersPerRoom = getEnvInt("GMATCH_PLAYERS_PER_ROOM", c.PlayersPerRoom)
	c.MaxRatingDiff = getEnvInt("GMATCH_MAX_RATING_DIFF", c.MaxRatingDiff)
	c.ForceMatchOnTimeout = getEnvBool("GMATCH_FORCE_MATCH_ON_TIMEOUT", c.ForceMatchOnTimeout)
	c.MatchTimeoutMs = int64(getEnvInt("GMATCH_MATCH_TIMEOUT_MS", int(c.MatchTimeoutMs)))
	c.LogFile = getEnv("GMATCH_LOG_FILE", c.LogFile)
	c.LogLevel = getEnvInt("GMATCH_LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("GMATCH_KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = strings.Split(v, ",")
	}
	c.AnalyticsEnabled = getEnvBool("GMATCH_ANALYTICS_ENABLED", c.AnalyticsEnabled)
	c.AnalyticsTopic = getEnv("GMATCH_ANALYTICS_TOPIC", c.AnalyticsTopic)
}

// TCPAddr returns the bind address for the TCP listener.
func (c *Config) TCPAddr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
