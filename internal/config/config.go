package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// EnvPrefix is prepended to a key to override it from the environment,
// e.g. ENVBRIDGE_MQTT_BROKER.
const EnvPrefix = "ENVBRIDGE_"

// Config holds all application configuration values.
type Config struct {
	// Network
	WiFiInterface string

	// MQTT
	MQTTBroker    string
	MQTTPort      int
	MQTTUsername  string
	MQTTPassword  string
	MQTTClientID  string
	MQTTKeepAlive time.Duration
	MQTTTimeout   time.Duration

	// Topics
	TopicTemperature string
	TopicPressure    string
	TopicHumidity    string

	// BME280 Hardware
	BME280I2CBus  string // periph bus name, empty for the first bus
	BME280I2CAddr uint16

	// Status LED
	StatusLEDPin string // periph GPIO name, empty for a log-only signal

	// Timing
	ReconnectBackoff time.Duration
	HeartbeatWindow  time.Duration

	// Display
	DisplayEnabled bool

	// Logging
	LogLevel  slog.Level
	LogFormat string // "text" or "json"
}

// Keys lists every recognized configuration key.
var Keys = []string{
	"WIFI_INTERFACE",
	"MQTT_BROKER", "MQTT_PORT", "MQTT_USERNAME", "MQTT_PASSWORD", "MQTT_CLIENT_ID",
	"MQTT_KEEPALIVE", "MQTT_TIMEOUT",
	"TOPIC_TEMPERATURE", "TOPIC_PRESSURE", "TOPIC_HUMIDITY",
	"BME280_I2C_BUS", "BME280_I2C_ADDR",
	"STATUS_LED_PIN",
	"RECONNECT_BACKOFF", "HEARTBEAT_WINDOW",
	"DISPLAY_ENABLED",
	"LOG_LEVEL", "LOG_FORMAT",
}

// Default returns the configuration used for keys that are not set.
func Default() *Config {
	return &Config{
		WiFiInterface:    "wlan0",
		MQTTPort:         1883,
		MQTTClientID:     "envbridge",
		MQTTKeepAlive:    650 * time.Second,
		MQTTTimeout:      10 * time.Second,
		BME280I2CAddr:    0x76,
		ReconnectBackoff: 30 * time.Second,
		HeartbeatWindow:  600 * time.Second,
		LogLevel:         slog.LevelInfo,
		LogFormat:        "text",
	}
}

// Load reads the configuration file, applies ENVBRIDGE_* overrides and
// validates the result. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open config file %s", configPath)
		}
		defer file.Close()

		if err := cfg.parse(file); err != nil {
			return nil, errors.Wrapf(err, "config file %s", configPath)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads KEY=VALUE lines from r on top of the defaults and validates
// the result. Environment overrides are not applied.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.parse(r); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "error reading config")
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, key := range Keys {
		value, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		if err := c.setValue(key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
		}
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Network
	case "WIFI_INTERFACE":
		c.WiFiInterface = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_PORT":
		port, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid MQTT_PORT %q: %w", value, perr)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("MQTT_PORT must be 1-65535, got %d", port)
		}
		c.MQTTPort = port
	case "MQTT_USERNAME":
		c.MQTTUsername = value
	case "MQTT_PASSWORD":
		c.MQTTPassword = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_KEEPALIVE":
		c.MQTTKeepAlive, err = parseSeconds(key, value)
	case "MQTT_TIMEOUT":
		c.MQTTTimeout, err = parseSeconds(key, value)

	// Topics
	case "TOPIC_TEMPERATURE":
		c.TopicTemperature = value
	case "TOPIC_PRESSURE":
		c.TopicPressure = value
	case "TOPIC_HUMIDITY":
		c.TopicHumidity = value

	// BME280 Hardware
	case "BME280_I2C_BUS":
		c.BME280I2CBus = value
	case "BME280_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid BME280_I2C_ADDR %q: %w", value, perr)
		}
		if addr != 0x76 && addr != 0x77 {
			return fmt.Errorf("BME280_I2C_ADDR must be 0x76 or 0x77, got 0x%02X", addr)
		}
		c.BME280I2CAddr = uint16(addr)

	// Status LED
	case "STATUS_LED_PIN":
		c.StatusLEDPin = value

	// Timing
	case "RECONNECT_BACKOFF":
		c.ReconnectBackoff, err = parseSeconds(key, value)
	case "HEARTBEAT_WINDOW":
		c.HeartbeatWindow, err = parseSeconds(key, value)

	// Display
	case "DISPLAY_ENABLED":
		on, perr := strconv.ParseBool(value)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, perr)
		}
		c.DisplayEnabled = on

	// Logging
	case "LOG_LEVEL":
		c.LogLevel, err = ParseLogLevel(value)
	case "LOG_FORMAT":
		switch value {
		case "text", "json":
			c.LogFormat = value
		default:
			return fmt.Errorf("invalid LOG_FORMAT %q (allowed: text, json)", value)
		}

	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return err
}

func parseSeconds(key, value string) (time.Duration, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds, got %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}

// ParseLogLevel maps debug/info/warn/error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicTemperature == "" {
		return fmt.Errorf("TOPIC_TEMPERATURE is required")
	}
	if c.TopicPressure == "" {
		return fmt.Errorf("TOPIC_PRESSURE is required")
	}
	if c.TopicHumidity == "" {
		return fmt.Errorf("TOPIC_HUMIDITY is required")
	}
	if c.WiFiInterface == "" {
		return fmt.Errorf("WIFI_INTERFACE is required")
	}
	return nil
}
