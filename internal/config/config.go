package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/berfenger/goodwe2prom/pkg/aa55"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"go.uber.org/zap/zapcore"
)

const (
	TRANSPORT_UDP        = "udp"
	TRANSPORT_MODBUS_TCP = "modbus_tcp"
)

var topicRegexp = regexp.MustCompile("^[a-z0-9_]+$")

type Config struct {
	LogLevel      zapcore.Level
	Inverter      InverterConfig `mapstructure:"inverter"`
	MQTT          MQTTConfig     `mapstructure:"mqtt"`
	MonitorConfig MonitorConfig  `mapstructure:"monitor"`
	Port          uint           `mapstructure:"port"`
	HttpLog       bool           `mapstructure:"http_log"`
}

type InverterConfig struct {
	Host          string
	Port          uint
	Address       uint8
	Transport     string
	ModbusPort    uint     `mapstructure:"modbus_port"`
	UnitId        uint8    `mapstructure:"unit_id"`
	TimeoutMillis uint32   `mapstructure:"timeout_millis"`
	ChecksumSpan  string   `mapstructure:"checksum_span"`
	Sets          []string `mapstructure:"sets"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c InverterConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

func (c MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

// Validate checks the parts every command needs. Device commands also need
// an inverter host, see RequireInverterHost.
func (c *Config) Validate() error {
	switch c.Inverter.Transport {
	case TRANSPORT_UDP, TRANSPORT_MODBUS_TCP:
	default:
		return fmt.Errorf("config param inverter.transport must be %s or %s, got %q",
			TRANSPORT_UDP, TRANSPORT_MODBUS_TCP, c.Inverter.Transport)
	}
	if _, err := aa55.ParseChecksumSpan(c.Inverter.ChecksumSpan); err != nil {
		return fmt.Errorf("config param inverter.checksum_span: %w", err)
	}
	if len(c.Inverter.Sets) == 0 {
		return errors.New("config param inverter.sets should name at least one metric set")
	}
	for _, name := range c.Inverter.Sets {
		if _, ok := goodwe.NewSet(name); !ok {
			return fmt.Errorf("config param inverter.sets: unknown metric set %q (known: %s)",
				name, strings.Join(goodwe.SetNames(), ", "))
		}
	}
	if c.MonitorConfig.PollIntervalMillis < 1000 {
		return errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}
	return nil
}

func (c *Config) RequireInverterHost() error {
	if c.Inverter.Host == "" {
		return errors.New("inverter host required: pass it as argument, --target or GOODWE_INVERTER_HOST")
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	if !topicRegexp.MatchString(lowerBaseTopic) {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
