package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/berfenger/goodwe2prom/internal/config"
	"github.com/berfenger/goodwe2prom/pkg/aa55"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func registerFlags(flags *pflag.FlagSet) {
	flags.String("target", "", "inverter host or IP address")
	flags.Uint("port", 0, "HTTP listen port for serve")
	flags.String("config", "", "YAML config file, overrides CONFIG_FILE")
	flags.String("transport", "", "inverter transport: udp or modbus_tcp")
}

func bindFlags(flags *pflag.FlagSet) {
	_ = viper.BindPFlag("inverter.host", flags.Lookup("target"))
	_ = viper.BindPFlag("port", flags.Lookup("port"))
	_ = viper.BindPFlag("inverter.transport", flags.Lookup("transport"))
}

// initConfig merges defaults, config file, environment and flags. target,
// when not empty, wins over every other source of the inverter host.
func initConfig(flags *pflag.FlagSet, target string) (*config.Config, error) {

	// alias PORT => GOODWE_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("GOODWE_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("goodwe")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindFlags(flags)

	// if defined, try to load config from yaml file
	cfgFile := os.Getenv("CONFIG_FILE")
	if f, _ := flags.GetString("config"); f != "" {
		cfgFile = f
	}
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		} else {
			slog.Warn("Config file not found", "file", cfgFile)
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}
	if target != "" {
		cfg.Inverter.Host = target
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("inverter.host", "")
	viper.SetDefault("inverter.port", goodwe.DEFAULT_UDP_PORT)
	viper.SetDefault("inverter.address", aa55.DEFAULT_ADDRESS)
	viper.SetDefault("inverter.transport", config.TRANSPORT_UDP)
	viper.SetDefault("inverter.modbus_port", goodwe.DEFAULT_MODBUS_TCP_PORT)
	viper.SetDefault("inverter.unit_id", 247)
	viper.SetDefault("inverter.timeout_millis", goodwe.DEFAULT_TIMEOUT.Milliseconds())
	viper.SetDefault("inverter.checksum_span", aa55.SpanFrame.String())
	viper.SetDefault("inverter.sets", goodwe.SetNames())
	viper.SetDefault("mqtt.host", "")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "goodwe")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("monitor.poll_interval_millis", 10000)
	viper.SetDefault("port", 3000)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
