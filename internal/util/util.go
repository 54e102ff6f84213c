package util

import (
	"github.com/berfenger/goodwe2prom/internal/config"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Inverter: config.InverterConfig{
			Host:          "127.0.0.1",
			Port:          goodwe.DEFAULT_UDP_PORT,
			Transport:     config.TRANSPORT_UDP,
			TimeoutMillis: 1000,
			Sets:          goodwe.SetNames(),
		},
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "goodwe",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 5000,
		},
		Port: 3000,
	}
}
