package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Inverter: InverterConfig{
			Host:      "192.168.1.20",
			Transport: TRANSPORT_UDP,
			Sets:      []string{"base", "meter"},
		},
		MonitorConfig: MonitorConfig{PollIntervalMillis: 5000},
	}
}

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("GoodWe_2")
	assert.NoError(err)
	assert.Equal("goodwe_2", topic)

	_, err = CheckMQTTTopic("goodwe/x")
	assert.Error(err)

	_, err = CheckMQTTTopic("")
	assert.Error(err)
}

func TestValidate(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	assert.NoError(cfg.Validate())
	assert.NoError(cfg.RequireInverterHost())

	cfg = validConfig()
	cfg.Inverter.Transport = "serial"
	assert.Error(cfg.Validate())

	cfg = validConfig()
	cfg.Inverter.ChecksumSpan = "payload"
	assert.Error(cfg.Validate())

	cfg = validConfig()
	cfg.Inverter.ChecksumSpan = "no_header"
	assert.NoError(cfg.Validate())

	cfg = validConfig()
	cfg.Inverter.Sets = []string{"base", "grid"}
	assert.ErrorContains(cfg.Validate(), `"grid"`)

	cfg = validConfig()
	cfg.Inverter.Sets = nil
	assert.Error(cfg.Validate())

	cfg = validConfig()
	cfg.MonitorConfig.PollIntervalMillis = 500
	assert.Error(cfg.Validate())

	cfg = validConfig()
	cfg.Inverter.Host = ""
	assert.NoError(cfg.Validate())
	assert.Error(cfg.RequireInverterHost())
}
