package mqtt

import (
	"testing"

	"github.com/berfenger/goodwe2prom/internal/events"
	"github.com/berfenger/goodwe2prom/internal/util"

	"github.com/stretchr/testify/assert"
)

func testClient() *MQTTClient {
	cfg := util.LoadTestConfig()
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	assert.Equal("goodwe/bridge/state", client.BridgeStateTopic())
	assert.Equal("goodwe/sensor/voltage_pv_volts_pv1/state", client.SensorStateTopic("voltage_pv_volts_pv1"))

	sensor := events.GenericSensor{
		Device:     events.Device{Id: "goodwe_inverter_abc"},
		Id:         "load_watts_total",
		SensorType: events.SENSOR_TYPE_SENSOR,
	}
	assert.Equal("homeassistant/sensor/goodwe_inverter_abc/load_watts_total/config", client.HADiscoverySensorTopic(sensor))
}

func TestClientIdUnique(t *testing.T) {

	assert := assert.New(t)

	a, b := ClientId(), ClientId()
	assert.NotEqual(a, b)
	assert.Regexp("^goodwe_[0-9a-f]{8}$", a)
}

func TestOptsFromConfigWill(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	opts := OptsFromConfig(&cfg)
	assert.True(opts.WillEnabled)
	assert.True(opts.WillRetained)
	assert.Equal("goodwe/bridge/state", opts.WillTopic)
	assert.Equal([]byte(MQTT_PAYLOAD_OFFLINE), opts.WillPayload)
}

func TestSensorDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	sensor := events.GenericSensor{
		Device:            events.Device{Id: "goodwe_inverter_abc", Name: "GoodWe abc"},
		Id:                "voltage_pv_volts_pv1",
		SensorType:        events.SENSOR_TYPE_SENSOR,
		Name:              "voltage pv volts pv1",
		UniqueId:          "goodwe_inverter_abc_voltage_pv_volts_pv1",
		UnitOfMeasurement: "V",
		DeviceClass:       events.DEVICE_CLASS_VOLTAGE,
		StateClass:        events.STATE_CLASS_MEASUREMENT,
	}
	msg := GenericSensorToHADiscoveryMessage(client, sensor)
	assert.Equal("goodwe/sensor/voltage_pv_volts_pv1/state", msg.StateTopic)
	assert.Equal("goodwe/bridge/state", msg.AvTopic)
	assert.Equal([]string{"goodwe_inverter_abc"}, msg.Device.Id)
	assert.Equal("mqtt", msg.Platform)
	assert.Equal("V", msg.UnitOfMeasurement)

	bridge := GenericSensorToHADiscoveryMessage(client, events.GenericSensor{Id: events.SENSOR_ID_BRIDGE_STATE})
	assert.Equal("goodwe/bridge/state", bridge.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, bridge.PayloadOn)
	assert.Empty(bridge.AvTopic)
}
