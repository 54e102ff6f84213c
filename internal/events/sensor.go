package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/berfenger/goodwe2prom/pkg/aa55"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_APPARENT_POWER  = "apparent_power"
	DEVICE_CLASS_BATTERY         = "battery"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_POWER_FACTOR    = "power_factor"
	DEVICE_CLASS_REACTIVE_POWER  = "reactive_power"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)

type unitClass struct {
	suffix      string
	unit        string
	deviceClass string
}

// matched in order, first suffix wins
var unitClasses = []unitClass{
	{"_volts", "V", DEVICE_CLASS_VOLTAGE},
	{"_amperes", "A", DEVICE_CLASS_CURRENT},
	{"_watts", "W", DEVICE_CLASS_POWER},
	{"_hertz", "Hz", DEVICE_CLASS_FREQUENCY},
	{"_celsius", "°C", DEVICE_CLASS_TEMPERATURE},
	{"_var", "var", DEVICE_CLASS_REACTIVE_POWER},
	{"_va", "VA", DEVICE_CLASS_APPARENT_POWER},
	{"_kwh", "kWh", DEVICE_CLASS_ENERGY},
	{"_total", "kWh", DEVICE_CLASS_ENERGY},
	{"_ratio", "%", ""},
	{"power_factor", "", DEVICE_CLASS_POWER_FACTOR},
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("goodwe_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "goodwe2prom",
		Model:        "GoodWe bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("GoodWe bridge %s", md5HashShort(baseTopic)),
	}
}

// InverterDevice describes the inverter. Without identification data the
// device is keyed by host.
func InverterDevice(host string, info *aa55.IdentifyResponse, via Device) Device {
	dev := Device{
		Id:           fmt.Sprintf("goodwe_inverter_%s", md5HashShort(host)),
		Manufacturer: "GoodWe",
		Model:        "ET/EH/BT/BH",
		Name:         fmt.Sprintf("GoodWe %s", host),
		ViaDevice:    via.Id,
	}
	if info != nil && info.SerialNumber != "" {
		dev.Id = fmt.Sprintf("goodwe_inverter_%s", md5HashShort(info.SerialNumber))
		dev.Name = fmt.Sprintf("GoodWe %s", info.SerialNumber)
		dev.Version = info.Firmware
	}
	return dev
}

func BridgeSensor(bridgeDevice Device) GenericSensor {
	return GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Bridge state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	}
}

// SensorId is the MQTT identifier of a metric: its ID without the name prefix.
func SensorId(m *goodwe.Metric) string {
	return strings.TrimPrefix(m.ID(), goodwe.METRIC_NAME_PREFIX)
}

// MetricSensors declares one sensor per metric of the given sets.
func MetricSensors(inverterDevice Device, sets ...*goodwe.MetricSet) []GenericSensor {
	var sensors []GenericSensor
	for _, set := range sets {
		for _, m := range set.Metrics {
			sensors = append(sensors, metricSensor(inverterDevice, m))
		}
	}
	return sensors
}

func metricSensor(inverterDevice Device, m *goodwe.Metric) GenericSensor {
	id := SensorId(m)
	sensor := GenericSensor{
		Device:     inverterDevice,
		Id:         id,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       sensorName(m),
		UniqueId:   uniqueId(inverterDevice.Id, id),
	}

	name := strings.TrimPrefix(m.Name, goodwe.METRIC_NAME_PREFIX)
	for _, uc := range unitClasses {
		if strings.HasSuffix(name, uc.suffix) {
			sensor.UnitOfMeasurement = uc.unit
			sensor.DeviceClass = uc.deviceClass
			break
		}
	}
	if strings.HasPrefix(name, "battery_state") {
		sensor.DeviceClass = DEVICE_CLASS_BATTERY
	}

	switch {
	case sensor.DeviceClass == DEVICE_CLASS_ENERGY:
		sensor.StateClass = STATE_CLASS_TOTAL_INCREASING
	case sensor.UnitOfMeasurement != "" || sensor.DeviceClass != "":
		sensor.StateClass = STATE_CLASS_MEASUREMENT
	default:
		// status words, versions and indexes
		sensor.EntityCategory = ENTITY_CLASS_DIAGNOSTIC
	}
	return sensor
}

// SensorUpdates returns one event per metric holding a value.
func SensorUpdates(sets ...*goodwe.MetricSet) []SensorUpdateEvent {
	var updates []SensorUpdateEvent
	for _, set := range sets {
		for _, m := range set.Metrics {
			if !m.HasValue() {
				continue
			}
			updates = append(updates, SensorUpdateEvent{
				GenericSensorUpdateEvent: GenericSensorUpdateEvent{Id: SensorId(m)},
				Value:                    m.FormatValue(),
			})
		}
	}
	return updates
}

func sensorName(m *goodwe.Metric) string {
	parts := []string{strings.ReplaceAll(strings.TrimPrefix(m.Name, goodwe.METRIC_NAME_PREFIX), "_", " ")}
	for _, l := range m.Labels {
		parts = append(parts, l.Value)
	}
	name := strings.Join(parts, " ")
	return strings.ToUpper(name[:1]) + name[1:]
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
