package events

// Sensor Model
type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing
	DeviceClass       string // voltage, current, power, energy, ...
	EntityCategory    string // diagnostic or empty
	Icon              string
}

// EventStream model
type GenericSensorUpdateEvent struct {
	Id string
}

// SensorUpdateEvent carries a value already formatted for publishing.
type SensorUpdateEvent struct {
	GenericSensorUpdateEvent
	Value string
}

type BridgeStateUpdateEvent struct {
	GenericSensorUpdateEvent
	Value bool
}
