package goodwe

// Register maps of the ET/EH/BT/BH hybrid inverter family.

const (
	SET_BASE    = "base"
	SET_BATTERY = "battery"
	SET_METER   = "meter"
)

const (
	METRIC_VOLTAGE_PV = "voltage_pv_volts"
	METRIC_CURRENT_PV = "current_pv_amperes"
	METRIC_POWER_PV   = "power_pv_watts"

	METRIC_VOLTAGE_GRID   = "voltage_grid_volts"
	METRIC_CURRENT_GRID   = "current_grid_amperes"
	METRIC_POWER_GRID     = "power_grid_watts"
	METRIC_FREQUENCY_GRID = "frequency_grid_hertz"

	METRIC_VOLTAGE_BACKUP   = "voltage_backup_volts"
	METRIC_CURRENT_BACKUP   = "current_backup_amperes"
	METRIC_POWER_BACKUP     = "power_backup_watts"
	METRIC_FREQUENCY_BACKUP = "frequency_backup_hertz"

	METRIC_LOAD = "load_watts"

	METRIC_TEMP = "temperature_celsius"

	METRIC_INT_VOLTAGE = "voltage_internal_volts"

	METRIC_ACTIVE_POWER         = "active_power_watts"
	METRIC_METER_ACTIVE_POWER   = "meter_active_power_watts"
	METRIC_METER_REACTIVE_POWER = "meter_reactive_power_var"
	METRIC_METER_APPARENT_POWER = "meter_apparent_power_va"

	METRIC_VOLTAGE_METER = "voltage_meter_volts"
	METRIC_CURRENT_METER = "current_meter_amperes"

	METRIC_POWER_FACTOR = "power_factor"

	METER_ENERGY_DIVISOR = 1000
)

var catalogs = map[string]func() *MetricSet{
	SET_BASE:    BaseMetrics,
	SET_BATTERY: BatteryMetrics,
	SET_METER:   MeterMetrics,
}

// SetNames lists the known catalogs in polling order.
func SetNames() []string {
	return []string{SET_BASE, SET_BATTERY, SET_METER}
}

// NewSet builds a fresh catalog by name.
func NewSet(name string) (*MetricSet, bool) {
	fn, ok := catalogs[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

func BaseMetrics() *MetricSet {
	return NewMetricSet(SET_BASE, 35100,
		// the first three words hold a timestamp
		Voltage(35103, METRIC_VOLTAGE_PV, KV("mppt", "pv1")),
		Current(35104, METRIC_CURRENT_PV, KV("mppt", "pv1")),
		LargePower(35105, METRIC_POWER_PV, KV("mppt", "pv1")),
		Voltage(35107, METRIC_VOLTAGE_PV, KV("mppt", "pv2")),
		Current(35108, METRIC_CURRENT_PV, KV("mppt", "pv2")),
		LargePower(35109, METRIC_POWER_PV, KV("mppt", "pv2")),
		Voltage(35111, METRIC_VOLTAGE_PV, KV("mppt", "pv3")),
		Current(35112, METRIC_CURRENT_PV, KV("mppt", "pv3")),
		LargePower(35113, METRIC_POWER_PV, KV("mppt", "pv3")),
		Voltage(35115, METRIC_VOLTAGE_PV, KV("mppt", "pv4")),
		Current(35116, METRIC_CURRENT_PV, KV("mppt", "pv4")),
		LargePower(35117, METRIC_POWER_PV, KV("mppt", "pv4")),
		Voltage(35121, METRIC_VOLTAGE_GRID, KV("phase", "L1")),
		Current(35122, METRIC_CURRENT_GRID, KV("phase", "L1")),
		Frequency(35123, METRIC_FREQUENCY_GRID, KV("phase", "L1")),
		Power(35125, METRIC_POWER_GRID, KV("phase", "L1")),
		Voltage(35126, METRIC_VOLTAGE_GRID, KV("phase", "L2")),
		Current(35127, METRIC_CURRENT_GRID, KV("phase", "L2")),
		Frequency(35128, METRIC_FREQUENCY_GRID, KV("phase", "L2")),
		Power(35130, METRIC_POWER_GRID, KV("phase", "L2")),
		Voltage(35131, METRIC_VOLTAGE_GRID, KV("phase", "L3")),
		Current(35132, METRIC_CURRENT_GRID, KV("phase", "L3")),
		Frequency(35133, METRIC_FREQUENCY_GRID, KV("phase", "L3")),
		Power(35135, METRIC_POWER_GRID, KV("phase", "L3")),
		Power(35138, "inverter_power_total_watts"),
		Power(35140, "active_power_total_watts"),
		Voltage(35145, METRIC_VOLTAGE_BACKUP, KV("phase", "L1")),
		Current(35146, METRIC_CURRENT_BACKUP, KV("phase", "L1")),
		Frequency(35147, METRIC_FREQUENCY_BACKUP, KV("phase", "L1")),
		Power(35150, METRIC_POWER_BACKUP, KV("phase", "L1")),
		Voltage(35151, METRIC_VOLTAGE_BACKUP, KV("phase", "L2")),
		Current(35152, METRIC_CURRENT_BACKUP, KV("phase", "L2")),
		Frequency(35153, METRIC_FREQUENCY_BACKUP, KV("phase", "L2")),
		Power(35156, METRIC_POWER_BACKUP, KV("phase", "L2")),
		Voltage(35157, METRIC_VOLTAGE_BACKUP, KV("phase", "L3")),
		Current(35158, METRIC_CURRENT_BACKUP, KV("phase", "L3")),
		Frequency(35159, METRIC_FREQUENCY_BACKUP, KV("phase", "L3")),
		Power(35162, METRIC_POWER_BACKUP, KV("phase", "L3")),
		Power(35164, METRIC_LOAD, KV("phase", "L1")),
		Power(35166, METRIC_LOAD, KV("phase", "L2")),
		Power(35168, METRIC_LOAD, KV("phase", "L3")),
		Power(35170, METRIC_LOAD, KV("type", "Backup")),
		Power(35172, METRIC_LOAD, KV("type", "Total")),
		Percentage(35173, "backup_utilization_ratio"),
		Temperature(35174, METRIC_TEMP, KV("sensor", "Air")),
		Temperature(35175, METRIC_TEMP, KV("sensor", "Module")),
		Temperature(35176, METRIC_TEMP, KV("sensor", "Radiator")),
		Voltage(35178, METRIC_INT_VOLTAGE, KV("sensor", "Bus")),
		Voltage(35179, METRIC_INT_VOLTAGE, KV("sensor", "NBus")),
		Voltage(35180, "voltage_battery_volts"),
		Current(35181, "current_battery_amperes", KV("string", "Battery")),
		LargePower(35182, "power_battery_watts"),
		LargeEnergy(35191, "pv_generation_total", KV("timeframe", "all")),
		LargeEnergy(35193, "pv_generation_total", KV("timeframe", "today")),
		LargeEnergy(35195, "pv_export_total", KV("timeframe", "all")),
		// 35197: total hours
		Energy(35199, "pv_export_total", KV("timeframe", "today")),
		Energy(35200, "energy_import_total", KV("timeframe", "all")),
		Energy(35202, "energy_import_total", KV("timeframe", "today")),
	)
}

func BatteryMetrics() *MetricSet {
	return NewMetricSet(SET_BATTERY, 37000,
		Integer(37000, "battery_bms"),
		Integer(37001, "battery_index"),
		Integer(37002, "battery_status"),
		Temperature(37003, METRIC_TEMP, KV("sensor", "Battery")),
		Integer(37004, "battery_current_limit_amperes", KV("type", "Charge")),
		Integer(37005, "battery_current_limit_amperes", KV("type", "Discharge")),
		Integer(37006, "battery_error", KV("side", "L")),
		Percentage(37007, "battery_state_ratio", KV("type", "State of Charge")),
		Percentage(37008, "battery_state_ratio", KV("type", "State of Health")),
		Integer(37009, "battery_modules"),
		Integer(37010, "battery_warning", KV("side", "L")),
		Integer(37011, "battery_error", KV("side", "H")),
		Integer(37013, "battery_warning", KV("side", "H")),
		Integer(37014, "battery_version", KV("part", "SW")),
		Integer(37015, "battery_version", KV("part", "HW")),
		Integer(37016, "battery_cell_temp_id", KV("type", "Max")),
		Integer(37017, "battery_cell_temp_id", KV("type", "Min")),
		Integer(37018, "battery_cell_voltage_id", KV("type", "Max")),
		Integer(37019, "battery_cell_voltage_id", KV("type", "Min")),
		Temperature(37020, "battery_cell_temp_celsius", KV("type", "Max")),
		Temperature(37021, "battery_cell_temp_celsius", KV("type", "Min")),
		Voltage(37022, "battery_cell_voltage_volts", KV("type", "Max")),
		Voltage(37023, "battery_cell_voltage_volts", KV("type", "Min")),
	)
}

func MeterMetrics() *MetricSet {
	return NewMetricSet(SET_METER, 36000,
		Integer(36000, "commode"),
		Integer(36001, "rssi"),
		Integer(36002, "manufacture_code"),
		// 1: correct, 2: reverse, 3: incorrect, 0: not checked
		Integer(36003, "meter_test_status"),
		// 1: OK, 0: NOK
		Integer(36004, "meter_comm_status"),
		Power(36005, METRIC_ACTIVE_POWER, KV("phase", "L1")),
		Power(36006, METRIC_ACTIVE_POWER, KV("phase", "L2")),
		Power(36007, METRIC_ACTIVE_POWER, KV("phase", "L3")),
		Power(36008, METRIC_ACTIVE_POWER, KV("phase", "all")),
		Power(36009, "reactive_power_total_var", KV("phase", "all")),
		Decimal(36010, METRIC_POWER_FACTOR, KV("phase", "L1")),
		Decimal(36011, METRIC_POWER_FACTOR, KV("phase", "L2")),
		Decimal(36012, METRIC_POWER_FACTOR, KV("phase", "L3")),
		Decimal(36013, METRIC_POWER_FACTOR, KV("phase", "all")),
		Frequency(36014, "meter_frequency_hertz"),
		FloatEnergy(36015, "meter_energy_total_kwh", METER_ENERGY_DIVISOR, KV("type", "export")),
		FloatEnergy(36017, "meter_energy_total_kwh", METER_ENERGY_DIVISOR, KV("type", "import")),
		LargePower(36019, METRIC_METER_ACTIVE_POWER, KV("phase", "L1")),
		LargePower(36021, METRIC_METER_ACTIVE_POWER, KV("phase", "L2")),
		LargePower(36023, METRIC_METER_ACTIVE_POWER, KV("phase", "L3")),
		LargePower(36025, METRIC_METER_ACTIVE_POWER, KV("phase", "all")),
		LargePower(36027, METRIC_METER_REACTIVE_POWER, KV("phase", "L1")),
		LargePower(36029, METRIC_METER_REACTIVE_POWER, KV("phase", "L2")),
		LargePower(36031, METRIC_METER_REACTIVE_POWER, KV("phase", "L3")),
		LargePower(36033, METRIC_METER_REACTIVE_POWER, KV("phase", "all")),
		LargePower(36035, METRIC_METER_APPARENT_POWER, KV("phase", "L1")),
		LargePower(36037, METRIC_METER_APPARENT_POWER, KV("phase", "L2")),
		LargePower(36039, METRIC_METER_APPARENT_POWER, KV("phase", "L3")),
		LargePower(36041, METRIC_METER_APPARENT_POWER, KV("phase", "all")),
		// 0: single phase, 1: 3P3W, 2: 3P4W, 3: HomeKit
		Integer(36043, "meter_type"),
		Integer(36044, "meter_sw_version"),
		Voltage(36052, METRIC_VOLTAGE_METER, KV("phase", "L1")),
		Voltage(36053, METRIC_VOLTAGE_METER, KV("phase", "L2")),
		Voltage(36054, METRIC_VOLTAGE_METER, KV("phase", "L3")),
		Current(36055, METRIC_CURRENT_METER, KV("phase", "L1")),
		Current(36056, METRIC_CURRENT_METER, KV("phase", "L2")),
		Current(36057, METRIC_CURRENT_METER, KV("phase", "L3")),
	)
}
