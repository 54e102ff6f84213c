package goodwe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAbsentSet(t *testing.T) {

	assert := assert.New(t)

	ms := NewMetricSet("t", 0,
		Voltage(0, "voltage_volts", KV("phase", "L1")),
		Percentage(1, "ratio"),
		Power(2, "power_watts"),
	)
	expected := "# TYPE goodwe_power_watts gauge\n" +
		"# TYPE goodwe_ratio gauge\n" +
		"# TYPE goodwe_voltage_volts gauge\n" +
		"goodwe_voltage_volts {phase=\"L1\"} NaN\n" +
		"goodwe_ratio {} 0\n" +
		"goodwe_power_watts {} -32768\n"
	assert.Equal(expected, ms.String())
}

func TestRenderTypeLinesOncePerName(t *testing.T) {

	assert := assert.New(t)

	out := BaseMetrics().String()
	assert.Equal(1, strings.Count(out, "# TYPE goodwe_voltage_pv_volts gauge\n"))
	assert.Equal(1, strings.Count(out, "# TYPE goodwe_pv_generation_total counter\n"))
	assert.Contains(out, `goodwe_voltage_pv_volts {mppt="pv1"} NaN`)
	assert.Contains(out, `goodwe_voltage_pv_volts {mppt="pv4"} NaN`)

	var names []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "# TYPE ") {
			names = append(names, strings.Fields(line)[2])
		}
	}
	assert.IsIncreasing(names)
}

func TestRenderMultipleLabels(t *testing.T) {

	assert := assert.New(t)

	ms := NewMetricSet("t", 0, Power(0, "p", KV("a", "1"), KV("b", "2")))
	assert.Contains(ms.String(), "goodwe_p {a=\"1\", b=\"2\"} -32768\n")
}

func TestRenderEscapesLabelValues(t *testing.T) {

	assert := assert.New(t)

	ms := NewMetricSet("t", 0, Power(0, "p", KV("k", "a\"b\\c\nd")))
	assert.Contains(ms.String(), `goodwe_p {k="a\"b\\c\nd"} -32768`)
}

func TestRenderMergesSets(t *testing.T) {

	assert := assert.New(t)

	out := Render(BaseMetrics(), BatteryMetrics())
	assert.Equal(1, strings.Count(out, "# TYPE goodwe_temperature_celsius gauge\n"))
	assert.Contains(out, `goodwe_temperature_celsius {sensor="Air"} NaN`)
	assert.Contains(out, `goodwe_temperature_celsius {sensor="Battery"} NaN`)
	assert.Less(strings.Index(out, `{sensor="Air"}`), strings.Index(out, `{sensor="Battery"}`))
}

func TestRenderDecodedValues(t *testing.T) {

	assert := assert.New(t)

	reader := CreateTestReader()
	ms := MeterMetrics()
	require.NoError(t, reader.Read(context.Background(), ms))

	out := ms.String()
	assert.Contains(out, "# TYPE goodwe_meter_energy_total_kwh counter\n")
	assert.Contains(out, `goodwe_meter_energy_total_kwh {type="export"} 2770.34`)
	assert.Contains(out, `goodwe_meter_energy_total_kwh {type="import"} 550.22`)
	assert.Contains(out, `goodwe_power_factor {phase="all"} 0.98`)
	assert.Contains(out, `goodwe_active_power_watts {phase="all"} -820`)
}

func TestWriteToCount(t *testing.T) {

	assert := assert.New(t)

	var sb strings.Builder
	ms := BatteryMetrics()
	n, err := ms.WriteTo(&sb)
	assert.NoError(err)
	assert.Equal(int64(sb.Len()), n)
}

func TestRenderUnlabeledCatalogEntries(t *testing.T) {

	assert := assert.New(t)

	out := MeterMetrics().String()
	assert.Contains(out, "goodwe_rssi {} -32768\n")
	assert.Contains(out, "goodwe_meter_frequency_hertz {} NaN\n")
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, "#") {
			assert.Contains(line, " {", line)
		}
	}
}
