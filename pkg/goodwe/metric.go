package goodwe

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const METRIC_NAME_PREFIX = "goodwe_"

var idSanitizer = regexp.MustCompile("[^a-z0-9_]+")

type MetricKind int

const (
	Counter MetricKind = iota
	Gauge
)

func (k MetricKind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Gauge:
		return "gauge"
	default:
		return "untyped"
	}
}

// Encoding fixes how many bytes a metric consumes and how they become a number.
type Encoding int

const (
	Int16 Encoding = iota
	Int32
	Uint16
	Fixed16Div10
	Fixed16Div100
	Fixed32Div10
	// Float32 is an IEEE-754 single divided by the metric's Divisor.
	Float32
)

func (e Encoding) Width() int {
	switch e {
	case Int32, Fixed32Div10, Float32:
		return 4
	default:
		return 2
	}
}

func (e Encoding) IsFloat() bool {
	switch e {
	case Fixed16Div10, Fixed16Div100, Fixed32Div10, Float32:
		return true
	default:
		return false
	}
}

func (e Encoding) String() string {
	switch e {
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Uint16:
		return "uint16"
	case Fixed16Div10:
		return "int16/10"
	case Fixed16Div100:
		return "int16/100"
	case Fixed32Div10:
		return "int32/10"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

type Label struct {
	Key   string
	Value string
}

func KV(key, value string) Label {
	return Label{Key: key, Value: value}
}

// Metric is one named register (or register pair) of a MetricSet.
// Its value is absent until a decode pass reaches it.
type Metric struct {
	Register uint16
	Name     string
	Labels   []Label
	Kind     MetricKind
	Encoding Encoding
	Divisor  float32

	present    bool
	intValue   int64
	floatValue float32
}

// NewMetric prefixes name with METRIC_NAME_PREFIX.
func NewMetric(register uint16, name string, kind MetricKind, encoding Encoding, labels ...Label) *Metric {
	return &Metric{
		Register: register,
		Name:     METRIC_NAME_PREFIX + name,
		Labels:   labels,
		Kind:     kind,
		Encoding: encoding,
		Divisor:  1,
	}
}

func Voltage(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Gauge, Fixed16Div10, labels...)
}

func Current(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Gauge, Fixed16Div10, labels...)
}

func Power(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Gauge, Int16, labels...)
}

func LargePower(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Gauge, Int32, labels...)
}

func Frequency(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Gauge, Fixed16Div100, labels...)
}

func Percentage(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Gauge, Uint16, labels...)
}

func Temperature(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Gauge, Fixed16Div10, labels...)
}

func Decimal(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Gauge, Fixed16Div100, labels...)
}

func Energy(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Counter, Fixed16Div10, labels...)
}

func LargeEnergy(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Counter, Fixed32Div10, labels...)
}

func FloatEnergy(register uint16, name string, divisor float32, labels ...Label) *Metric {
	m := NewMetric(register, name, Counter, Float32, labels...)
	m.Divisor = divisor
	return m
}

func Integer(register uint16, name string, labels ...Label) *Metric {
	return NewMetric(register, name, Counter, Int16, labels...)
}

// HasValue reports whether a decode pass has set the value.
func (m *Metric) HasValue() bool {
	return m.present
}

// Value returns the decoded value as float64.
func (m *Metric) Value() (float64, bool) {
	if !m.present {
		return math.NaN(), false
	}
	if m.Encoding.IsFloat() {
		return float64(m.floatValue), true
	}
	return float64(m.intValue), true
}

// FormatValue renders the value the way it appears in the exposition text.
// Absent values render as NaN for floating encodings, 0 for unsigned and the
// type minimum for signed integers.
func (m *Metric) FormatValue() string {
	switch m.Encoding {
	case Int16:
		if !m.present {
			return strconv.FormatInt(math.MinInt16, 10)
		}
		return strconv.FormatInt(m.intValue, 10)
	case Int32:
		if !m.present {
			return strconv.FormatInt(math.MinInt32, 10)
		}
		return strconv.FormatInt(m.intValue, 10)
	case Uint16:
		if !m.present {
			return "0"
		}
		return strconv.FormatInt(m.intValue, 10)
	default:
		if !m.present {
			return "NaN"
		}
		return strconv.FormatFloat(float64(m.floatValue), 'f', -1, 32)
	}
}

// decode reads the metric out of a payload starting at register base.
func (m *Metric) decode(base uint16, payload []byte) error {
	width := m.Encoding.Width()
	if m.Register < base {
		return fmt.Errorf("%w: %s register %d below base %d", ErrOutOfBounds, m.Name, m.Register, base)
	}
	offset := int(m.Register-base) * 2
	if offset+width > len(payload) {
		return fmt.Errorf("%w: %s register %d needs bytes %d..%d, payload has %d",
			ErrOutOfBounds, m.Name, m.Register, offset, offset+width, len(payload))
	}
	raw := payload[offset : offset+width]

	switch m.Encoding {
	case Int16:
		m.intValue = int64(int16(binary.BigEndian.Uint16(raw)))
	case Int32:
		m.intValue = int64(int32(binary.BigEndian.Uint32(raw)))
	case Uint16:
		m.intValue = int64(binary.BigEndian.Uint16(raw))
	case Fixed16Div10:
		m.floatValue = float32(int16(binary.BigEndian.Uint16(raw))) / 10.0
	case Fixed16Div100:
		m.floatValue = float32(int16(binary.BigEndian.Uint16(raw))) / 100.0
	case Fixed32Div10:
		m.floatValue = float32(int32(binary.BigEndian.Uint32(raw))) / 10.0
	case Float32:
		divisor := m.Divisor
		if divisor == 0 {
			divisor = 1
		}
		m.floatValue = math.Float32frombits(binary.BigEndian.Uint32(raw)) / divisor
	default:
		return fmt.Errorf("goodwe: %s has unknown encoding %s", m.Name, m.Encoding)
	}
	m.present = true
	return nil
}

// ID is a stable identifier built from the name and label values,
// e.g. goodwe_voltage_pv_volts_pv1.
func (m *Metric) ID() string {
	id := m.Name
	for _, l := range m.Labels {
		id += "_" + l.Value
	}
	return strings.Trim(idSanitizer.ReplaceAllString(strings.ToLower(id), "_"), "_")
}
