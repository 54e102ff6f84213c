package goodwe

import (
	"errors"
	"fmt"

	"github.com/berfenger/goodwe2prom/pkg/aa55"
)

var ErrOutOfBounds = errors.New("goodwe: metric out of bounds of payload")

// MetricSet is a group of metrics read with a single command, starting at Base.
// A set is meant to be built fresh for every poll.
type MetricSet struct {
	Name    string
	Base    uint16
	Metrics []*Metric
}

func NewMetricSet(name string, base uint16, metrics ...*Metric) *MetricSet {
	return &MetricSet{
		Name:    name,
		Base:    base,
		Metrics: metrics,
	}
}

// Count is the number of registers to request: up to and including the
// highest metric register. A wide metric placed at the highest register is
// not covered by its second word; catalogs must avoid that layout.
func (ms *MetricSet) Count() uint16 {
	if len(ms.Metrics) == 0 {
		panic(fmt.Sprintf("goodwe: metric set %q is empty", ms.Name))
	}
	var highest uint16
	for _, m := range ms.Metrics {
		if m.Register > highest {
			highest = m.Register
		}
	}
	return highest - ms.Base + 1
}

// ReadCommand builds the read command covering every metric of the set.
func (ms *MetricSet) ReadCommand(address byte) []byte {
	return aa55.BuildReadCommand(address, ms.Base, ms.Count())
}

// Decode sets the value of every metric from payload, in order. It stops at the
// first metric that does not fit into payload and returns ErrOutOfBounds;
// metrics decoded before it keep their new values.
func (ms *MetricSet) Decode(payload []byte) error {
	for _, m := range ms.Metrics {
		if err := m.decode(ms.Base, payload); err != nil {
			return err
		}
	}
	return nil
}

// Decoded is the number of metrics holding a value.
func (ms *MetricSet) Decoded() int {
	n := 0
	for _, m := range ms.Metrics {
		if m.present {
			n++
		}
	}
	return n
}

// Validate checks the catalog layout: non-empty, every register at or above
// Base, no overlapping byte ranges and one kind per metric name.
func (ms *MetricSet) Validate() error {
	if len(ms.Metrics) == 0 {
		return fmt.Errorf("goodwe: metric set %q is empty", ms.Name)
	}
	owner := map[uint16]*Metric{}
	kinds := map[string]MetricKind{}
	for _, m := range ms.Metrics {
		if m.Register < ms.Base {
			return fmt.Errorf("goodwe: %s register %d below base %d", m.Name, m.Register, ms.Base)
		}
		for w := 0; w < m.Encoding.Width()/2; w++ {
			reg := m.Register + uint16(w)
			if other, ok := owner[reg]; ok {
				return fmt.Errorf("goodwe: %s overlaps %s at register %d", m.ID(), other.ID(), reg)
			}
			owner[reg] = m
		}
		if kind, ok := kinds[m.Name]; ok && kind != m.Kind {
			return fmt.Errorf("goodwe: %s declared as %s and %s", m.Name, kind, m.Kind)
		}
		kinds[m.Name] = m.Kind
	}
	return nil
}
