package goodwe

import (
	"bytes"
	"io"
	"sort"
	"strings"
)

var labelValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

type metricType struct {
	name string
	kind MetricKind
}

// types returns one entry per distinct metric name, sorted by name.
func (ms *MetricSet) types() []metricType {
	seen := map[string]bool{}
	var types []metricType
	for _, m := range ms.Metrics {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		types = append(types, metricType{name: m.Name, kind: m.Kind})
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].name < types[j].name
	})
	return types
}

// WriteTo writes the set in Prometheus text format: the # TYPE lines first,
// then one line per metric in catalog order.
func (ms *MetricSet) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, t := range ms.types() {
		buf.WriteString("# TYPE ")
		buf.WriteString(t.name)
		buf.WriteByte(' ')
		buf.WriteString(t.kind.String())
		buf.WriteByte('\n')
	}
	for _, m := range ms.Metrics {
		writeMetricLine(&buf, m)
	}
	return buf.WriteTo(w)
}

func (ms *MetricSet) String() string {
	var sb strings.Builder
	ms.WriteTo(&sb)
	return sb.String()
}

// Render writes several sets as one exposition: a single # TYPE line per
// metric name across all sets, then every metric in set order.
func Render(sets ...*MetricSet) string {
	merged := &MetricSet{}
	for _, ms := range sets {
		merged.Metrics = append(merged.Metrics, ms.Metrics...)
	}
	return merged.String()
}

func writeMetricLine(buf *bytes.Buffer, m *Metric) {
	buf.WriteString(m.Name)
	buf.WriteString(" {")
	for i, l := range m.Labels {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(l.Key)
		buf.WriteString(`="`)
		buf.WriteString(labelValueEscaper.Replace(l.Value))
		buf.WriteByte('"')
	}
	buf.WriteByte('}')
	buf.WriteByte(' ')
	buf.WriteString(m.FormatValue())
	buf.WriteByte('\n')
}
