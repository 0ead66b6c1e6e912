package schema

import (
	"fmt"
	"strings"
)

// Direction states whether larger values of a metric are better or worse.
type Direction string

// All metric directions supported.
const (
	HigherIsBetter Direction = "higher"
	LowerIsBetter  Direction = "lower"
)

// ValidDirections lists all valid metric directions.
var ValidDirections = map[Direction]struct{}{
	HigherIsBetter: {},
	LowerIsBetter:  {},
}

// MetricDef names one metric column and its direction.
type MetricDef struct {
	Name      string    `json:"name" yaml:"name" mapstructure:"name"`
	Direction Direction `json:"direction" yaml:"direction" mapstructure:"direction"`
}

// MetricSpec is the ordered list of metrics to score.
type MetricSpec []MetricDef

// Names returns the metric names in declaration order.
func (s MetricSpec) Names() []string {
	names := make([]string, len(s))
	for i, m := range s {
		names[i] = m.Name
	}
	return names
}

// Lookup returns the definition of the named metric.
func (s MetricSpec) Lookup(name string) (MetricDef, bool) {
	for _, m := range s {
		if m.Name == name {
			return m, true
		}
	}
	return MetricDef{}, false
}

// Validate checks that the spec is non-empty, names are unique and every
// direction is known.
func (s MetricSpec) Validate() error {
	if len(s) == 0 {
		return &CalcError{Kind: KindInvalidMetricSpec, Detail: "no metrics declared"}
	}
	seen := make(map[string]struct{}, len(s))
	for _, m := range s {
		if strings.TrimSpace(m.Name) == "" {
			return &CalcError{Kind: KindInvalidMetricSpec, Detail: "metric name is empty"}
		}
		if _, dup := seen[m.Name]; dup {
			return &CalcError{Kind: KindInvalidMetricSpec, Column: m.Name, Detail: "metric declared twice"}
		}
		if _, ok := ValidDirections[m.Direction]; !ok {
			return &CalcError{
				Kind:   KindInvalidMetricSpec,
				Column: m.Name,
				Detail: fmt.Sprintf("unknown direction %q (must be higher or lower)", m.Direction),
			}
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

// ParseMetricSpec parses "DSC:higher,HD95:lower" into a MetricSpec.
// A bare name defaults to HigherIsBetter.
func ParseMetricSpec(raw string) (MetricSpec, error) {
	var spec MetricSpec
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dir, found := strings.Cut(part, ":")
		def := MetricDef{Name: strings.TrimSpace(name), Direction: HigherIsBetter}
		if found {
			def.Direction = Direction(strings.ToLower(strings.TrimSpace(dir)))
		}
		spec = append(spec, def)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// String renders the spec in the same form ParseMetricSpec accepts.
func (s MetricSpec) String() string {
	parts := make([]string, len(s))
	for i, m := range s {
		parts[i] = m.Name + ":" + string(m.Direction)
	}
	return strings.Join(parts, ",")
}
