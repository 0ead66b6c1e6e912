// Package schema has configs, models and error types for all parts of robustscore.
package schema

import (
	"encoding/json"
	"strings"
)

// MetricTable is the raw input: one row per evaluated sample, with string
// cells addressed by column name. Numeric columns are parsed on aggregation.
type MetricTable struct {
	Columns []string   // Column names in file order
	Rows    [][]string // Cell values, each row aligned with Columns
}

// ColumnIndex returns the position of the named column.
func (t *MetricTable) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// keySep joins group values into a map key. It cannot appear in CSV cells
// produced by any sane export, so distinct tuples never collide.
const keySep = "\x1f"

// GroupKey is the ordered tuple of grouping-column values for one group.
// An empty GroupKey means the whole table forms a single group.
type GroupKey []string

// ID returns a string form of the tuple that is safe to use as a map key.
func (k GroupKey) ID() string {
	return strings.Join(k, keySep)
}

// String renders the tuple for humans.
func (k GroupKey) String() string {
	if len(k) == 0 {
		return "(all)"
	}
	return strings.Join(k, "/")
}

// Encode renders the tuple as a JSON array for storage. Unlike String it
// keeps ("a/b", "c") and ("a", "b/c") apart. The empty key encodes as [].
func (k GroupKey) Encode() string {
	if k == nil {
		k = GroupKey{}
	}
	data, _ := json.Marshal([]string(k))
	return string(data)
}

// Less orders group keys element-wise.
func (k GroupKey) Less(other GroupKey) bool {
	for i := 0; i < len(k) && i < len(other); i++ {
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return len(k) < len(other)
}

// Stat is a (mean, std) pair for one metric.
type Stat struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
}

// Bucket is the per-(group, transform, severity) aggregate of every metric.
type Bucket struct {
	Group     GroupKey        `json:"group"`
	Transform string          `json:"transform"`
	Severity  int             `json:"severity"`
	Samples   int             `json:"samples"`
	Stats     map[string]Stat `json:"stats"`
}

// Baseline is the clean-condition reference for one group.
type Baseline struct {
	Group   GroupKey
	Samples int
	Stats   map[string]Stat
}

// ScoreRow is one row of the transform-level output table.
type ScoreRow struct {
	Group       GroupKey        `json:"group" yaml:"group"`
	Transform   string          `json:"transform" yaml:"transform"`
	Severities  int             `json:"severities" yaml:"severities"`
	Baseline    map[string]Stat `json:"baseline" yaml:"baseline"`
	Overall     map[string]Stat `json:"overall" yaml:"overall"`
	Degradation map[string]Stat `json:"degradation" yaml:"degradation"`
}

// GroupRollup is one row of the group-level output table: the unweighted
// mean of every ScoreRow value across the group's transforms.
type GroupRollup struct {
	Group       GroupKey        `json:"group" yaml:"group"`
	Transforms  int             `json:"transforms" yaml:"transforms"`
	Overall     map[string]Stat `json:"overall" yaml:"overall"`
	Degradation map[string]Stat `json:"degradation" yaml:"degradation"`
}

// GroupIssue records a group that was skipped instead of failing the call.
type GroupIssue struct {
	Group  GroupKey `json:"group" yaml:"group"`
	Reason string   `json:"reason" yaml:"reason"`
}

// Result holds both output tables of a calculation.
type Result struct {
	GroupColumns   []string      `json:"group_columns" yaml:"group_columns"`
	Metrics        MetricSpec    `json:"metrics" yaml:"metrics"`
	TransformLevel []ScoreRow    `json:"transform_level" yaml:"transform_level"`
	GroupLevel     []GroupRollup `json:"group_level" yaml:"group_level"`
	Skipped        []GroupIssue  `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}
