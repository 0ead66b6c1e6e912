package schema_test

import (
	"math"
	"testing"

	"github.com/huangsam/robustscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnIndex(t *testing.T) {
	table := &schema.MetricTable{Columns: []string{"Model", "Transform", "DSC"}}

	idx, ok := table.ColumnIndex("Transform")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = table.ColumnIndex("HD95")
	assert.False(t, ok)
}

func TestGroupKey(t *testing.T) {
	tests := []struct {
		name   string
		a, b   schema.GroupKey
		less   bool
		sameID bool
	}{
		{"equal", schema.GroupKey{"A", "x"}, schema.GroupKey{"A", "x"}, false, true},
		{"first element decides", schema.GroupKey{"A", "z"}, schema.GroupKey{"B", "a"}, true, false},
		{"second element decides", schema.GroupKey{"A", "a"}, schema.GroupKey{"A", "b"}, true, false},
		{"shorter prefix first", schema.GroupKey{"A"}, schema.GroupKey{"A", "a"}, true, false},
		{"no collision on join", schema.GroupKey{"a/b", "c"}, schema.GroupKey{"a", "b/c"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.less, tt.a.Less(tt.b))
			assert.Equal(t, tt.sameID, tt.a.ID() == tt.b.ID())
		})
	}

	assert.Equal(t, "(all)", schema.GroupKey{}.String())
	assert.Equal(t, "UNet/Seg", schema.GroupKey{"UNet", "Seg"}.String())

	assert.Equal(t, "[]", schema.GroupKey{}.Encode())
	assert.Equal(t, "[]", schema.GroupKey(nil).Encode())
	assert.Equal(t, `["UNet","Seg"]`, schema.GroupKey{"UNet", "Seg"}.Encode())
	assert.NotEqual(t, schema.GroupKey{"a/b", "c"}.Encode(), schema.GroupKey{"a", "b/c"}.Encode())
}

func TestParseMetricSpec(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected schema.MetricSpec
		errKind  schema.ErrorKind
	}{
		{
			name: "two metrics",
			raw:  "DSC:higher,HD95:lower",
			expected: schema.MetricSpec{
				{Name: "DSC", Direction: schema.HigherIsBetter},
				{Name: "HD95", Direction: schema.LowerIsBetter},
			},
		},
		{
			name:     "bare name defaults to higher",
			raw:      " DSC ",
			expected: schema.MetricSpec{{Name: "DSC", Direction: schema.HigherIsBetter}},
		},
		{
			name:     "direction is case insensitive",
			raw:      "HD95:LOWER",
			expected: schema.MetricSpec{{Name: "HD95", Direction: schema.LowerIsBetter}},
		},
		{name: "empty", raw: "", errKind: schema.KindInvalidMetricSpec},
		{name: "duplicate", raw: "DSC,DSC:lower", errKind: schema.KindInvalidMetricSpec},
		{name: "bad direction", raw: "DSC:up", errKind: schema.KindInvalidMetricSpec},
		{name: "empty name", raw: ":lower", errKind: schema.KindInvalidMetricSpec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := schema.ParseMetricSpec(tt.raw)
			if tt.errKind != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, &schema.CalcError{Kind: tt.errKind})
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, spec)
			assert.Equal(t, spec.Names(), tt.expected.Names())
		})
	}
}

func TestMetricSpecString(t *testing.T) {
	spec := schema.MetricSpec{
		{Name: "DSC", Direction: schema.HigherIsBetter},
		{Name: "HD95", Direction: schema.LowerIsBetter},
	}
	assert.Equal(t, "DSC:higher,HD95:lower", spec.String())

	parsed, err := schema.ParseMetricSpec(spec.String())
	require.NoError(t, err)
	assert.Equal(t, spec, parsed)

	def, ok := spec.Lookup("HD95")
	assert.True(t, ok)
	assert.Equal(t, schema.LowerIsBetter, def.Direction)
}

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		name     string
		drop     float64
		expected string
	}{
		{"Critical Lower", 0.20, "Critical"},
		{"High Upper", 0.199, "High"},
		{"High Lower", 0.10, "High"},
		{"Moderate Lower", 0.02, "Moderate"},
		{"Low", 0.019, "Low"},
		{"Improvement", -0.05, "Low"},
		{"Unknown", math.NaN(), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, schema.GetPlainLabel(tt.drop))
		})
	}
}

func TestEnrichRows(t *testing.T) {
	rows := []schema.ScoreRow{
		{
			Transform:   "Blur",
			Baseline:    map[string]schema.Stat{"DSC": {Mean: 0.9}},
			Degradation: map[string]schema.Stat{"DSC": {Mean: 0.27}},
		},
		{
			Transform:   "Noise",
			Baseline:    map[string]schema.Stat{"DSC": {Mean: 0.9}},
			Degradation: map[string]schema.Stat{"DSC": {Mean: 0.009}},
		},
		{
			Transform:   "Zero",
			Baseline:    map[string]schema.Stat{"DSC": {Mean: 0}},
			Degradation: map[string]schema.Stat{"DSC": {Mean: 0.1}},
		},
	}

	enriched := schema.EnrichRows(rows, "DSC")
	require.Len(t, enriched, 3)
	assert.Equal(t, 1, enriched[0].Rank)
	assert.Equal(t, "Critical", enriched[0].Label)
	assert.Equal(t, 2, enriched[1].Rank)
	assert.Equal(t, "Low", enriched[1].Label)
	assert.Equal(t, "Unknown", enriched[2].Label)
	assert.Equal(t, "Noise", enriched[1].Transform)
}

func TestResultRecords(t *testing.T) {
	stats := map[string]schema.Stat{"DSC": {Mean: 0.8, Std: 0.01}}
	r := &schema.Result{
		Metrics: schema.MetricSpec{{Name: "DSC", Direction: schema.HigherIsBetter}},
		TransformLevel: []schema.ScoreRow{
			{Group: schema.GroupKey{"a/b", "c"}, Transform: "Blur", Overall: stats, Degradation: stats},
			{Group: schema.GroupKey{"a", "b/c"}, Transform: "Blur", Overall: stats, Degradation: stats},
		},
		GroupLevel: []schema.GroupRollup{
			{Group: schema.GroupKey{}, Overall: stats, Degradation: stats},
		},
	}

	records := r.Records(7)
	require.Len(t, records, 6)

	keys := make(map[string]bool)
	for _, rec := range records {
		assert.Equal(t, int64(7), rec.RunID)
		keys[string(rec.Level)+"|"+rec.GroupKey+"|"+rec.Transform+"|"+rec.Section+"|"+rec.Metric] = true
	}
	assert.Len(t, keys, 6, "records must not collide on their natural key")

	assert.Equal(t, `["a/b","c"]`, records[0].GroupKey)
	assert.Equal(t, `["a","b/c"]`, records[2].GroupKey)
	assert.Equal(t, "[]", records[4].GroupKey)
	assert.Equal(t, schema.GroupLevel, records[4].Level)
	assert.Empty(t, records[4].Transform)
}
