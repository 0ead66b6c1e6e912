package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/internal/iocache"
	"github.com/huangsam/robustscore/internal/table"
	"github.com/huangsam/robustscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var dscOnly = schema.MetricSpec{{Name: "DSC", Direction: schema.HigherIsBetter}}

// workedExampleLines has a baseline of 0.90 ± 0.01 and one transform whose
// mean drops by 0.05 per severity while its std grows by 0.01.
var workedExampleLines = []string{
	"Model,Transform,Severity,DSC",
	"unet,Clean,0,0.89", "unet,Clean,0,0.90", "unet,Clean,0,0.91",
	"unet,Noise,1,0.83", "unet,Noise,1,0.85", "unet,Noise,1,0.87",
	"unet,Noise,2,0.77", "unet,Noise,2,0.80", "unet,Noise,2,0.83",
	"unet,Noise,3,0.71", "unet,Noise,3,0.75", "unet,Noise,3,0.79",
	"unet,Noise,4,0.65", "unet,Noise,4,0.70", "unet,Noise,4,0.75",
	"unet,Noise,5,0.59", "unet,Noise,5,0.65", "unet,Noise,5,0.71",
}

func parseLines(t testing.TB, lines ...string) *schema.MetricTable {
	t.Helper()
	tbl, err := table.Parse(strings.NewReader(strings.Join(lines, "\n")), ',')
	require.NoError(t, err)
	return tbl
}

func TestCalculateWorkedExample(t *testing.T) {
	opts := schema.DefaultOptions(dscOnly, "Model")
	result, err := Calculate(context.Background(), parseLines(t, workedExampleLines...), opts)
	require.NoError(t, err)

	require.Len(t, result.TransformLevel, 1)
	row := result.TransformLevel[0]
	assert.Equal(t, schema.GroupKey{"unet"}, row.Group)
	assert.Equal(t, "Noise", row.Transform)
	assert.Equal(t, 5, row.Severities)
	assert.InDelta(t, 0.90, row.Baseline["DSC"].Mean, 1e-12)
	assert.InDelta(t, 0.01, row.Baseline["DSC"].Std, 1e-12)

	assert.InDelta(t, 0.8288721804511278, row.Overall["DSC"].Mean, 1e-9)
	assert.InDelta(t, 0.02422556390977443, row.Overall["DSC"].Std, 1e-9)
	assert.InDelta(t, 0.11208530805687206, row.Degradation["DSC"].Mean, 1e-9)
	assert.InDelta(t, 0.022417061611374405, row.Degradation["DSC"].Std, 1e-9)

	require.Len(t, result.GroupLevel, 1)
	assert.Equal(t, 1, result.GroupLevel[0].Transforms)
	assert.InDelta(t, row.Overall["DSC"].Mean, result.GroupLevel[0].Overall["DSC"].Mean, 1e-12)
	assert.Empty(t, result.Skipped)
}

func TestCalculateLowerIsBetter(t *testing.T) {
	metrics := schema.MetricSpec{{Name: "HD95", Direction: schema.LowerIsBetter}}
	tbl := parseLines(t,
		"Transform,Severity,HD95",
		"Clean,0,4", "Clean,0,4",
		"Blur,1,6", "Blur,1,6",
		"Blur,2,8", "Blur,2,8",
	)
	result, err := Calculate(context.Background(), tbl, schema.DefaultOptions(metrics))
	require.NoError(t, err)
	require.Len(t, result.TransformLevel, 1)

	row := result.TransformLevel[0]
	assert.Empty(t, row.Group)
	assert.Greater(t, row.Degradation["HD95"].Mean, 0.0)
	assert.Equal(t, 0.0, row.Degradation["HD95"].Std)
	// weights 2/3 and 4/9: (2/3*2 + 4/9*4) / (10/9) = 2.8
	assert.InDelta(t, 2.8, row.Degradation["HD95"].Mean, 1e-12)
}

func TestCalculateIdentity(t *testing.T) {
	for _, pair := range [][2]string{{"0.8", "0.9"}, {"0.83", "0.83"}, {"0.7", "0.71"}, {"0.123", "0.456"}, {"3.1", "3.5"}} {
		for _, rate := range []float64{2.0 / 3.0, 0.5, 0.1, 0.37, 0.99, 1} {
			lines := []string{"Transform,Severity,DSC", "Clean,0," + pair[0], "Clean,0," + pair[1]}
			for sev := 1; sev <= 5; sev++ {
				lines = append(lines, fmt.Sprintf("Flip,%d,%s", sev, pair[0]), fmt.Sprintf("Flip,%d,%s", sev, pair[1]))
			}
			opts := schema.DefaultOptions(dscOnly)
			opts.DecayOverall, opts.DecayDegradation = rate, rate

			result, err := Calculate(context.Background(), parseLines(t, lines...), opts)
			require.NoError(t, err)
			require.Len(t, result.TransformLevel, 1)

			row := result.TransformLevel[0]
			assert.Equal(t, row.Baseline["DSC"], row.Overall["DSC"], "values %v rate %v", pair, rate)
			assert.Equal(t, 0.0, row.Degradation["DSC"].Mean, "values %v rate %v", pair, rate)
			assert.Equal(t, 0.0, row.Degradation["DSC"].Std, "values %v rate %v", pair, rate)
		}
	}
}

func TestCalculateRollupIsUnweightedMean(t *testing.T) {
	tbl := parseLines(t,
		"Transform,Severity,DSC",
		"Clean,0,0.9",
		"Blur,1,0.8",
		"Noise,1,0.6", "Noise,2,0.5",
	)
	result, err := Calculate(context.Background(), tbl, schema.DefaultOptions(dscOnly))
	require.NoError(t, err)
	require.Len(t, result.TransformLevel, 2)
	require.Len(t, result.GroupLevel, 1)

	assert.Equal(t, "Blur", result.TransformLevel[0].Transform)
	assert.Equal(t, "Noise", result.TransformLevel[1].Transform)

	rollup := result.GroupLevel[0]
	assert.Equal(t, 2, rollup.Transforms)
	want := (result.TransformLevel[0].Degradation["DSC"].Mean + result.TransformLevel[1].Degradation["DSC"].Mean) / 2
	assert.InDelta(t, want, rollup.Degradation["DSC"].Mean, 1e-12)
}

func TestCalculateDecayRateOne(t *testing.T) {
	tbl := parseLines(t,
		"Transform,Severity,DSC",
		"Clean,0,1.0",
		"Noise,1,0.8", "Noise,2,0.6",
	)
	opts := schema.DefaultOptions(dscOnly)
	opts.DecayOverall = 1
	opts.DecayDegradation = 1
	result, err := Calculate(context.Background(), tbl, opts)
	require.NoError(t, err)

	row := result.TransformLevel[0]
	assert.InDelta(t, 0.8, row.Overall["DSC"].Mean, 1e-12)
	assert.InDelta(t, 0.3, row.Degradation["DSC"].Mean, 1e-12)
}

func TestCalculateBaselineOnlyGroup(t *testing.T) {
	tbl := parseLines(t,
		"Model,Transform,Severity,DSC",
		"a,Clean,0,0.9",
		"b,Clean,0,0.9", "b,Noise,1,0.7",
	)
	result, err := Calculate(context.Background(), tbl, schema.DefaultOptions(dscOnly, "Model"))
	require.NoError(t, err)
	require.Len(t, result.TransformLevel, 1)
	assert.Equal(t, schema.GroupKey{"b"}, result.TransformLevel[0].Group)
	require.Len(t, result.GroupLevel, 1)
}

func TestCalculateErrors(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		mutate  func(*schema.Options)
		wantErr error
	}{
		{
			name:    "missing baseline",
			lines:   []string{"Model,Transform,Severity,DSC", "a,Noise,1,0.5"},
			wantErr: schema.ErrMissingBaseline,
		},
		{
			name:    "duplicate baseline",
			lines:   []string{"Model,Transform,Severity,DSC", "a,Clean,0,0.9", "a,Clean,1,0.9", "a,Noise,1,0.5"},
			wantErr: schema.ErrDuplicateBaseline,
		},
		{
			name:    "perturbed row at clean severity",
			lines:   []string{"Model,Transform,Severity,DSC", "a,Clean,0,0.9", "a,Noise,0,0.5"},
			wantErr: schema.ErrInvalidSeverity,
		},
		{
			name:    "missing metric column",
			lines:   []string{"Model,Transform,Severity,IoU", "a,Clean,0,0.9"},
			wantErr: schema.ErrMissingColumn,
		},
		{
			name:    "invalid decay rate",
			lines:   []string{"Model,Transform,Severity,DSC", "a,Clean,0,0.9"},
			mutate:  func(o *schema.Options) { o.DecayDegradation = 1.5 },
			wantErr: schema.ErrInvalidDecayRate,
		},
		{
			name:    "empty metric spec",
			lines:   []string{"Model,Transform,Severity,DSC", "a,Clean,0,0.9"},
			mutate:  func(o *schema.Options) { o.Metrics = nil },
			wantErr: schema.ErrInvalidMetricSpec,
		},
		{
			name:    "non-numeric metric",
			lines:   []string{"Model,Transform,Severity,DSC", "a,Clean,0,high"},
			wantErr: schema.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := schema.DefaultOptions(dscOnly, "Model")
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			_, err := Calculate(context.Background(), parseLines(t, tt.lines...), opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCalculateSkipInvalid(t *testing.T) {
	tbl := parseLines(t,
		"Model,Transform,Severity,DSC",
		"a,Noise,1,0.5",
		"b,Clean,0,0.9", "b,Noise,1,0.7",
		"c,Clean,0,0.9", "c,Clean,2,0.9", "c,Noise,1,0.7",
	)
	opts := schema.DefaultOptions(dscOnly, "Model")
	opts.SkipInvalid = true

	result, err := Calculate(context.Background(), tbl, opts)
	require.NoError(t, err)
	require.Len(t, result.TransformLevel, 1)
	assert.Equal(t, schema.GroupKey{"b"}, result.TransformLevel[0].Group)

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, schema.GroupKey{"a"}, result.Skipped[0].Group)
	assert.Contains(t, result.Skipped[0].Reason, string(schema.KindMissingBaseline))
	assert.Equal(t, schema.GroupKey{"c"}, result.Skipped[1].Group)
	assert.Contains(t, result.Skipped[1].Reason, string(schema.KindDuplicateBaseline))
}

func TestScoreBucketsReportsFirstFailingGroup(t *testing.T) {
	lines := []string{"Model,Transform,Severity,DSC"}
	for i := range 40 {
		model := fmt.Sprintf("m%02d", i)
		if i == 7 || i == 31 {
			lines = append(lines, model+",Noise,1,0.5")
			continue
		}
		lines = append(lines, model+",Clean,0,0.9", model+",Noise,1,0.5")
	}
	opts := schema.DefaultOptions(dscOnly, "Model")
	opts.Workers = 8
	buckets, err := AggregateTable(parseLines(t, lines...), opts)
	require.NoError(t, err)

	for range 20 {
		_, err := ScoreBuckets(context.Background(), buckets, opts)
		var ce *schema.CalcError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, schema.GroupKey{"m07"}, ce.Group)
	}
}

func TestScoreBucketsIsDeterministic(t *testing.T) {
	tbl := parseLines(t,
		"Model,Transform,Severity,DSC",
		"b,Clean,0,0.9", "b,Noise,1,0.7", "b,Blur,2,0.6",
		"a,Clean,0,0.8", "a,Noise,1,0.7", "a,Noise,2,0.65",
	)
	opts := schema.DefaultOptions(dscOnly, "Model")
	buckets, err := AggregateTable(tbl, opts)
	require.NoError(t, err)

	first, err := ScoreBuckets(context.Background(), buckets, opts)
	require.NoError(t, err)

	reversed := make([]schema.Bucket, len(buckets))
	for i, b := range buckets {
		reversed[len(buckets)-1-i] = b
	}
	opts.Workers = 1
	second, err := ScoreBuckets(context.Background(), reversed, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, schema.GroupKey{"a"}, first.TransformLevel[0].Group)
}

func TestScoreBucketsCanceled(t *testing.T) {
	opts := schema.DefaultOptions(dscOnly, "Model")
	buckets, err := AggregateTable(parseLines(t, workedExampleLines...), opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ScoreBuckets(ctx, buckets, opts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScoreBucketsEmpty(t *testing.T) {
	result, err := ScoreBuckets(context.Background(), nil, schema.DefaultOptions(dscOnly))
	require.NoError(t, err)
	assert.NotNil(t, result.TransformLevel)
	assert.Empty(t, result.TransformLevel)
	assert.NotNil(t, result.GroupLevel)
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*schema.Options)
		wantErr error
		detail  string
	}{
		{name: "defaults are valid"},
		{name: "zero overall rate", mutate: func(o *schema.Options) { o.DecayOverall = 0 }, wantErr: schema.ErrInvalidDecayRate, detail: "overall"},
		{name: "negative degradation rate", mutate: func(o *schema.Options) { o.DecayDegradation = -0.5 }, wantErr: schema.ErrInvalidDecayRate, detail: "degradation"},
		{name: "bad direction", mutate: func(o *schema.Options) { o.Metrics = schema.MetricSpec{{Name: "DSC", Direction: "up"}} }, wantErr: schema.ErrInvalidMetricSpec},
		{name: "no transform column", mutate: func(o *schema.Options) { o.TransformColumn = "" }, wantErr: schema.ErrMissingColumn},
		{name: "no severity column", mutate: func(o *schema.Options) { o.SeverityColumn = "" }, wantErr: schema.ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := schema.DefaultOptions(dscOnly)
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			err := ValidateOptions(opts)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.detail != "" {
				assert.Contains(t, err.Error(), tt.detail)
			}
		})
	}
}

func TestAggregateTableNil(t *testing.T) {
	_, err := AggregateTable(nil, schema.DefaultOptions(dscOnly))
	assert.Error(t, err)
}

func TestRankResult(t *testing.T) {
	result := &schema.Result{
		Metrics: dscOnly,
		TransformLevel: []schema.ScoreRow{
			{Transform: "A", Degradation: map[string]schema.Stat{"DSC": {Mean: 0.1}}},
			{Transform: "B", Degradation: map[string]schema.Stat{"DSC": {Mean: 0.3}}},
			{Transform: "C", Degradation: map[string]schema.Stat{"DSC": {Mean: 0.2}}},
		},
	}

	unchanged := RankResult(result, &contract.Config{})
	assert.Same(t, result, unchanged)

	limited := RankResult(result, &contract.Config{ResultLimit: 2})
	require.Len(t, limited.TransformLevel, 2)
	assert.Equal(t, "B", limited.TransformLevel[0].Transform)
	assert.Equal(t, "C", limited.TransformLevel[1].Transform)
	assert.Len(t, result.TransformLevel, 3)
}

func writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func scoreConfig(path string) *contract.Config {
	return &contract.Config{
		InputPath:        path,
		Delimiter:        ',',
		GroupColumns:     []string{"Model"},
		TransformColumn:  schema.DefaultTransformCol,
		SeverityColumn:   schema.DefaultSeverityCol,
		CleanLabel:       schema.DefaultCleanLabel,
		CleanSeverity:    schema.DefaultCleanSeverity,
		Metrics:          dscOnly,
		DecayOverall:     schema.DefaultDecayRate,
		DecayDegradation: schema.DefaultDecayRate,
		Workers:          2,
		Precision:        3,
		Output:           schema.JSONOut,
		Level:            schema.BothLevels,
	}
}

func TestRunScoreRecordsRun(t *testing.T) {
	cfg := scoreConfig(writeInput(t, workedExampleLines...))

	analysis := &iocache.MockAnalysisStore{}
	analysis.On("BeginAnalysis", mock.Anything, cfg.InputPath, mock.Anything).Return(int64(9), nil)
	analysis.On("RecordScores", int64(9), mock.MatchedBy(func(records []schema.ScoreValueRecord) bool {
		return len(records) == 4 && records[0].RunID == 9
	})).Return(nil)
	analysis.On("EndAnalysis", int64(9), mock.Anything, 1, 1).Return(nil)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetAggregateStore").Return(nil)
	mgr.On("GetAnalysisStore").Return(analysis)

	result, err := RunScore(context.Background(), cfg, mgr)
	require.NoError(t, err)
	require.Len(t, result.TransformLevel, 1)
	analysis.AssertExpectations(t)
}

func TestRunScoreTrackingFailureIsNotFatal(t *testing.T) {
	cfg := scoreConfig(writeInput(t, workedExampleLines...))

	analysis := &iocache.MockAnalysisStore{}
	analysis.On("BeginAnalysis", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetAggregateStore").Return(nil)
	mgr.On("GetAnalysisStore").Return(analysis)

	_, err := RunScore(context.Background(), cfg, mgr)
	require.NoError(t, err)
	analysis.AssertNotCalled(t, "RecordScores", mock.Anything, mock.Anything)
}

func TestRunScoreUsesAggregateCache(t *testing.T) {
	cfg := scoreConfig(writeInput(t, workedExampleLines...))

	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), errors.New("miss"))
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetAggregateStore").Return(store)
	mgr.On("GetAnalysisStore").Return(nil)

	_, err := RunScore(context.Background(), cfg, mgr)
	require.NoError(t, err)
	store.AssertCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunScoreMissingFile(t *testing.T) {
	cfg := scoreConfig(filepath.Join(t.TempDir(), "nope.csv"))
	_, err := RunScore(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestExecuteScoreWritesOutput(t *testing.T) {
	cfg := scoreConfig(writeInput(t, workedExampleLines...))
	cfg.OutputFile = filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, ExecuteScore(context.Background(), cfg, nil))

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"transform": "Noise"`)
}

func TestBuildFormulasModel(t *testing.T) {
	model, err := BuildFormulasModel(dscOnly, 2.0/3.0, 0.5, 3)
	require.NoError(t, err)
	require.Len(t, model.Weights, 4)
	assert.Equal(t, 1.0, model.Weights[0].Overall)
	assert.InDelta(t, 4.0/9.0, model.Weights[2].Overall, 1e-12)
	assert.InDelta(t, 0.125, model.Weights[3].Degradation, 1e-12)
	require.Len(t, model.Scores, 2)
	assert.Equal(t, schema.SectionOverall, model.Scores[0].Name)

	_, err = BuildFormulasModel(dscOnly, 0, 0.5, 3)
	assert.ErrorIs(t, err, schema.ErrInvalidDecayRate)

	_, err = BuildFormulasModel(dscOnly, 0.5, 0.5, -1)
	assert.Error(t, err)
}

func BenchmarkCalculate(b *testing.B) {
	lines := []string{"Model,Transform,Severity,DSC"}
	for m := range 20 {
		for s := 0; s <= 5; s++ {
			transforms := []string{"Noise", "Blur", "Gamma"}
			if s == 0 {
				transforms = []string{"Clean"}
			}
			for _, tr := range transforms {
				for k := range 10 {
					lines = append(lines, fmt.Sprintf("m%d,%s,%d,%.3f", m, tr, s, 0.9-0.05*float64(s)+0.001*float64(k)))
				}
			}
		}
	}
	tbl := parseLines(b, lines...)
	opts := schema.DefaultOptions(dscOnly, "Model")

	b.ResetTimer()
	for b.Loop() {
		if _, err := Calculate(context.Background(), tbl, opts); err != nil {
			b.Fatal(err)
		}
	}
}
