package schema

// Options controls one calculation.
type Options struct {
	GroupColumns     []string   // Columns whose value tuple defines a group; may be empty
	TransformColumn  string     // Column naming the corruption transform
	SeverityColumn   string     // Column holding the integer severity level
	Metrics          MetricSpec // Metrics to score, in output order
	CleanLabel       string     // Transform value that marks the baseline condition
	CleanSeverity    int        // Severity value carried by baseline rows
	DecayOverall     float64    // Decay rate for Overall weights, in (0, 1]
	DecayDegradation float64    // Decay rate for Degradation weights, in (0, 1]
	Workers          int        // Parallel group workers; <= 0 means one per CPU
	SkipInvalid      bool       // Skip groups with baseline/severity problems instead of failing
}

// DefaultOptions returns options matching the conventional layout
// (Transform/Severity columns, Clean at severity 0, decay 2/3).
func DefaultOptions(metrics MetricSpec, groupColumns ...string) Options {
	return Options{
		GroupColumns:     groupColumns,
		TransformColumn:  DefaultTransformCol,
		SeverityColumn:   DefaultSeverityCol,
		Metrics:          metrics,
		CleanLabel:       DefaultCleanLabel,
		CleanSeverity:    DefaultCleanSeverity,
		DecayOverall:     DefaultDecayRate,
		DecayDegradation: DefaultDecayRate,
	}
}
