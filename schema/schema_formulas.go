package schema

// SeverityWeight is the weight a severity level receives for each score.
type SeverityWeight struct {
	Severity    int     `json:"severity" yaml:"severity"`
	Overall     float64 `json:"overall" yaml:"overall"`
	Degradation float64 `json:"degradation" yaml:"degradation"`
}

// ScoreDefinition describes one of the two robustness scores.
type ScoreDefinition struct {
	Name      string  `json:"name" yaml:"name"`
	Purpose   string  `json:"purpose" yaml:"purpose"`
	Formula   string  `json:"formula" yaml:"formula"`
	DecayRate float64 `json:"decay_rate" yaml:"decay_rate"`
}

// FormulasRenderModel contains all processed data needed for displaying score definitions.
type FormulasRenderModel struct {
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Scores      []ScoreDefinition `json:"scores" yaml:"scores"`
	Weights     []SeverityWeight  `json:"weights" yaml:"weights"`
	Metrics     MetricSpec        `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Notes       map[string]string `json:"notes" yaml:"notes"`
}
