package algo

import (
	"sort"

	"github.com/huangsam/robustscore/schema"
)

// RankRows sorts rows by the Degradation mean of metric in descending order
// (most damaging transform first) and returns the top 'limit' rows. A limit
// <= 0 keeps every row. The input slice is not modified.
func RankRows(rows []schema.ScoreRow, metric string, limit int) []schema.ScoreRow {
	ranked := make([]schema.ScoreRow, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Degradation[metric].Mean > ranked[j].Degradation[metric].Mean
	})
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}
