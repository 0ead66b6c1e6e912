package outwriter

import (
	"os"

	"github.com/huangsam/robustscore/internal/contract"
	"golang.org/x/term"
)

// terminalWidth returns the --width override, the detected terminal width,
// or 80 when neither is available.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// GetMaxLabelWidth returns how wide the group and transform columns may be
// once every metric column has been given room.
func GetMaxLabelWidth(cfg *contract.Config) int {
	// Rank + Sev + Label, borders and padding
	reserved := 30
	// Overall and Degradation cells per metric
	reserved += len(cfg.Metrics) * 2 * (2*cfg.Precision + 10)

	available := (terminalWidth(cfg) - reserved) / 2
	switch {
	case available < 10:
		return 10
	case available > 40:
		return 40
	default:
		return available
	}
}
