// Package outwriter renders score results and formula sheets in every
// supported output format.
package outwriter

import (
	"time"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/schema"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteResult prints a calculation result using the configured output format.
func (ow *OutWriter) WriteResult(result *schema.Result, cfg *contract.Config, duration time.Duration) error {
	return WriteScoreResults(result, cfg, duration)
}

// WriteFormulas prints the score definitions using the configured output format.
func (ow *OutWriter) WriteFormulas(model *schema.FormulasRenderModel, cfg *contract.Config) error {
	return PrintFormulas(model, cfg)
}
