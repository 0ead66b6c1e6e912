// Package table reads delimited metric files into a schema.MetricTable.
package table

import (
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/huangsam/robustscore/schema"
)

// Parse reads a header row followed by data rows. Blank lines are skipped;
// rows with a different field count than the header are an error.
func Parse(r io.Reader, delimiter rune) (*schema.MetricTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("input is empty, expected a header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("duplicate column %q in header", h)
		}
		seen[h] = struct{}{}
		columns[i] = h
	}

	t := &schema.MetricTable{Columns: columns}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// ReadFile loads a metric file and returns it with a SHA-256 fingerprint of
// its contents, used to key the aggregate cache.
func ReadFile(path string, delimiter rune) (*schema.MetricTable, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	t, err := Parse(strings.NewReader(string(data)), delimiter)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return t, fmt.Sprintf("%x", sha256.Sum256(data)), nil
}
