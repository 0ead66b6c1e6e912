package contract

import (
	"bytes"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetColorLabel(t *testing.T) {
	tests := []struct {
		name  string
		drop  float64
		label string
	}{
		{"low", 0.01, LowValue},
		{"moderate", 0.05, ModerateValue},
		{"high", 0.15, HighValue},
		{"critical", 0.30, CriticalValue},
		{"unknown", math.NaN(), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, GetColorLabel(tt.drop), tt.label)
		})
	}
}

func TestColorDelta(t *testing.T) {
	assert.Contains(t, ColorDelta(0.1, "0.100"), "0.100")
	assert.Contains(t, ColorDelta(-0.1, "-0.100"), "-0.100")
	assert.Equal(t, "0.000", ColorDelta(0, "0.000"))
}

func TestSelectOutputFile(t *testing.T) {
	f, err := SelectOutputFile("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, f)

	path := t.TempDir() + "/out.csv"
	f, err = SelectOutputFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, path, f.Name())
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		expected string
	}{
		{"short", "UNet/Liver", 20, "UNet/Liver"},
		{"exact", "UNet/Liver", 10, "UNet/Liver"},
		{"truncated", "ResidualUNet/Liver", 10, "...t/Liver"},
		{"width too small", "ResidualUNet/Liver", 3, "ResidualUNet/Liver"},
		{"unicode", "модель/печень", 8, "...ечень"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateText(tt.text, tt.maxWidth))
		})
	}
}

func TestParseBoolString(t *testing.T) {
	tests := []struct {
		in       string
		expected bool
		wantErr  bool
	}{
		{"yes", true, false},
		{"TRUE", true, false},
		{"1", true, false},
		{"no", false, false},
		{"False", false, false},
		{"0", false, false},
		{"maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBoolString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	LogDebug("hidden stage", "rows", 10)
	assert.NotContains(t, buf.String(), "hidden stage")

	SetVerbose(true)
	defer SetVerbose(false)
	LogDebug("visible stage", "rows", 10)
	assert.Contains(t, buf.String(), "visible stage")
	assert.Contains(t, buf.String(), "rows=10")

	LogWarn("store unavailable", errors.New("boom"))
	assert.Contains(t, buf.String(), "store unavailable")
	assert.Contains(t, buf.String(), "boom")

	LogInfo("done", "groups", 3)
	assert.Contains(t, buf.String(), "groups=3")
}
