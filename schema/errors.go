package schema

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a calculation failure.
type ErrorKind string

// All calculation error kinds.
const (
	KindMissingColumn     ErrorKind = "missing_column"
	KindMissingBaseline   ErrorKind = "missing_baseline"
	KindDuplicateBaseline ErrorKind = "duplicate_baseline"
	KindInvalidDecayRate  ErrorKind = "invalid_decay_rate"
	KindEmptyWeightSet    ErrorKind = "empty_weight_set"
	KindInvalidSeverity   ErrorKind = "invalid_severity"
	KindInvalidValue      ErrorKind = "invalid_value"
	KindEmptyBucket       ErrorKind = "empty_bucket"
	KindInvalidMetricSpec ErrorKind = "invalid_metric_spec"
)

// Sentinels for errors.Is. They match any *CalcError of the same kind.
var (
	ErrMissingColumn     = &CalcError{Kind: KindMissingColumn}
	ErrMissingBaseline   = &CalcError{Kind: KindMissingBaseline}
	ErrDuplicateBaseline = &CalcError{Kind: KindDuplicateBaseline}
	ErrInvalidDecayRate  = &CalcError{Kind: KindInvalidDecayRate}
	ErrEmptyWeightSet    = &CalcError{Kind: KindEmptyWeightSet}
	ErrInvalidSeverity   = &CalcError{Kind: KindInvalidSeverity}
	ErrInvalidValue      = &CalcError{Kind: KindInvalidValue}
	ErrEmptyBucket       = &CalcError{Kind: KindEmptyBucket}
	ErrInvalidMetricSpec = &CalcError{Kind: KindInvalidMetricSpec}
)

// CalcError is the single error type raised by the scoring pipeline.
// Group, Transform and Column carry whatever context was known at the point of failure.
type CalcError struct {
	Kind      ErrorKind
	Group     GroupKey
	Transform string
	Column    string
	Detail    string
	Err       error
}

func (e *CalcError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Group != nil {
		fmt.Fprintf(&b, " group=%s", e.Group)
	}
	if e.Transform != "" {
		fmt.Fprintf(&b, " transform=%s", e.Transform)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column=%s", e.Column)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause, such as a strconv parse error.
func (e *CalcError) Unwrap() error { return e.Err }

// Is matches on Kind so that callers can compare against the sentinels.
func (e *CalcError) Is(target error) bool {
	t, ok := target.(*CalcError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
