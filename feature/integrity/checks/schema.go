package checks

import (
	"context"

	"go.uber.org/multierr"
)

// Verifier checks a database schema.
type Verifier interface {
	Verify(ctx context.Context) error
}

// SchemaReport strictly types the result of a schema check.
type SchemaReport struct {
	Enabled bool     `json:"enabled"`
	Matched bool     `json:"matched"`
	Errors  []string `json:"errors"`
}

// CheckSchema runs v and splits combined errors into the report. A nil v
// reports a disabled database.
func CheckSchema(ctx context.Context, v Verifier) SchemaReport {
	report := SchemaReport{Errors: []string{}}
	if v == nil {
		return report
	}
	report.Enabled = true
	err := v.Verify(ctx)
	for _, e := range multierr.Errors(err) {
		report.Errors = append(report.Errors, e.Error())
	}
	report.Matched = err == nil
	return report
}
