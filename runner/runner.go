// Package runner ties the harness together: it decodes input, scales
// the resource budget, executes the guest and assembles the report.
package runner

import (
	"context"

	"go.uber.org/zap"

	harness "github.com/wippyai/function-harness"
	"github.com/wippyai/function-harness/engine"
	"github.com/wippyai/function-harness/errors"
	"github.com/wippyai/function-harness/logbuf"
	"github.com/wippyai/function-harness/report"
	"github.com/wippyai/function-harness/validate"
)

// Options carries the optional per-run extras the CLI wires up.
type Options struct {
	// Schema validates decoded output when set.
	Schema *validate.Validator

	// ScaleSource is query source scanned for rate directives that
	// scale the fuel budget with input size.
	ScaleSource string

	// Logs overrides the capture buffer capacities.
	Logs logbuf.Config
}

// Run executes one request end to end and returns its report. The
// error return is reserved for harness faults; every guest-side
// failure is classified into the report.
func Run(ctx context.Context, req harness.RunRequest, opts Options) (report.Report, error) {
	if err := req.Limits.Validate(); err != nil {
		return report.Report{}, err
	}

	guest, _, err := req.Codec.DecodeInput(req.Input)
	if err != nil {
		if errors.IsInternal(err) {
			return report.Report{}, err
		}
		return report.Build(req, harness.InvalidInput(err.Error()), harness.Profile{}, nil), nil
	}

	limits := req.Limits
	factor := 1.0
	if opts.ScaleSource != "" {
		factor = ScaleFactor(opts.ScaleSource, len(req.Input))
		limits = limits.Scale(factor)
		if factor > 1 {
			Logger().Debug("scaled resource budget",
				zap.Float64("factor", factor),
				zap.Uint64("fuel", limits.Fuel))
		}
	}

	capture := logbuf.NewCapture(opts.Logs)
	outcome, profile, err := engine.Execute(ctx, engine.Request{
		Module: req.Module,
		Input:  guest,
		Entry:  req.Entry,
		Limits: limits,
	}, capture)
	if err != nil {
		return report.Report{}, err
	}

	rep := report.Build(req, outcome, profile, capture)
	if factor > 1 {
		rep.ScaleFactor = factor
	}

	if rep.Status == report.StatusCompleted && opts.Schema != nil && rep.Output != nil {
		violations, err := opts.Schema.Validate(rep.Output)
		if err != nil {
			return report.Report{}, err
		}
		rep.Violations = violations
	}
	return rep, nil
}
