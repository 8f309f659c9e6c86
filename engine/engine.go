package engine

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	harness "github.com/wippyai/function-harness"
	"github.com/wippyai/function-harness/errors"
	"github.com/wippyai/function-harness/logbuf"
	"github.com/wippyai/function-harness/metering"
	"github.com/wippyai/function-harness/wasmbin"
)

// Request is one execution of a guest module. Input is presented to
// the guest on stdin; whatever it writes to stdout becomes the result
// channel and stderr the diagnostic channel.
type Request struct {
	Module []byte
	Input  []byte
	Entry  string
	Limits harness.ResourceLimits
}

// Execute instruments and runs a guest module under the request's
// budgets. Guest failures of every kind come back inside the Outcome;
// the error return is reserved for faults of the harness itself.
func Execute(ctx context.Context, req Request, capture *logbuf.Capture) (harness.Outcome, harness.Profile, error) {
	mon := newMonitor(req.Limits)

	parsed, err := wasmbin.ParseModule(req.Module)
	if err != nil {
		return harness.InvalidModule(err.Error()), harness.Profile{}, nil
	}
	// Only WASI is linkable by guest code; anything else would fail
	// at instantiation, which is a linkage problem, not a guest fault.
	for _, imp := range parsed.Imports {
		if imp.Module == wasi_snapshot_preview1.ModuleName || imp.Module == metering.HostModule {
			continue
		}
		return harness.InvalidModule(fmt.Sprintf("module imports %s.%s, which no host module provides", imp.Module, imp.Name)), harness.Profile{}, nil
	}
	// A declared initial memory past the budget is a limit breach for
	// this run, not a defect in the module.
	for _, mem := range parsed.Memories {
		if mem.Limits.Min > req.Limits.MemoryPages {
			return harness.LimitExceeded(harness.LimitLinearMemory), harness.Profile{}, nil
		}
	}

	instrumented, err := metering.Instrument(req.Module)
	if err != nil {
		if errors.IsInternal(err) {
			return harness.Outcome{}, harness.Profile{}, err
		}
		return harness.InvalidModule(err.Error()), harness.Profile{}, nil
	}
	Logger().Debug("instrumented module",
		zap.Int("original_bytes", len(req.Module)),
		zap.Int("instrumented_bytes", len(instrumented)))

	// The listener factory must be in scope before the runtime is
	// created so compilation picks it up.
	ctx = experimental.WithFunctionListenerFactory(ctx, mon)

	rcfg := wazero.NewRuntimeConfigInterpreter().
		WithMemoryLimitPages(req.Limits.MemoryPages).
		WithCloseOnContextDone(true)
	r := wazero.NewRuntimeWithConfig(ctx, rcfg)
	defer r.Close(ctx)

	hookSig := []api.ValueType{api.ValueTypeI32}
	_, err = r.NewHostModuleBuilder(metering.HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(mon.chargeFuel), hookSig, nil).
		Export(metering.FuelFunc).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(mon.beforeGrow), hookSig, nil).
		Export(metering.GrowFunc).
		Instantiate(ctx)
	if err != nil {
		return harness.Outcome{}, harness.Profile{}, errors.Internal("registering host hooks", err)
	}
	if _, err = wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return harness.Outcome{}, harness.Profile{}, errors.Internal("registering wasi host module", err)
	}

	compiled, err := r.CompileModule(ctx, instrumented)
	if err != nil {
		return harness.InvalidModule(err.Error()), harness.Profile{}, nil
	}
	entry := req.Entry
	if entry == "" {
		entry = harness.DefaultEntry
	}
	if _, ok := compiled.ExportedFunctions()[entry]; !ok {
		return harness.InvalidModule(fmt.Sprintf("module does not export function %q", entry)), harness.Profile{}, nil
	}

	clock := &stepClock{}
	mcfg := wazero.NewModuleConfig().
		WithName("").
		WithStdin(bytes.NewReader(req.Input)).
		WithStdout(capture.Result).
		WithStderr(capture.Diagnostic).
		WithWalltime(frozenWalltime, sys.ClockResolution(1)).
		WithNanotime(clock.nanotime, sys.ClockResolution(1)).
		WithNanosleep(clock.nanosleep).
		WithRandSource(newRandSource()).
		WithStartFunctions()

	mod, err := r.InstantiateModule(ctx, compiled, mcfg)
	if err != nil {
		outcome := classify(err, mon, capture)
		return outcome, mon.profile(), nil
	}
	mon.noteMemory(mod.Memory())

	fn := mod.ExportedFunction(entry)
	if fn == nil {
		return harness.InvalidModule(fmt.Sprintf("module does not export function %q", entry)), mon.profile(), nil
	}

	_, callErr := fn.Call(ctx)
	mon.noteMemory(mod.Memory())

	outcome := classify(callErr, mon, capture)
	Logger().Debug("execution finished",
		zap.String("outcome", outcome.Kind.String()),
		zap.Uint64("fuel_consumed", mon.fuelUsed))
	return outcome, mon.profile(), nil
}

// classify turns the error from a guest call into an Outcome. The
// monitor's breach record wins over whatever error text wazero
// produced while unwinding.
func classify(callErr error, mon *monitor, capture *logbuf.Capture) harness.Outcome {
	if limit, ok := mon.Breach(); ok {
		return harness.LimitExceeded(limit)
	}
	if callErr == nil {
		return harness.Completed(capture.Result.Bytes())
	}
	var exitErr *sys.ExitError
	if stderrors.As(callErr, &exitErr) {
		if exitErr.ExitCode() == 0 {
			return harness.Completed(capture.Result.Bytes())
		}
		return harness.Trapped(fmt.Sprintf("module exited with code: %d", exitErr.ExitCode()))
	}
	// wazero enforces its own native stack bound under the budget one.
	if strings.Contains(callErr.Error(), "stack overflow") {
		return harness.LimitExceeded(harness.LimitStack)
	}
	return harness.Trapped(callErr.Error())
}
