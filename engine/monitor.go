package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	harness "github.com/wippyai/function-harness"
	"github.com/wippyai/function-harness/metering"
)

// budgetBreach aborts the guest from inside a host hook or listener.
// wazero recovers it into the error returned by Call; classification
// never inspects that error because the monitor already recorded
// which limit broke.
type budgetBreach struct {
	limit harness.Limit
}

// monitor tracks resource consumption for a single execution. All of
// its methods run on the goroutine driving the guest, so no locking
// is needed.
type monitor struct {
	limits harness.ResourceLimits

	fuelUsed   uint64
	stackBytes uint64
	peakStack  uint64
	peakMemory uint64

	breached bool
	limit    harness.Limit
}

func newMonitor(limits harness.ResourceLimits) *monitor {
	return &monitor{limits: limits}
}

// Breach reports the first limit that broke during the run.
func (m *monitor) Breach() (harness.Limit, bool) {
	return m.limit, m.breached
}

func (m *monitor) breach(limit harness.Limit) {
	if !m.breached {
		m.breached = true
		m.limit = limit
	}
	panic(budgetBreach{limit: limit})
}

// chargeFuel is the host side of the injected fuel hook. The guest
// pays the batched cost of a basic block before entering it.
func (m *monitor) chargeFuel(_ context.Context, _ api.Module, stack []uint64) {
	m.fuelUsed += uint64(uint32(stack[0]))
	if m.fuelUsed > m.limits.Fuel {
		m.breach(harness.LimitRuntime)
	}
}

// beforeGrow is the host side of the injected growth hook. It sees the
// page delta before memory.grow runs, so an over-budget growth is
// refused outright instead of detected after the fact.
func (m *monitor) beforeGrow(_ context.Context, mod api.Module, stack []uint64) {
	delta := int32(uint32(stack[0]))
	if delta <= 0 {
		return
	}
	mem := mod.Memory()
	if mem == nil {
		return
	}
	// Peak memory is not recorded here: the grow may still fail
	// against the module's own declared maximum, leaving the memory
	// untouched. noteMemory picks up the real size after the call.
	want := uint64(mem.Size()) + uint64(delta)*harness.PageSize
	if want > m.limits.MemoryBytes() {
		m.breach(harness.LimitLinearMemory)
	}
}

// noteMemory folds the current linear memory size into the peak.
// Called at instantiation and after the run so memories that never
// grow still report their static size.
func (m *monitor) noteMemory(mem api.Memory) {
	if mem == nil {
		return
	}
	if size := uint64(mem.Size()); size > m.peakMemory {
		m.peakMemory = size
	}
}

func (m *monitor) profile() harness.Profile {
	return harness.Profile{
		FuelConsumed:    m.fuelUsed,
		PeakMemoryBytes: m.peakMemory,
		PeakStackBytes:  m.peakStack,
	}
}

// NewFunctionListener implements experimental.FunctionListenerFactory.
// Host-side functions are exempt from stack accounting.
func (m *monitor) NewFunctionListener(def api.FunctionDefinition) experimental.FunctionListener {
	switch def.ModuleName() {
	case metering.HostModule, wasi_snapshot_preview1.ModuleName:
		return nil
	}
	return m
}

// frameSize estimates the native stack cost of one guest frame from
// its signature. The constants approximate a return address plus
// saved registers and one slot per value.
func frameSize(def api.FunctionDefinition) uint64 {
	return 32 + 8*uint64(len(def.ParamTypes())+len(def.ResultTypes()))
}

func (m *monitor) Before(_ context.Context, _ api.Module, def api.FunctionDefinition, _ []uint64, _ experimental.StackIterator) {
	m.stackBytes += frameSize(def)
	if m.stackBytes > m.peakStack {
		m.peakStack = m.stackBytes
	}
	if m.stackBytes > m.limits.StackBytes {
		m.breach(harness.LimitStack)
	}
}

func (m *monitor) After(_ context.Context, _ api.Module, def api.FunctionDefinition, _ []uint64) {
	m.stackBytes -= frameSize(def)
}

func (m *monitor) Abort(_ context.Context, _ api.Module, def api.FunctionDefinition, _ error) {
	m.stackBytes -= frameSize(def)
}
