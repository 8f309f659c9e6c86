package harness

import (
	"github.com/wippyai/function-harness/errors"
)

// PageSize is the WebAssembly linear memory page size in bytes.
const PageSize = 65536

// maxMemoryPages is the wasm32 addressing ceiling (4GiB).
const maxMemoryPages = 65536

// ResourceLimits is the per-run budget. All fields must be strictly
// positive; Validate is called before any engine resource is allocated.
type ResourceLimits struct {
	// MemoryPages caps the guest's linear memory, in 64KiB pages.
	MemoryPages uint32 `yaml:"memory_pages"`

	// StackBytes caps the estimated call-stack usage.
	StackBytes uint64 `yaml:"stack_bytes"`

	// Fuel is the instruction-cost budget. It stands in for a wall-clock
	// runtime limit so pass/fail does not depend on host speed.
	Fuel uint64 `yaml:"fuel"`
}

// DefaultLimits returns the budgets applied when the caller supplies none.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MemoryPages: 160,     // 10MiB
		StackBytes:  1 << 19, // 512KiB
		Fuel:        11_000_000,
	}
}

// Validate rejects non-positive or unaddressable budgets.
func (l ResourceLimits) Validate() error {
	if l.MemoryPages == 0 {
		return errors.InvalidConfig("memory_pages must be positive")
	}
	if l.MemoryPages > maxMemoryPages {
		return errors.InvalidConfig("memory_pages exceeds wasm32 addressable maximum")
	}
	if l.StackBytes == 0 {
		return errors.InvalidConfig("stack_bytes must be positive")
	}
	if l.Fuel == 0 {
		return errors.InvalidConfig("fuel must be positive")
	}
	return nil
}

// MemoryBytes returns the linear memory cap in bytes.
func (l ResourceLimits) MemoryBytes() uint64 {
	return uint64(l.MemoryPages) * PageSize
}

// Scale returns a copy with the fuel budget multiplied by factor.
// Factors at or below zero leave the limits unchanged. Used by the
// scale-limits analysis, which can raise the runtime budget for
// Functions whose schema declares heavier fields.
func (l ResourceLimits) Scale(factor float64) ResourceLimits {
	if factor <= 0 || factor == 1 {
		return l
	}
	scaled := l
	scaled.Fuel = uint64(float64(l.Fuel) * factor)
	if scaled.Fuel == 0 {
		scaled.Fuel = 1
	}
	return scaled
}
