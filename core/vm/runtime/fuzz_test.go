package runtime

import (
	"math/rand"
	"testing"

	"github.com/evmcore/evmcore/core/vm"
	"github.com/evmcore/evmcore/params"
)

// FuzzExecute feeds arbitrary bytecode and calldata through the
// interpreter and checks the universal invariants: no panics, gas never
// exceeds the budget, per-step gas is non-increasing, stack depth stays
// in bounds, and the exit classification is well-formed.
func FuzzExecute(f *testing.F) {
	f.Add([]byte{0x60, 0xff, 0x60, 0xff, 0x01}, []byte{})
	f.Add([]byte{0x61, 0xff, 0xff, 0x60, 0x00, 0x52, 0x60, 0x00, 0x60, 0x00, 0xf3}, []byte{})
	f.Add([]byte{0x5b, 0x60, 0x00, 0x56}, []byte{}) // jump loop until OOG
	f.Add([]byte{0xfe}, []byte{1, 2, 3})
	f.Add([]byte{0x60, 0x01, 0x60, 0x00, 0x55, 0x60, 0x00, 0x54}, []byte{})

	f.Fuzz(func(t *testing.T, code, input []byte) {
		const gasLimit = 200_000
		tracer := vm.NewStructLogTracer()
		outcome, _ := Execute(code, input, &Config{
			ForkConfig: params.CancunConfig(),
			GasLimit:   gasLimit,
			EVMConfig:  vm.Config{Tracer: tracer},
		})
		if outcome.GasUsed > gasLimit {
			t.Fatalf("gas used %d exceeds limit", outcome.GasUsed)
		}
		switch outcome.ExitReason.Kind {
		case vm.ExitSucceed, vm.ExitRevert, vm.ExitError, vm.ExitFatal:
		default:
			t.Fatalf("unknown exit kind %v", outcome.ExitReason.Kind)
		}
		if outcome.ExitReason.Kind == vm.ExitSucceed && outcome.ExitReason.Err != nil {
			t.Fatalf("successful exit with error %v", outcome.ExitReason.Err)
		}
		prevGas := uint64(gasLimit)
		prevDepth := 0
		for i, entry := range tracer.Logs {
			if len(entry.Stack) > 1024 {
				t.Fatalf("step %d: stack depth %d", i, len(entry.Stack))
			}
			// Gas within one frame never increases step over step.
			if entry.Depth == prevDepth && entry.Gas > prevGas && i > 0 {
				t.Fatalf("step %d: gas increased %d -> %d", i, prevGas, entry.Gas)
			}
			prevGas, prevDepth = entry.Gas, entry.Depth
		}
	})
}

// TestRandomProgramsDeterministic replays pseudo-random programs twice
// and demands byte-identical outcomes: same exit, same gas, same return
// data. Seeded, so failures reproduce.
func TestRandomProgramsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(1014))
	for i := 0; i < 64; i++ {
		code := make([]byte, rng.Intn(128))
		rng.Read(code)
		input := make([]byte, rng.Intn(64))
		rng.Read(input)

		run := func() (*vm.Outcome, *HostState) {
			return Execute(code, input, &Config{
				ForkConfig: params.CancunConfig(),
				GasLimit:   100_000,
			})
		}
		a, _ := run()
		b, _ := run()
		if a.ExitReason.Kind != b.ExitReason.Kind || a.GasUsed != b.GasUsed {
			t.Fatalf("program %d diverged: %v/%d vs %v/%d",
				i, a.ExitReason.Kind, a.GasUsed, b.ExitReason.Kind, b.GasUsed)
		}
		if string(a.ReturnData) != string(b.ReturnData) {
			t.Fatalf("program %d: return data diverged", i)
		}
	}
}
