package tfmx

import (
	clone "github.com/huandu/go-clone/generic"
)

// testModule is a minimal, hand-built Module used as a cloneable template
// across the test files below, rather than round-tripping through Parse
// for every test. Words holds a handful of macro and pattern programs at
// fixed offsets; individual tests clone it and point a controller or
// track cursor at the program they want to exercise.
var testModule = Module{
	Header: Header{
		Start: [32]uint16{0: 0},
		End:   [32]uint16{0: 3},
		Tempo: [32]uint16{0: 14318},
	},
	Words: []int32{
		// 0: a DMAon macro: SetBegin(addr=0), SetLen(len=8), DMAon(efxRun=1)
		int32(uint32(opSetBegin)<<24 | 0<<16 | 0),
		int32(uint32(opSetLen)<<24 | 0<<16 | 8),
		int32(uint32(opDMAon)<<24 | 1<<16),
		int32(uint32(opStop) << 24),

		// 4: a single opLoop instruction (param A 2, jump target step 4)
		int32(uint32(opLoop)<<24 | 2<<16 | 4),

		// 5: a macro that immediately DMAoffs with reset (0x00 -> 0x13 fallthrough)
		int32(uint32(opDMAoffReset) << 24),

		// 6: a two-instruction pattern: immediate note 0x10, then End
		int32(uint32(0x10)<<24 | 0<<16 | 0<<8 | 0),
		word32(uint32(patOpEnd) << 24),

		-1,
	},
	Patterns: []int{6},
	Macros:   []int{0, 4, 5},
	Samples:  make([]int8, 64),
}

// word32 reinterprets u as a signed instruction word. A direct int32(...)
// conversion of a constant above 0x7FFFFFFF does not compile.
func word32(u uint32) int32 { return int32(u) }

// newTestEngine returns a freshly initialized Engine over a clone of
// testModule, ready for a test to arm a controller or track cursor.
func newTestEngine() *Engine {
	m := clone.Clone(testModule)
	e := New(44100)
	e.Load(&m)
	e.Init()
	return e
}
