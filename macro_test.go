package tfmx

import "testing"

func TestMacroDMAonArmsHardwareChannel(t *testing.T) {
	e := newTestEngine()
	ctrl := &e.controllers[0]
	ctrl.macroPtr = e.module.Macros[0] // the DMAon program at word 0
	ctrl.macroRun = -1

	e.macroTick(ctrl)

	hw := &e.hw[ctrl.hwIdx]
	if hw.mode&hwModeEnabled == 0 {
		t.Fatalf("hw.mode = %#x, want hwModeEnabled set", hw.mode)
	}
	if hw.sampleLength != 16 { // saveLen=8 words, DMAon doubles to bytes
		t.Errorf("hw.sampleLength = %d, want 16", hw.sampleLength)
	}
	if ctrl.macroRun != 0 {
		t.Errorf("macroRun = %d, want 0 after Stop", ctrl.macroRun)
	}
}

func TestMacroDMAoffResetFallsThrough(t *testing.T) {
	e := newTestEngine()
	ctrl := &e.controllers[0]
	ctrl.macroPtr = e.module.Macros[2] // the DMAoffReset program at word 5
	// DMAoff with param A == 0 keeps fetching, so end the program with a
	// Stop right after it instead of running into the pattern words.
	e.module.Words[6] = int32(uint32(opStop) << 24)
	ctrl.macroRun = -1
	ctrl.vibWidth = 7 // nonzero effects state DMAoffReset should clear

	e.macroTick(ctrl)

	if ctrl.vibWidth != 0 {
		t.Errorf("vibWidth = %d, want 0 after DMAoffReset", ctrl.vibWidth)
	}
	hw := &e.hw[ctrl.hwIdx]
	if hw.mode != 0 {
		t.Errorf("hw.mode = %#x, want 0 after DMAoff", hw.mode)
	}
}

func TestMacroWaitDoesNotPermanentlyStall(t *testing.T) {
	e := newTestEngine()
	ctrl := &e.controllers[0]
	ctrl.macroRun = -1
	ctrl.newStyleMacro = 0xFF
	ctrl.macroWait = 0 // already at zero, as if a prior opcode never reloaded it

	// A tick that fetches a Stop instruction should still execute, not
	// skip forever because macroWait is at (or below) zero.
	ctrl.macroPtr = e.module.Macros[0] + 3 // points straight at the Stop instruction
	e.macroTick(ctrl)

	if ctrl.macroRun != 0 {
		t.Errorf("macroRun = %d, want 0 (Stop executed instead of stalling)", ctrl.macroRun)
	}
}

func TestMacroLoopPostDecrement(t *testing.T) {
	ctrl := &controller{loopCounter: 1}
	e := &Engine{}

	// First call: prior (1) != 0, decrements to 0, jumps.
	if !e.macroLoop(ctrl, 3, 99) {
		t.Fatal("macroLoop returned false, want true (fall through)")
	}
	if ctrl.macroStep != 99 {
		t.Errorf("macroStep = %d, want 99 (jumped)", ctrl.macroStep)
	}

	// Second call: prior (0) == 0, releases without jumping again.
	ctrl.macroStep = 0
	if !e.macroLoop(ctrl, 3, 99) {
		t.Fatal("macroLoop returned false, want true")
	}
	if ctrl.macroStep != 0 {
		t.Errorf("macroStep = %d, want 0 (released, no jump)", ctrl.macroStep)
	}
}

func TestNotePeriodAppliesFinetune(t *testing.T) {
	base := notePeriod(0, 0)
	detuned := notePeriod(0, 16)
	if detuned <= base {
		t.Errorf("notePeriod with positive finetune = %d, want > base %d (longer period, lower pitch)", detuned, base)
	}
}

func TestClampVolBounds(t *testing.T) {
	if got := clampVol(-5); got != 0 {
		t.Errorf("clampVol(-5) = %d, want 0", got)
	}
	if got := clampVol(100); got != 64 {
		t.Errorf("clampVol(100) = %d, want 64", got)
	}
	if got := clampVol(40); got != 40 {
		t.Errorf("clampVol(40) = %d, want 40", got)
	}
}
