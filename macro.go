package tfmx

// Macro opcodes, per spec section 4.4's table. Values are the full
// instruction byte (byte 0 of the 32-bit word), not a nibble.
const (
	opDMAoffReset  = 0x00
	opDMAon        = 0x01
	opSetBegin     = 0x02
	opSetLen       = 0x03
	opWait         = 0x04
	opLoop         = 0x05
	opCont         = 0x06
	opStop         = 0x07
	opAddNote      = 0x08
	opSetNote      = 0x09
	opResetEffects = 0x0A
	opPortamento   = 0x0B
	opVibrato      = 0x0C
	opAddVolume    = 0x0D
	opSetVolume    = 0x0E
	opEnvelope     = 0x0F
	opLoopKeyUp    = 0x10
	opAddBegin     = 0x11
	opAddLen       = 0x12
	opDMAoff       = 0x13
	opWaitKeyUp    = 0x14
	opGoSub        = 0x15
	opReturn       = 0x16
	opSetPeriod    = 0x17
	opSampleloop   = 0x18
	opOneShot      = 0x19
	opWaitOnDMA    = 0x1A
	opRandom       = 0x1B // NOP, spec section 9 open question
	opSplitKey     = 0x1C
	opSplitVol     = 0x1D
	opAddVolPlusNt = 0x1E // NOP, spec section 9 open question
	opSetPrevNote  = 0x1F
	opCue          = 0x20
	opPlayMacro    = 0x21
)

// decodeInstrWord splits a 32-bit macro/pattern instruction into its byte
// fields and its combined halfword1 (bytes 2..3), per spec section 4.3.
func decodeInstrWord(w int32) (b0, pA, pB, pC byte, hw1 uint16) {
	u := uint32(w)
	return byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u), uint16(u)
}

// fetchWord reads Words[base+step], treating an out-of-range index as the
// OutOfRange condition from spec section 7: the read recovers locally as
// if the word were zero, and playback continues.
func (e *Engine) fetchWord(base, step int) int32 {
	idx := base + step
	if idx < 0 || idx >= len(e.module.Words) {
		return 0
	}
	return e.module.Words[idx]
}

// macroTick advances one controller's macro program by one tick, per
// spec section 4.4's fetch-decode-execute loop.
func (e *Engine) macroTick(ctrl *controller) {
	ctrl.macroWait--
	if ctrl.macroRun == 0 || ctrl.macroWait > 0 {
		return
	}

	for {
		word := e.fetchWord(ctrl.macroPtr, ctrl.macroStep)
		ctrl.macroStep++
		op, pA, pB, pC, hw1 := decodeInstrWord(word)

		if !e.execMacroOp(ctrl, op, pA, pB, pC, hw1) {
			return
		}
	}
}

// execMacroOp executes one macro instruction. It returns true to keep
// fetching instructions in the same tick ("fall through"/"break" in spec
// section 4.4's table), or false to stop ("return") — the note/effect
// change settles on the following tick.
func (e *Engine) execMacroOp(ctrl *controller, op, pA, pB, pC byte, hw1 uint16) bool {
	switch op {
	case opDMAoffReset:
		e.resetEffects(ctrl)
		return e.macroDMAoff(ctrl, pA)

	case opDMAoff:
		return e.macroDMAoff(ctrl, pA)

	case opDMAon:
		ctrl.efxRun = int8(pA)
		hw := &e.hw[ctrl.hwIdx]
		hw.mode = hwModeEnabled
		hw.loop = loopOff
		sl := ctrl.saveLen << 1
		if ctrl.saveLen == 0 {
			sl = 131072
		}
		hw.sampleStart = ctrl.saveAddr
		hw.sampleLength = sl
		return true

	case opSetBegin:
		addr := int32(uint32(pA)<<16 | uint32(hw1))
		ctrl.saveAddr = addr
		ctrl.curAddr = addr
		return true

	case opAddBegin:
		ctrl.addBeginTime = int(pA)
		ctrl.addBeginReset = int(pA)
		ctrl.addBegin = int(int16(hw1))
		ctrl.saveAddr = ctrl.curAddr + int32(ctrl.addBegin)
		ctrl.curAddr = ctrl.saveAddr
		return true

	case opSetLen:
		ctrl.saveLen = int(hw1)
		ctrl.curLen = int(hw1)
		return true

	case opAddLen:
		ctrl.curLen = (ctrl.curLen + int(hw1)) & 0xFFFF
		ctrl.saveLen = ctrl.curLen
		return true

	case opWait:
		if pA&1 != 0 {
			prior := ctrl.reallyWait
			ctrl.reallyWait++
			if prior != 0 {
				return false
			}
		}
		ctrl.macroWait = int(hw1)
		return e.maybeWait(ctrl)

	case opWaitOnDMA:
		e.hw[ctrl.hwIdx].loop = loopWaitDMA
		ctrl.waitDMACount = int(hw1)
		ctrl.macroRun = 0
		return e.maybeWait(ctrl)

	case opSplitKey:
		if ctrl.currNote > int(pA) {
			ctrl.macroStep = int(hw1)
		}
		return true

	case opSplitVol:
		if ctrl.curVol > int(pA) {
			ctrl.macroStep = int(hw1)
		}
		return true

	case opLoopKeyUp:
		if ctrl.keyUp == 0 {
			return true
		}
		return e.macroLoop(ctrl, pA, hw1)

	case opLoop:
		return e.macroLoop(ctrl, pA, hw1)

	case opStop:
		ctrl.macroRun = 0
		return false

	case opAddVolume:
		if pB != 0xFE {
			ctrl.curVol = clampVol(ctrl.velocity*3 + int(int8(pC)))
		}
		return true

	case opSetVolume:
		if pB != 0xFE {
			ctrl.curVol = int(pC)
		}
		return true

	case opAddNote:
		note := ctrl.currNote + int(pA)
		ctrl.destPeriod = notePeriod(note, ctrl.finetune+int(int8(pC)))
		if ctrl.portaRate == 0 {
			ctrl.curPeriod = ctrl.destPeriod
		}
		return e.maybeWait(ctrl)

	case opSetNote:
		ctrl.destPeriod = notePeriod(int(pA), ctrl.finetune+int(int8(pC)))
		if ctrl.portaRate == 0 {
			ctrl.curPeriod = ctrl.destPeriod
		}
		return e.maybeWait(ctrl)

	case opSetPrevNote:
		note := ctrl.prevNote + int(pA)
		ctrl.destPeriod = notePeriod(note, ctrl.finetune+int(int8(pC)))
		if ctrl.portaRate == 0 {
			ctrl.curPeriod = ctrl.destPeriod
		}
		return e.maybeWait(ctrl)

	case opSetPeriod:
		ctrl.destPeriod = int(hw1)
		if ctrl.portaRate == 0 {
			ctrl.curPeriod = ctrl.destPeriod
		}
		return true

	case opPortamento:
		ctrl.portaReset = int(pA)
		ctrl.portaTime = 1
		ctrl.portaRate = int(int16(hw1))
		ctrl.portaPer = ctrl.curPeriod
		return true

	case opVibrato:
		vibratoLoad(ctrl, pA, pC)
		return true

	case opEnvelope:
		envelopeLoad(ctrl, pA, pB, pC)
		return true

	case opResetEffects:
		e.resetEffects(ctrl)
		return true

	case opWaitKeyUp:
		if ctrl.keyUp != 0 {
			ctrl.loopCounter = int(pC)
			ctrl.macroStep--
			return false
		}
		return true

	case opGoSub:
		ctrl.returnPtr = ctrl.macroPtr
		ctrl.returnStep = ctrl.macroStep
		fallthrough
	case opCont:
		ctrl.macroPtr = e.macroAddr(pA)
		ctrl.macroStep = int(hw1)
		ctrl.loopCounter = 0xFFFF
		return true

	case opReturn:
		ctrl.macroPtr = ctrl.returnPtr
		ctrl.macroStep = ctrl.returnStep
		return true

	case opSampleloop:
		off := int(hw1) &^ 1
		ctrl.saveAddr += int32(off)
		ctrl.saveLen -= off >> 1
		return true

	case opOneShot:
		ctrl.saveAddr = 0
		ctrl.curAddr = 0
		ctrl.saveLen = 1
		return true

	case opCue:
		e.writeSignal(int(pA), hw1)
		return true

	case opPlayMacro:
		e.replayNoteOnChannel(ctrl, int(pB&0xF))
		return true

	case opRandom, opAddVolPlusNt:
		return true // unspecified per spec section 9, treated as NOP

	default:
		return true // unknown opcode, spec section 7: silently a NOP
	}
}

// macroDMAoff implements the body shared by opcodes 0x00 (which falls
// through into it after resetting effects state) and 0x13, per spec
// section 9's instruction to inline the fall-through explicitly.
func (e *Engine) macroDMAoff(ctrl *controller, paramA byte) bool {
	hw := &e.hw[ctrl.hwIdx]
	hw.loop = loopOff
	if paramA == 0 {
		hw.mode = 0
		if ctrl.newStyleMacro != 0 {
			hw.sampleLength = 0
		}
		return true
	}
	hw.mode |= hwModeOneShotFad
	ctrl.newStyleMacro = 0
	return false
}

// macroLoop implements the shared post-decrement loop-counter body used
// by opcodes 0x05 (Loop) and 0x10 (LoopKeyUp, once its own key-up gate
// passes).
func (e *Engine) macroLoop(ctrl *controller, paramA byte, hw1 uint16) bool {
	prior := ctrl.loopCounter
	ctrl.loopCounter--
	if prior == 0 {
		return true // released
	}
	if prior < 0 {
		ctrl.loopCounter = int(paramA) - 1
	}
	ctrl.macroStep = int(hw1)
	return true
}

// resetEffects clears envelope/vibrato/portamento/add-begin state, per
// spec section 4.4 opcodes 0x00 and 0x0A.
func (e *Engine) resetEffects(ctrl *controller) {
	ctrl.envReset, ctrl.envTime, ctrl.envRate, ctrl.envEndVol = 0, 0, 0, 0
	ctrl.vibReset, ctrl.vibTime, ctrl.vibWidth, ctrl.vibOffset = 0, 0, 0, 0
	ctrl.portaRate, ctrl.portaTime, ctrl.portaReset = 0, 0, 0
	ctrl.addBegin, ctrl.addBeginTime, ctrl.addBeginReset = 0, 0, 0
}

// maybeWait implements the MAYBEWAIT policy from spec section 4.4: a
// freshly-armed ("new style") macro returns so the note settles over one
// tick; once new_style_macro has been cleared by a DMAoff, later
// note-setting opcodes fall through immediately.
func (e *Engine) maybeWait(ctrl *controller) bool {
	return ctrl.newStyleMacro == 0
}

func (e *Engine) macroAddr(n byte) int {
	if int(n) >= len(e.module.Macros) {
		return 0
	}
	return e.module.Macros[n]
}

// notePeriod looks up notevals[note & 0x3F] and applies finetune, per the
// AddNote/SetNote/SetPrevNote formula in spec section 4.4.
func notePeriod(note, finetune int) int {
	base := noteValues[note&0x3F]
	return (base * (256 + finetune)) >> 8
}

func clampVol(v int) int {
	if v < 0 {
		return 0
	}
	if v > 64 {
		return 64
	}
	return v
}

func maskPeriod(p int) int {
	return p & 0x7FF
}

func (e *Engine) writeSignal(slot int, value uint16) {
	if slot < 0 || slot >= len(e.signal) {
		return
	}
	e.signal[slot] = value
}

// replayNoteOnChannel implements opcode 0x21 (PlayMacro): replay the
// macro currently running on ctrl onto another controller, with the same
// note and velocity. Unlike NotePort's own note-arm path this does not
// re-resolve an instrument number — it restarts the same macro program.
func (e *Engine) replayNoteOnChannel(ctrl *controller, targetCh int) {
	if targetCh < 0 || targetCh >= len(e.controllers) {
		return
	}
	target := &e.controllers[targetCh]
	if target.sfxFlag {
		return
	}
	e.armController(target, ctrl.macroPtr, ctrl.currNote, 0, ctrl.velocity)
}
