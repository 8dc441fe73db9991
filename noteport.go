package tfmx

// opSFXLock is NotePort's special command byte for setting the SFX lock
// on a controller (spec section 4.5), distinct from the macro opcode
// space in macro.go.
const opSFXLock = 0xFC

// channelMask returns the bitmask NotePort uses to fold a command's raw
// channel nibble into a valid controller index, per spec section 4.5:
// low 2 bits in 4-voice mode, low 3 bits in 8-voice mode.
func (e *Engine) channelMask() int {
	if e.master.multimode {
		return 0x7
	}
	return 0x3
}

// notePort dispatches a single 32-bit note command into its target
// controller, per spec section 4.5. The command layout matches a pattern
// instruction word: byte0 is the note/special opcode, byte1 is param A,
// byte2 packs velocity (high nibble) and channel (low nibble), byte3 is
// param C.
func (e *Engine) notePort(cmd int32) {
	b0, pA, pB, pC, hw1 := decodeInstrWord(cmd)
	ch := int(pB&0xF) & e.channelMask()
	if ch >= len(e.controllers) {
		return
	}
	ctrl := &e.controllers[ch]

	if b0 == opSFXLock {
		ctrl.sfxFlag = pA != 0
		ctrl.sfxPriority = int(pB >> 4)
		ctrl.sfxLockTime = int(hw1)
		return
	}

	if ctrl.sfxFlag {
		return
	}

	switch {
	case b0 < 0xC0:
		e.armController(ctrl, e.macroAddr(pA), int(b0), int(int8(pC)), int(pB>>4))

	case b0 >= 0xC0 && b0 <= 0xEF:
		note := int(b0 & 0x3F)
		ctrl.destPeriod = notePeriod(note, ctrl.finetune+int(int8(pC)))
		if ctrl.portaRate == 0 {
			ctrl.portaPer = ctrl.curPeriod
			if ctrl.portaReset == 0 {
				ctrl.portaReset = 1
			}
			ctrl.portaTime = ctrl.portaReset
			ctrl.portaRate = 1
		}

	case b0 == 0xF5:
		ctrl.keyUp = int(pA)

	case b0 == 0xF6:
		vibratoLoad(ctrl, pA, pC)

	case b0 == 0xF7:
		envelopeLoad(ctrl, pA, pB, pC)
	}
}

// armController implements NotePort's byte0<0xC0 path: arm a fresh macro
// program on ctrl at macroPtr for the given note and detune.
func (e *Engine) armController(ctrl *controller, macroPtr, note, detune, velocity int) {
	ctrl.finetune = detune
	if e.dangerFreakHackActive() {
		ctrl.finetune = 0
	}
	ctrl.velocity = velocity
	ctrl.prevNote = ctrl.currNote
	ctrl.currNote = note

	e.resetEffects(ctrl)
	ctrl.macroPtr = macroPtr
	ctrl.macroStep = 0
	ctrl.macroWait = 0
	ctrl.loopCounter = 0xFFFF
	ctrl.efxRun = 0
	ctrl.newStyleMacro = 0xFF
	ctrl.keyUp = 1
	ctrl.macroRun = -1

	if e.Config.DangerFreakHack {
		hw := &e.hw[ctrl.hwIdx]
		hw.mode = 0
	}
}

func (e *Engine) dangerFreakHackActive() bool {
	return e.Config.DangerFreakHack
}

// vibratoLoad implements the shared vibrato-parameter-load body used by
// macro opcode 0x0C and NotePort's 0xF6, per spec section 4.4/4.5.
func vibratoLoad(ctrl *controller, pA, pC byte) {
	ctrl.vibReset = int(pA)
	ctrl.vibTime = ctrl.vibReset >> 1
	ctrl.vibWidth = int(int8(pC))
	ctrl.vibOffset = 0
}

// envelopeLoad implements the shared envelope-parameter-load body used
// by macro opcode 0x0F and NotePort's 0xF7.
func envelopeLoad(ctrl *controller, pA, pB, pC byte) {
	ctrl.envReset = int(pB)
	ctrl.envTime = int(pB)
	ctrl.envEndVol = int(int8(pC))
	ctrl.envRate = int(pA)
}
