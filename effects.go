package tfmx

// effectsTick runs one controller's per-tick effects processing, per spec
// section 4.6. efxRun gates the whole thing: a controller freshly armed by
// NotePort or a macro's DMAon (efxRun == 0) settles its starting period
// and volume over one tick before the running effects (address vibrato,
// pitch vibrato, portamento, envelope) start stepping; efxRun < 0 means
// the controller has no sample armed and effects are skipped entirely.
func (e *Engine) effectsTick(ctrl *controller) {
	if ctrl.efxRun < 0 {
		return
	}
	if ctrl.efxRun == 0 {
		ctrl.efxRun = 1
		e.writeBackChannel(ctrl, ctrl.destPeriod)
		return
	}

	e.addressVibratoStep(ctrl)
	e.vibratoStep(ctrl)
	e.portamentoStep(ctrl)
	e.envelopeStep(ctrl)

	period := ctrl.curPeriod
	if ctrl.portaRate != 0 {
		period = ctrl.portaPer
	}
	e.writeBackChannel(ctrl, maskPeriod(period))
}

// addressVibratoStep implements the AddBegin sample-address oscillation
// armed by macro opcode 0x11: while addBeginTime is positive, curAddr
// (and saveAddr with it) steps by addBegin every tick; each time the
// countdown runs out, addBegin flips sign and the countdown reloads from
// addBeginReset.
func (e *Engine) addressVibratoStep(ctrl *controller) {
	if ctrl.addBeginTime <= 0 {
		return
	}
	ctrl.curAddr += int32(ctrl.addBegin)
	ctrl.saveAddr = ctrl.curAddr
	ctrl.addBeginTime--
	if ctrl.addBeginTime == 0 {
		ctrl.addBegin = -ctrl.addBegin
		ctrl.addBeginTime = ctrl.addBeginReset
	}
}

// vibratoStep implements the pitch-vibrato armed by macro opcode 0x0C /
// NotePort's equivalent load, per spec section 4.6: vib_offset accumulates
// by vib_width every tick, and the period is rescaled multiplicatively
// around dest_period by a 0x800-centered fixed-point factor. vib_width
// itself flips sign every vib_reset ticks, giving the accumulator a
// triangle-wave shape rather than a flat square wave.
func (e *Engine) vibratoStep(ctrl *controller) {
	if ctrl.vibReset == 0 {
		return
	}
	ctrl.vibOffset += ctrl.vibWidth
	period := (ctrl.destPeriod * (0x800 + ctrl.vibOffset)) >> 11
	if ctrl.portaRate == 0 {
		ctrl.curPeriod = period
	}

	ctrl.vibTime--
	if ctrl.vibTime <= 0 {
		ctrl.vibTime = ctrl.vibReset
		ctrl.vibWidth = -ctrl.vibWidth
	}
}

// portamentoStep slides porta_per toward dest_period by a multiplicative
// step every porta_reset ticks, armed by macro opcode 0x0B or NotePort's
// portamento-note path. The sign of porta_rate encodes slide direction:
// a positive rate multiplies by (256+rate)/256 (rising pitch, falling
// period), a negative rate by (256+rate-128)/256 (falling pitch).
func (e *Engine) portamentoStep(ctrl *controller) {
	if ctrl.portaRate == 0 {
		return
	}
	ctrl.portaTime--
	if ctrl.portaTime > 0 {
		return
	}
	ctrl.portaTime = ctrl.portaReset
	if ctrl.portaTime == 0 {
		ctrl.portaTime = 1
	}

	mult := 256 + ctrl.portaRate
	if ctrl.portaRate < 0 {
		mult -= 128
	}
	ctrl.portaPer = (ctrl.portaPer * mult) >> 8

	reachedRising := ctrl.portaRate > 0 && ctrl.portaPer <= ctrl.destPeriod
	reachedFalling := ctrl.portaRate < 0 && ctrl.portaPer >= ctrl.destPeriod
	if reachedRising || reachedFalling {
		ctrl.portaPer = ctrl.destPeriod
		ctrl.portaRate = 0
		ctrl.curPeriod = ctrl.destPeriod
	}
}

// envelopeStep implements the linear volume ramp armed by macro opcode
// 0x0F / NotePort's equivalent load: cur_vol steps toward env_end_vol by
// env_rate every env_reset ticks, clamped to [0,64].
func (e *Engine) envelopeStep(ctrl *controller) {
	if ctrl.envReset == 0 {
		return
	}
	ctrl.envTime--
	if ctrl.envTime > 0 {
		return
	}
	ctrl.envTime = ctrl.envReset

	if ctrl.curVol < ctrl.envEndVol {
		ctrl.curVol = clampVol(ctrl.curVol + ctrl.envRate)
		if ctrl.curVol >= ctrl.envEndVol {
			ctrl.curVol = ctrl.envEndVol
			ctrl.envReset = 0
		}
	} else if ctrl.curVol > ctrl.envEndVol {
		ctrl.curVol = clampVol(ctrl.curVol - ctrl.envRate)
		if ctrl.curVol <= ctrl.envEndVol {
			ctrl.curVol = ctrl.envEndVol
			ctrl.envReset = 0
		}
	}
}

// writeBackChannel pushes a controller's current period and volume out
// to the hardware channel it owns, per spec section 4.6's final step.
// curPeriod is kept in sync so a later opcode that reads it (e.g.
// Portamento, which starts portaPer from it) sees the settled value.
func (e *Engine) writeBackChannel(ctrl *controller, period int) {
	ctrl.curPeriod = period
	hw := &e.hw[ctrl.hwIdx]
	hw.delta = deltaForPeriod(period, int(e.outRate))
	hw.sampleStart = ctrl.curAddr
	hw.sampleLength = ctrl.curLen << 1
	hw.volume = (ctrl.curVol * e.master.masterVolume) >> 6
}
