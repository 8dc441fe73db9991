package tfmx

// Fixed-point constants for the resampler. pos/delta use 18.14 fixed
// point: 14 fractional bits give byte-accurate sample addressing
// (spec section 3: "the fixed-point length sample_len << 14 fits in
// 32 bits").
const (
	fracBits   = 14
	fracOne    = 1 << fracBits
	fracMask   = fracOne - 1
	minFixedLen = 4 << fracBits // spec section 4.7: skip/kill below this
)

const nominalClockHz = 3_579_545
const eClocksHz = 357_955

// deltaForPeriod converts a controller's current period into a hardware
// channel's fixed-point phase increment, per spec section 4.6. A zero
// period produces a zero delta (silence, not a divide by zero).
func deltaForPeriod(period, outRate int) uint32 {
	if period == 0 {
		return 0
	}
	denom := (period * outRate) >> 5
	if denom == 0 {
		return 0
	}
	return uint32((int64(nominalClockHz) << 9) / int64(denom))
}

// burstSize implements spec section 4.7's burst-sizing formula. e_rem is
// threaded through by the caller as a persistent accumulator so that the
// rounding error never grows unbounded across ticks.
func burstSize(eClocks, outRate, eRem, capacity int) (nb, newRem int) {
	total := eClocks*(outRate>>1) + eRem
	nb = total / eClocksHz
	newRem = total % eClocksHz
	if nb < 1 {
		nb = 1
	}
	if nb > capacity {
		nb = capacity
	}
	return nb, newRem
}

// channelMapping reports which output side(s) hardware channel ch
// contributes to, per spec section 4.7's fixed channel-to-side mapping.
// The 8-voice mapping is preserved verbatim from spec, including its
// asymmetry (channels 4..7 all mix to left, not split left/right).
func channelMapping(ch int, multimode bool) (left, right bool) {
	switch ch & 3 {
	case 0, 3:
		left = true
	case 1, 2:
		right = true
	}
	if multimode && ch >= 4 {
		left = true
		right = false
	}
	return left, right
}

// renderTick mixes exactly nb stereo frames from the eight hardware
// channels into left/right accumulators, applies the post-mix filter and
// stereo blend, and writes the result (scaled to [-1,1]) into out
// (interleaved L,R). It implements spec section 4.7 in full.
func (e *Engine) renderTick(nb int, out []float32) {
	left := e.mixLeft[:nb]
	right := e.mixRight[:nb]
	for i := range left {
		left[i] = 0
		right[i] = 0
	}

	for ci := range e.hw {
		e.mixChannel(&e.hw[ci], ci, left, right)
	}

	if e.Config.FilterLevel > 0 {
		e.applyFilter(left, right)
	}
	if e.Config.Blend {
		applyBlend(left, right)
	}

	for i := 0; i < nb; i++ {
		out[i*2+0] = clampUnit(float32(left[i]) / 32768)
		out[i*2+1] = clampUnit(float32(right[i]) / 32768)
	}
}

func clampUnit(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func (e *Engine) mixChannel(hw *hwChannel, idx int, left, right []int32) {
	if hw.mode&hwModeEnabled == 0 {
		return
	}
	l := uint32(hw.slen << fracBits)
	if l < minFixedLen {
		return
	}
	if hw.volume == 0 && hw.delta == 0 {
		return
	}

	if hw.mode == hwModeEnabled { // just armed, not yet restarted
		hw.sbeg = hw.sampleStart
		hw.slen = hw.sampleLength
		hw.pos = 0
		hw.mode |= hwModeRestarted
		l = uint32(hw.slen << fracBits)
	}

	sides := [2][]int32{left, right}
	wantLeft, wantRight := channelMapping(idx, e.master.multimode)

	samples := e.module.Samples
	vol := int32(hw.volume)

	for i := range left {
		hw.pos += hw.delta
		bytePos := hw.sbeg + int32(hw.pos>>fracBits)

		var samp int32
		if bytePos >= 0 && int(bytePos) < len(samples) {
			s0 := int32(samples[bytePos])
			if e.Config.Oversampling && int(bytePos)+1 < len(samples) {
				s1 := int32(samples[bytePos+1])
				frac := int32(hw.pos & fracMask)
				samp = s0 + ((s1-s0)*frac)>>fracBits
			} else {
				samp = s0
			}
		}

		scaled := samp * vol
		if wantLeft {
			sides[0][i] += scaled
		}
		if wantRight {
			sides[1][i] += scaled
		}

		if hw.pos >= l {
			hw.pos -= l
			hw.sbeg = hw.sampleStart
			hw.slen = hw.sampleLength
			l = uint32(hw.slen << fracBits)

			keepGoing := l >= minFixedLen
			if keepGoing {
				keepGoing = e.runLoopHandler(hw)
			}
			if !keepGoing {
				hw.mode = 0
				hw.delta = 0
				return
			}
		}
	}
}

// runLoopHandler interprets the tagged loop-handler variant described in
// spec section 9, replacing the original's function pointer.
func (e *Engine) runLoopHandler(hw *hwChannel) bool {
	switch hw.loop {
	case loopWaitDMA:
		ctrl := &e.controllers[hw.ctrlIdx]
		ctrl.waitDMACount--
		if ctrl.waitDMACount <= 0 {
			hw.loop = loopOff
			ctrl.macroRun = -1
			ctrl.macroWait = 0
		}
		return true
	default: // loopOff
		return true
	}
}

// applyFilter runs the cascaded one-pole low-pass described in spec
// section 4.7, per side, with persistent state across ticks.
func (e *Engine) applyFilter(left, right []int32) {
	inW, stW := filterWeights(e.Config.FilterLevel)
	for i := range left {
		e.filterStateL = (inW*left[i] + stW*e.filterStateL) / 4
		e.filterStateR = (inW*right[i] + stW*e.filterStateR) / 4
		left[i] = e.filterStateL
		right[i] = e.filterStateR
	}
}

func filterWeights(level int) (inW, stW int32) {
	switch level {
	case 1:
		return 3, 1
	case 2:
		return 2, 2
	case 3:
		return 1, 3
	default:
		return 4, 0
	}
}

// applyBlend runs the stereo cross-blend matrix from spec section 4.7.
func applyBlend(left, right []int32) {
	for i := range left {
		l, r := left[i], right[i]
		left[i] = (11*l + 5*r) / 16
		right[i] = (11*r + 5*l) / 16
	}
}
