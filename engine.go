package tfmx

import "github.com/8bitjam/tfmx/internal/ringbuf"

// maxBurstFrames bounds how many frames a single tick's renderTick call
// can produce, and sizes the engine's scratch mix buffers and ring
// buffer. At typical TFMX tempos a tick's burst is a few hundred frames
// even at high output rates; this leaves generous headroom.
const maxBurstFrames = 4096

// Config holds the engine's feature toggles. Unlike the song data these
// are plain on/off switches the host sets once at construction time, not
// state the playback loop mutates.
type Config struct {
	// GEMX names the GEMX player dialect. Nothing in the engine reads
	// it; setting it has no effect on playback.
	GEMX bool

	// MultiMode selects 8-voice dispatch instead of the default 4-voice
	// mode, per spec section 5.
	MultiMode bool

	// DangerFreakHack reproduces a specific player's quirk where a note
	// arm clears the active instrument's finetune and forces the
	// hardware channel's mode off before the macro re-arms it.
	DangerFreakHack bool

	// Oversampling enables linear interpolation between sample bytes in
	// the mixer instead of nearest-neighbour.
	Oversampling bool

	// Blend enables the post-filter stereo cross-blend matrix.
	Blend bool

	// FilterLevel selects the cascaded one-pole low-pass strength: 0 is
	// off, 1..3 are increasingly aggressive presets.
	FilterLevel int

	// Loops caps how many times a loop meta-row may run out of repeats
	// (and fall through to the next row) before the sequencer stops.
	// Wrapping from the last row back to the first is not counted. Zero
	// or a negative value means unlimited.
	Loops int
}

// Engine is a single TFMX playback engine instance: one loaded module,
// its full tick-driven state, and a rendering pipeline from ticks to
// host-requested stereo frames.
type Engine struct {
	Config Config

	outRate uint
	module  *Module

	master  master
	pattern patternBlock

	controllers [8]controller
	hw          [8]hwChannel
	signal      signalRegister

	mixLeft  []int32
	mixRight []int32
	outBuf   []float32

	filterStateL int32
	filterStateR int32

	eRem int
	ring *ringbuf.RingBuffer

	started       bool
	loopsDone     int
	previewEnabled bool
}

// New creates an Engine that will render at outRate samples per second.
// Load a module and call Init before the first Tick or Render.
func New(outRate uint) *Engine {
	e := &Engine{
		outRate:  outRate,
		mixLeft:  make([]int32, maxBurstFrames),
		mixRight: make([]int32, maxBurstFrames),
		outBuf:   make([]float32, maxBurstFrames*2),
		ring:     ringbuf.New(maxBurstFrames * 2),
	}
	return e
}

// Load attaches a parsed module to the engine. Call Init afterwards to
// reset playback state before starting a song.
func (e *Engine) Load(module *Module) {
	e.module = module
}

// Init resets all runtime state: hardware channels, voice controllers,
// track cursors, and the index-based cross-references between them
// (spec section 9). It does not start a song.
func (e *Engine) Init() {
	for i := range e.controllers {
		e.controllers[i] = controller{macroRun: 0, efxRun: -1, hwIdx: i}
	}
	for i := range e.hw {
		e.hw[i] = hwChannel{ctrlIdx: i}
	}
	e.signal = signalRegister{}
	e.pattern = patternBlock{}
	for t := range e.pattern.tracks {
		e.pattern.tracks[t] = trackCursor{patternNum: patternIdle}
	}
	e.master = master{masterVolume: 64}
	e.filterStateL, e.filterStateR = 0, 0
	e.eRem = 0
	e.loopsDone = 0
	e.previewEnabled = false
	e.ring.Reset()
	e.started = false
}

// StartSong begins playback of the given subsong, per spec section 4.2.
// If cont is true, the sequencer resumes from wherever it last stopped
// instead of the song's first row.
func (e *Engine) StartSong(song int, cont bool) error {
	if e.module == nil {
		return ErrNoSong
	}
	if err := e.startSong(song, cont); err != nil {
		return err
	}
	e.master.multimode = e.Config.MultiMode
	e.started = true
	return nil
}

// Stop halts the sequencer and silences every voice, without discarding
// the module or the sequencer's position.
func (e *Engine) Stop() {
	e.stopSong()
	for i := range e.hw {
		e.hw[i].mode = 0
		e.hw[i].delta = 0
	}
}

// dispatchOrder is the controller/hardware-channel indices the effects
// and macro interpreters run in one tick, per spec section 5: the first
// three voices, then (in multimode) the upper four, then the fourth
// voice last.
func (e *Engine) dispatchOrder() []int {
	if e.master.multimode {
		return []int{0, 1, 2, 4, 5, 6, 7, 3}
	}
	return []int{0, 1, 2, 3}
}

// Tick advances the engine's state by exactly one tick: every active
// controller's macro interpreter and effects processor, the master
// volume fade, and (if a song is playing) the track sequencer.
func (e *Engine) Tick() {
	for _, idx := range e.dispatchOrder() {
		ctrl := &e.controllers[idx]
		e.macroTick(ctrl)
		e.effectsTick(ctrl)
	}
	e.masterFadeTick()
	if e.master.playerEnabled {
		e.onTick()
		if e.Config.Loops > 0 && e.loopsDone >= e.Config.Loops {
			e.master.playerEnabled = false
		}
	}
}

// TriggerMacro arms macro n directly on the preview controller (index 0)
// with the given note, bypassing NotePort's instrument/channel routing.
// A zero note defaults to 0x1E, the conventional "no detune" middle
// value used by preview tools.
func (e *Engine) TriggerMacro(n int, note int) {
	if note == 0 {
		note = 0x1E
	}
	ctrl := &e.controllers[0]
	e.armController(ctrl, e.macroAddr(byte(n)), note, 0, 64)
}

// EnablePreview marks the engine as driven by direct macro triggers
// rather than a loaded song's sequencer.
func (e *Engine) EnablePreview() {
	e.previewEnabled = true
}

// Render fills left and right with up to len(left) decoded stereo
// samples and returns how many frames were written. It drives the engine
// one tick at a time, converting each tick's burst into the ring buffer,
// until the request is satisfied or the engine has nothing left to
// produce.
func (e *Engine) Render(left, right []float32) (int, error) {
	if e.module == nil {
		return 0, ErrNoSong
	}
	want := len(left)
	if len(right) < want {
		want = len(right)
	}

	written := 0
	for written < want {
		if e.ring.Available() == 0 {
			if !e.master.playerEnabled && !e.previewEnabled {
				break
			}
			e.Tick()

			capacity := e.ring.Free()
			if capacity > maxBurstFrames {
				capacity = maxBurstFrames
			}
			nb, rem := burstSize(e.master.eClocks, int(e.outRate), e.eRem, capacity)
			e.eRem = rem

			e.renderTick(nb, e.outBuf[:nb*2])
			e.ring.Write(e.outBuf[:nb*2])
		}

		n := e.ring.Read(left[written:want], right[written:want])
		if n == 0 {
			break
		}
		written += n
	}
	return written, nil
}

// TrackDisplay reports one track's current sequencing state, for host
// UIs that want to show pattern/step position without reimplementing the
// sequencer. ChannelVolumes is the full 8-controller volume snapshot,
// per spec section 6.
type TrackDisplay struct {
	PatternNum     int
	CurrentStep    int
	Active         bool
	ChannelVolumes [8]int
}

// DisplayState is a read-only snapshot of the engine's playback position,
// per spec section 6.
type DisplayState struct {
	Song     int
	Position int
	Tracks   [8]TrackDisplay
}

// DisplayState snapshots the engine's current playback position and
// per-track status.
func (e *Engine) DisplayState() DisplayState {
	ds := DisplayState{
		Song:     e.master.currentSong,
		Position: e.pattern.currentPos,
	}
	var vols [8]int
	for c := range e.controllers {
		vols[c] = e.controllers[c].curVol
	}
	for t := range e.pattern.tracks {
		track := &e.pattern.tracks[t]
		ds.Tracks[t] = TrackDisplay{
			PatternNum:     track.patternNum,
			CurrentStep:    track.step,
			Active:         !track.idle(),
			ChannelVolumes: vols,
		}
	}
	return ds
}
