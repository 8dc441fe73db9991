package tfmx

// Sentinel pattern numbers, per spec section 3.
const (
	patternIdle           = 0xFF
	patternSilenceRequest = 0xFE
	patternHoldLo         = 0x80
	patternHoldHi         = 0x8F
	patternInactiveFrom   = 0x90
)

// Hardware-channel mode bits, per spec section 3.
const (
	hwModeEnabled    = 1 << 0
	hwModeRestarted  = 1 << 1
	hwModeOneShotFad = 1 << 2
)

// loopMode tags the two loop-handler variants a hardware channel can run
// when a sample loop point is reached. The original has a function
// pointer here; spec section 9 replaces it with a tagged variant
// interpreted by the mixer.
type loopMode uint8

const (
	loopOff loopMode = iota
	loopWaitDMA
)

// master holds the single, song-wide playback state (spec section 3).
type master struct {
	playerEnabled bool
	currentSong   int
	speedCount    int
	eClocks       int // tempo register ("CIA save")
	masterVolume  int // 0..64

	fadeDest  int
	fadeTime  int
	fadeReset int
	fadeSlope int

	trackLoop int
	multimode bool
}

// trackCursor is one track's pattern-interpreter cursor (spec section 4.3).
type trackCursor struct {
	patternAddr int // word index, base of this track's pattern data
	patternNum  int
	transpose   int8
	loopCount   int
	step        int
	wait        int

	returnAddr int
	returnStep int
}

func (t *trackCursor) idle() bool {
	return t.patternNum == patternIdle
}

// patternBlock is the single, song-wide pattern-sequencing state (spec
// section 3) plus the eight per-track cursors.
type patternBlock struct {
	firstPos   int
	lastPos    int
	currentPos int
	prescale   int

	tracks [8]trackCursor
}

// controller is one voice controller's runtime state (spec section 4.3/4.4
// combined — the union of macro-interpreter and effects-processor state
// a single voice carries).
type controller struct {
	macroPtr       int
	macroStep      int
	macroWait      int
	macroRun       int8 // -1 running, 0 stopped
	newStyleMacro  uint8 // 0 or 0xFF

	prevNote  int
	currNote  int
	velocity  int
	finetune  int
	keyUp     int
	reallyWait int

	loopCounter int

	curAddr  int32
	saveAddr int32
	curLen   int
	saveLen  int

	vibWidth  int
	vibOffset int
	vibTime   int
	vibReset  int

	portaRate  int
	portaTime  int
	portaReset int
	portaPer   int

	envRate   int
	envTime   int
	envReset  int
	envEndVol int

	addBegin      int
	addBeginTime  int
	addBeginReset int

	returnPtr  int
	returnStep int

	sfxFlag     bool
	sfxPriority int
	sfxLockTime int
	sfxCode     int

	curVol      int
	destPeriod  int
	curPeriod   int

	efxRun int8 // gates the effects processor: <0 idle, 0 armed-this-tick, >0 running

	waitDMACount int

	hwIdx int // owning hardware channel index
}

// hwChannel is one hardware voice slot (spec section 3).
type hwChannel struct {
	sbeg int32 // current byte pointer into the sample bank
	slen int   // current byte length

	sampleStart  int32 // saved sample region, loaded when mode arms
	sampleLength int

	pos   uint32 // 18.14 fixed-point phase
	delta uint32 // phase increment

	volume int // 0..64
	mode   uint8

	loop loopMode

	ctrlIdx int // owning controller index
}

// signalRegister is the four 16-bit host-visible cue slots (spec section 3).
type signalRegister [4]uint16
