package tfmx

import "testing"

func TestStartSongResetsTracksToIdle(t *testing.T) {
	e := newTestEngine()
	e.pattern.tracks[2] = trackCursor{patternNum: 5, step: 7}
	// startSong loads the first trackstep row; make it leave every track
	// unchanged (0xFF) so only the reset is visible.
	for w := 0; w < 4; w++ {
		e.module.Words[w] = word32(uint32(0xFF00)<<16 | 0xFF00)
	}

	if err := e.startSong(0, false); err != nil {
		t.Fatalf("startSong failed: %v", err)
	}
	for i, track := range e.pattern.tracks {
		if !track.idle() {
			t.Errorf("track %d not idle after startSong: %+v", i, track)
		}
	}
	if e.pattern.currentPos != e.pattern.firstPos {
		t.Errorf("currentPos = %d, want firstPos %d", e.pattern.currentPos, e.pattern.firstPos)
	}
	if !e.master.playerEnabled {
		t.Error("playerEnabled = false, want true after startSong")
	}
}

func TestStartSongRejectsOutOfRangeIndex(t *testing.T) {
	e := newTestEngine()
	if err := e.startSong(999, false); err == nil {
		t.Fatal("expected error for out-of-range song index, got nil")
	}
}

func TestStartSongContPreservesPosition(t *testing.T) {
	e := newTestEngine()
	e.startSong(0, false)
	e.pattern.currentPos = 42

	if err := e.startSong(0, true); err != nil {
		t.Fatalf("startSong(cont) failed: %v", err)
	}
	if e.pattern.currentPos != 42 {
		t.Errorf("currentPos = %d, want 42 preserved by cont=true", e.pattern.currentPos)
	}
}

func TestOnTickDecrementsSpeedCount(t *testing.T) {
	e := newTestEngine()
	e.master.playerEnabled = true
	e.master.speedCount = 2
	before := e.pattern.currentPos

	e.onTick()
	if e.pattern.currentPos != before {
		t.Errorf("currentPos advanced = %d, want unchanged %d: every track is idle so nothing has a row to advance", e.pattern.currentPos, before)
	}
	if e.master.speedCount != 1 {
		t.Errorf("speedCount = %d, want 1", e.master.speedCount)
	}
}

// TestOnTickReloadsSpeedCountFromPrescale checks that on_tick's post-
// decrement gate only reloads speed_count itself from prescale; it does
// not gate the track loop (that runs unconditionally every tick).
func TestOnTickReloadsSpeedCountFromPrescale(t *testing.T) {
	e := newTestEngine()
	e.master.playerEnabled = true
	e.master.speedCount = 0
	e.pattern.prescale = 4

	e.onTick()
	if e.master.speedCount != 4 {
		t.Errorf("speedCount = %d, want reloaded to prescale 4", e.master.speedCount)
	}
}

// TestOnTickTicksTracksRegardlessOfSpeedCount confirms every track's
// pattern cursor is ticked every tick, even while speed_count is still
// counting down toward its next reload.
func TestOnTickTicksTracksRegardlessOfSpeedCount(t *testing.T) {
	e := newTestEngine()
	e.master.playerEnabled = true
	e.master.speedCount = 5 // still counting down

	// Pattern 2 is a single Wait at word 8, so the track loop that End
	// restarts settles instead of ending the same pattern again.
	e.module.Patterns = []int{6, 6, 8}
	e.module.Words[8] = word32(uint32(patOpWait)<<24 | 1)
	e.module.Words[0] = int32(uint32(0x0200)<<16 | 0xFF00) // track 0: pattern 2; tracks 1-7 idle
	e.module.Words[1] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[2] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[3] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.pattern.firstPos = 0
	e.pattern.lastPos = 0

	track := &e.pattern.tracks[0]
	track.patternAddr = e.module.Patterns[0] // word 6: note, word 7: End
	track.patternNum = 0

	e.onTick()
	if e.pattern.tracks[0].patternNum != 2 {
		t.Errorf("tracks[0].patternNum = %d, want 2: track must tick (End reloads the row) even while speedCount > 0", e.pattern.tracks[0].patternNum)
	}
}

func TestDispatchMetaRowStopsSong(t *testing.T) {
	e := newTestEngine()
	e.master.playerEnabled = true
	e.module.Words[0] = word32(uint32(metaRowSentinel)<<16 | metaStop)

	e.dispatchMetaRow(0)
	if e.master.playerEnabled {
		t.Error("playerEnabled = true, want false after a stop meta row")
	}
}

func TestDispatchMetaRowSpeedChange(t *testing.T) {
	e := newTestEngine()
	e.pattern.firstPos = 0
	e.pattern.lastPos = 1
	e.pattern.currentPos = 0
	e.module.Words[0] = word32(uint32(metaRowSentinel)<<16 | metaSpeed)
	e.module.Words[1] = int32(uint32(5)<<16 | 100) // prescale=5, divisor halfword=100
	e.module.Words[4] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[5] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[6] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[7] = word32(uint32(0xFF00)<<16 | 0xFF00)

	e.dispatchMetaRow(0)
	if want := 0x1B51F8 / 100; e.master.eClocks != want {
		t.Errorf("eClocks = %d, want %d", e.master.eClocks, want)
	}
	if e.pattern.prescale != 5 {
		t.Errorf("prescale = %d, want 5", e.pattern.prescale)
	}
	if e.pattern.currentPos != 1 {
		t.Errorf("currentPos = %d, want 1 after the speed row advances", e.pattern.currentPos)
	}
}

// TestDispatchMetaRowLoopJumpsWhileCounting exercises the loop
// subcommand's default branch: a positive track_loop decrements and
// jumps current_pos to the row's target halfword.
func TestDispatchMetaRowLoopJumpsWhileCounting(t *testing.T) {
	e := newTestEngine()
	e.master.trackLoop = 2
	e.module.Words[0] = word32(uint32(metaRowSentinel)<<16 | metaLoop)
	e.module.Words[1] = int32(uint32(1)<<16 | 0) // jump target = position 1
	e.module.Words[4] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[5] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[6] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[7] = word32(uint32(0xFF00)<<16 | 0xFF00)

	e.dispatchMetaRow(0)
	if e.master.trackLoop != 1 {
		t.Errorf("trackLoop = %d, want 1 (decremented)", e.master.trackLoop)
	}
	if e.pattern.currentPos != 1 {
		t.Errorf("currentPos = %d, want 1 (jumped)", e.pattern.currentPos)
	}
}

// TestDispatchMetaRowLoopExhaustedAdvances exercises the loop
// subcommand's prior==0 branch: the loop has run out, so the sequencer
// falls through to the next row instead of jumping, and loopsDone counts
// the pass.
func TestDispatchMetaRowLoopExhaustedAdvances(t *testing.T) {
	e := newTestEngine()
	e.master.trackLoop = 0
	e.pattern.firstPos = 0
	e.pattern.lastPos = 5
	e.pattern.currentPos = 0
	doneBefore := e.loopsDone
	e.module.Words[0] = word32(uint32(metaRowSentinel)<<16 | metaLoop)
	e.module.Words[1] = int32(uint32(3)<<16 | 0)
	e.module.Words[4] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[5] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[6] = word32(uint32(0xFF00)<<16 | 0xFF00)
	e.module.Words[7] = word32(uint32(0xFF00)<<16 | 0xFF00)

	e.dispatchMetaRow(0)
	if e.loopsDone != doneBefore+1 {
		t.Errorf("loopsDone = %d, want %d", e.loopsDone, doneBefore+1)
	}
	if e.pattern.currentPos != 1 {
		t.Errorf("currentPos = %d, want 1 (advanced, not jumped)", e.pattern.currentPos)
	}
}

func TestAssignTrackIdleSentinelLeavesCursorUntouched(t *testing.T) {
	e := newTestEngine()
	e.pattern.tracks[1] = trackCursor{patternNum: 3, step: 10}

	e.assignTrack(1, patternIdle, 0)
	if e.pattern.tracks[1].patternNum != 3 || e.pattern.tracks[1].step != 10 {
		t.Errorf("track mutated by idle sentinel: %+v", e.pattern.tracks[1])
	}
}

func TestAssignTrackNormalAssignment(t *testing.T) {
	e := newTestEngine()

	e.assignTrack(0, 0, 5) // pattern 0, transpose 5
	track := &e.pattern.tracks[0]
	if track.patternNum != 0 {
		t.Errorf("patternNum = %d, want 0", track.patternNum)
	}
	if track.transpose != 5 {
		t.Errorf("transpose = %d, want 5", track.transpose)
	}
	if track.loopCount != 0xFFFF {
		t.Errorf("loopCount = %#x, want 0xFFFF reset", track.loopCount)
	}
}

func TestMasterFadeTickRampsToDestination(t *testing.T) {
	e := newTestEngine()
	e.master.masterVolume = 0
	e.master.fadeDest = 64
	e.master.fadeTime = 2
	e.master.fadeSlope = 32

	e.masterFadeTick()
	if e.master.masterVolume != 32 {
		t.Errorf("masterVolume after first tick = %d, want 32", e.master.masterVolume)
	}
	e.masterFadeTick()
	if e.master.masterVolume != 64 {
		t.Errorf("masterVolume after fade completes = %d, want 64 (snapped to dest)", e.master.masterVolume)
	}
}
