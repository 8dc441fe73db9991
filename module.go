package tfmx

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Header mirrors the on-disk music-data header. Text fields keep their raw
// null padding (spec section 4.1: "raw bytes, null-padding preserved for
// display"); callers that want a clean string should TrimRight it
// themselves.
type Header struct {
	Magic [10]byte
	Text  [6][40]byte

	// Start, End and Tempo are parallel 32-entry sub-song tables.
	Start [32]uint16
	End   [32]uint16
	Tempo [32]uint16

	// Raw on-disk file offsets, kept around for diagnostics; the
	// resolved word indices live on Module.
	TrackStartOffset uint32
	PattStartOffset  uint32
	MacroStartOffset uint32
}

// TextLine returns header text line i (0-based, 0..5) with trailing NUL
// padding trimmed.
func (h *Header) TextLine(i int) string {
	return strings.TrimRight(string(h.Text[i][:]), "\x00")
}

// Module is the normalized, immutable result of parsing a music-data blob
// plus its companion sample bank. Nothing in the player mutates a Module
// after Parse returns it.
type Module struct {
	Header Header

	// Words is the entire post-header region of the music-data file,
	// decoded from big-endian 32-bit words, with a trailing -1 sentinel
	// appended.
	Words []int32

	// Patterns and Macros are word indices into Words (not file offsets
	// — Parse rewrites the on-disk offsets in place). Each has at most
	// 128 entries; the loader truncates the table at the first
	// misaligned or out-of-range entry rather than failing the parse.
	Patterns []int
	Macros   []int

	// TrackStart is a word index into Words where the track-step table
	// begins.
	TrackStart int

	// Samples is a borrowed view of the raw 8-bit signed PCM sample
	// bank handed to Parse. The Module never copies it.
	Samples []int8
}

const (
	headerSize       = 512
	wordByteOrigin   = 0x200 // file offset of Words[0]
	fallbackTrackPos = 0x180
	fallbackPattPos  = 0x80
	fallbackMacroPos = 0x100
	maxTableEntries  = 128
)

var recognizedMagics = []string{
	"TFMX-SONG ",
	"TFMX_SONG ",
	"TFMXSONG ",
	"TFMX ",
}

// Parse decodes a music-data blob and a raw sample bank into a Module. It
// fails only on a fatal structural problem: too short a header, or a magic
// that doesn't match one of the recognized prefixes. Everything else
// (misaligned or out-of-range pattern/macro table entries) truncates the
// relevant table instead of failing the parse, per spec section 4.1's
// failure semantics.
func Parse(musicBytes, sampleBytes []byte) (*Module, error) {
	if len(musicBytes) < headerSize {
		return nil, newFormatError("music data is %d bytes, need at least %d for the header", len(musicBytes), headerSize)
	}

	if !hasRecognizedMagic(musicBytes) {
		return nil, newFormatError("unrecognized magic %q", string(musicBytes[:10]))
	}

	var hdr Header
	copy(hdr.Magic[:], musicBytes[0:10])
	for i := 0; i < 6; i++ {
		copy(hdr.Text[i][:], musicBytes[16+i*40:16+(i+1)*40])
	}

	r := bytes.NewReader(musicBytes[256:320])
	binary.Read(r, binary.BigEndian, &hdr.Start)
	r = bytes.NewReader(musicBytes[320:384])
	binary.Read(r, binary.BigEndian, &hdr.End)
	r = bytes.NewReader(musicBytes[384:448])
	binary.Read(r, binary.BigEndian, &hdr.Tempo)

	hdr.TrackStartOffset = binary.BigEndian.Uint32(musicBytes[464:468])
	hdr.PattStartOffset = binary.BigEndian.Uint32(musicBytes[468:472])
	hdr.MacroStartOffset = binary.BigEndian.Uint32(musicBytes[472:476])

	words := decodeWords(musicBytes[headerSize:])

	m := &Module{
		Header:     hdr,
		Words:      words,
		TrackStart: resolveIndex(hdr.TrackStartOffset, fallbackTrackPos),
		Samples:    sampleBytesToInt8(sampleBytes),
	}

	pattStart := resolveIndex(hdr.PattStartOffset, fallbackPattPos)
	macroStart := resolveIndex(hdr.MacroStartOffset, fallbackMacroPos)

	m.Patterns = resolveTable(words, pattStart)
	m.Macros = resolveTable(words, macroStart)

	return m, nil
}

func hasRecognizedMagic(musicBytes []byte) bool {
	for _, prefix := range recognizedMagics {
		if len(musicBytes) >= len(prefix) && string(musicBytes[:len(prefix)]) == prefix {
			return true
		}
	}
	return false
}

// decodeWords reads the post-header region as big-endian int32 words and
// appends a -1 sentinel, per spec section 4.1.
func decodeWords(post []byte) []int32 {
	n := len(post) / 4
	words := make([]int32, n+1)
	for i := 0; i < n; i++ {
		words[i] = int32(binary.BigEndian.Uint32(post[i*4 : i*4+4]))
	}
	words[n] = -1
	return words
}

// resolveIndex implements the zero-offset fallback rule: a zero raw file
// offset uses the fixed fallback word index, otherwise the offset converts
// to a word index relative to wordByteOrigin.
func resolveIndex(rawOffset uint32, fallback int) int {
	if rawOffset == 0 {
		return fallback
	}
	return (int(rawOffset) - wordByteOrigin) / 4
}

// resolveTable walks up to maxTableEntries words starting at base, each
// holding a raw file offset. Each entry is rewritten in place to a word
// index. The scan stops (truncating the table, not failing the parse) at
// the first entry whose raw offset is misaligned (low two bits set) or
// whose resolved index falls outside Words.
func resolveTable(words []int32, base int) []int {
	var out []int
	for i := 0; i < maxTableEntries; i++ {
		pos := base + i
		if pos < 0 || pos >= len(words) {
			break
		}
		raw := uint32(words[pos])
		if raw&3 != 0 {
			break
		}
		idx := (int(raw) - wordByteOrigin) / 4
		if idx < 0 || idx >= len(words) {
			break
		}
		words[pos] = int32(idx)
		out = append(out, idx)
	}
	return out
}

func sampleBytesToInt8(b []byte) []int8 {
	s := make([]int8, len(b))
	for i, v := range b {
		s[i] = int8(v)
	}
	return s
}

// TrackStepCount returns the number of trackstep lines, derived from the
// distance between TrackStart and the first resolved pattern-table entry
// (each line is 4 words), per spec section 4.1's closing formula. It
// returns 0 if there are no resolved pattern-table entries.
func (m *Module) TrackStepCount() int {
	if len(m.Patterns) == 0 {
		return 0
	}
	n := (m.Patterns[0] - m.TrackStart) / 4
	if n < 0 {
		return 0
	}
	return n
}

// CountSubSongs returns the largest i+1 for which Header.End[i] > 0, i.e.
// the number of sub-songs with meaningful end-position metadata.
func CountSubSongs(m *Module) int {
	n := 0
	for i, end := range m.Header.End {
		if end > 0 {
			n = i + 1
		}
	}
	return n
}
