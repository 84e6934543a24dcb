package starline

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecoderCapturedFrame(t *testing.T) {
	const logical = 0xA0A1A2A3A4A5B4C1
	transmitted := bits.Reverse64(logical)

	var edges []Edge
	for i := 0; i < 6; i++ {
		edges = append(edges, Edge{true, 1000}, Edge{false, 1000})
	}
	for i := 63; i >= 0; i-- {
		d := uint32(TeShort)
		if transmitted>>uint(i)&1 == 1 {
			d = TeLong
		}
		edges = append(edges, Edge{true, d}, Edge{false, d})
	}
	edges = append(edges, Edge{true, 620})

	codes := feedAll(NewDecoder(), edges)
	require.Len(t, codes, 1)
	assert.Equal(t, transmitted, codes[0].Data)
	assert.Equal(t, uint32(64), codes[0].BitCount)
	assert.Equal(t, uint32(0xA0A1A2A3), codes[0].Fix())
	assert.Equal(t, uint32(0xA4A5B4C1), codes[0].Hop())
}

func TestDecoderBitCountBounds(t *testing.T) {
	const data = 0x8000000000000001

	tests := []struct {
		name     string
		bitCount uint32
		wantEmit bool
	}{
		{name: "63 bits rejected", bitCount: 63, wantEmit: false},
		{name: "64 bits accepted", bitCount: 64, wantEmit: true},
		{name: "65 bits accepted", bitCount: 65, wantEmit: true},
		{name: "66 bits accepted", bitCount: 66, wantEmit: true},
		{name: "67 bits rejected", bitCount: 67, wantEmit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			codes := feedAll(d, frameWithTerminator(data, tt.bitCount))

			if !tt.wantEmit {
				if len(codes) != 0 {
					t.Fatalf("emitted %d codes, want none", len(codes))
				}
				return
			}
			if len(codes) != 1 {
				t.Fatalf("emitted %d codes, want 1", len(codes))
			}
			if codes[0].Data != data {
				t.Errorf("data = 0x%016X, want 0x%016X", codes[0].Data, uint64(data))
			}
			if codes[0].BitCount != tt.bitCount {
				t.Errorf("bit count = %d, want %d", codes[0].BitCount, tt.bitCount)
			}
			if d.State() != StateIdle {
				t.Errorf("state = %s, want idle", d.State())
			}
		})
	}
}

func TestDecoderKeepsLastBitsOfLongFrames(t *testing.T) {
	// 65 bits: a 1, 63 zeros, a 1. The leading 1 is shifted out.
	var edges []Edge
	for i := 0; i < PreamblePairs; i++ {
		edges = append(edges, Edge{true, 2 * TeLong}, Edge{false, 2 * TeLong})
	}
	for i := 0; i < 65; i++ {
		d := uint32(TeShort)
		if i == 0 || i == 64 {
			d = TeLong
		}
		edges = append(edges, Edge{true, d}, Edge{false, d})
	}
	edges = append(edges, Edge{true, 2 * TeLong})

	codes := feedAll(NewDecoder(), edges)
	require.Len(t, codes, 1)
	assert.Equal(t, uint64(1), codes[0].Data)
	assert.Equal(t, uint32(65), codes[0].BitCount)
}

func TestDecoderSuppressesRepeatedFrames(t *testing.T) {
	d := NewDecoder()
	frame := frameWithTerminator(0x0123456789ABCDEF, 64)

	codes := feedAll(d, append(append([]Edge{}, frame...), frame...))
	require.Len(t, codes, 1)

	// A different code is emitted again
	codes = feedAll(d, frameWithTerminator(0x0123456789ABCDEE, 64))
	require.Len(t, codes, 1)
	assert.Equal(t, uint64(0x0123456789ABCDEE), codes[0].Data)

	// Reset clears the duplicate filter
	d.Reset()
	codes = feedAll(d, frameWithTerminator(0x0123456789ABCDEE, 64))
	assert.Len(t, codes, 1)
}

func TestDecoderContinuousTransmission(t *testing.T) {
	// Back-to-back repeats: each preamble's first pulse closes the
	// previous frame
	tx, err := NewEncoder().Build(RollingCode{Data: 0xCAFEBABE12345678, BitCount: 64, Repeat: 3}, nil)
	require.NoError(t, err)

	d := NewDecoder()
	var codes []RollingCode
	for e, ok := tx.Next(); ok; e, ok = tx.Next() {
		if code, emitted := d.Feed(e.Level, e.Duration); emitted {
			codes = append(codes, code)
		}
	}
	if code, emitted := d.Feed(true, 2*TeLong); emitted {
		codes = append(codes, code)
	}

	require.Len(t, codes, 1)
	assert.Equal(t, uint64(0xCAFEBABE12345678), codes[0].Data)
}

func TestDecoderNoiseReturnsToIdle(t *testing.T) {
	frame := frameWithTerminator(0x5555AAAA5555AAAA, 64)
	// Stop before the last bit completes so a frame end cannot be valid
	lastPrefix := len(frame) - 2

	noise := []Edge{
		{Level: true, Duration: 30},
		{Level: false, Duration: 30},
		{Level: true, Duration: 5000},
		{Level: false, Duration: 5000},
	}

	for prefix := 0; prefix <= lastPrefix; prefix++ {
		for _, n := range noise {
			d := NewDecoder()
			if codes := feedAll(d, frame[:prefix]); len(codes) != 0 {
				t.Fatalf("prefix %d emitted a code", prefix)
			}
			if _, ok := d.Feed(n.Level, n.Duration); ok {
				t.Fatalf("prefix %d noise %v emitted a code", prefix, n)
			}
			if d.State() != StateIdle {
				t.Fatalf("prefix %d noise %v left state %s", prefix, n, d.State())
			}

			// The decoder recovers on the next clean frame
			codes := feedAll(d, frame)
			if len(codes) != 1 {
				t.Fatalf("prefix %d noise %v: %d codes after recovery", prefix, n, len(codes))
			}
		}
	}
}

func TestDecoderNeedsPreamble(t *testing.T) {
	frame := frameWithTerminator(0xFFFF0000FFFF0000, 64)

	// Four preamble pairs are not enough
	short := frame[4:]
	assert.Empty(t, feedAll(NewDecoder(), short))

	// A broken preamble low resets the count
	broken := append([]Edge{}, frame...)
	broken[9] = Edge{Level: false, Duration: 300}
	assert.Empty(t, feedAll(NewDecoder(), broken))
}

func TestDecoderArbitraryEdges(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 400).Draw(t, "n")
		d := NewDecoder()
		for i := 0; i < n; i++ {
			level := rapid.Bool().Draw(t, "level")
			duration := rapid.Uint32Range(0, 3000).Draw(t, "duration")
			if code, ok := d.Feed(level, duration); ok {
				if code.BitCount < MinBits || code.BitCount > MaxBits {
					t.Fatalf("emitted bit count %d", code.BitCount)
				}
			}
		}
	})
}

func TestDecoderStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "bit-measure", StateBitMeasure.String())
	assert.Equal(t, "DecoderState(9)", DecoderState(9).String())
}
