package starline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/starline/internal/logging"
)

// DecoderState is a step of the edge state machine
type DecoderState int

const (
	StateIdle DecoderState = iota
	StatePreambleConfirm
	StateBitBoundary
	StateBitMeasure
)

// String returns the state name
func (s DecoderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreambleConfirm:
		return "preamble-confirm"
	case StateBitBoundary:
		return "bit-boundary"
	case StateBitMeasure:
		return "bit-measure"
	default:
		return fmt.Sprintf("DecoderState(%d)", int(s))
	}
}

// Decoder turns radio edges into StarLine codes.
//
// Timing that matches no template silently returns the decoder to idle;
// noise is normal on a radio link and is never reported as an error.
type Decoder struct {
	state       DecoderState
	data        uint64
	bitCount    uint32
	teLast      uint32
	headerCount uint16
	lastData    uint64
	emitted     bool
}

// NewDecoder creates a decoder in the idle state
func NewDecoder() *Decoder {
	return &Decoder{}
}

// State returns the current state machine step
func (d *Decoder) State() DecoderState {
	return d.state
}

// Reset clears the session, including the duplicate filter.
// Call it when a new capture starts.
func (d *Decoder) Reset() {
	*d = Decoder{}
}

// Feed processes one edge. It returns a code when the edge completes a
// valid frame that differs from the previously emitted one.
func (d *Decoder) Feed(level bool, duration uint32) (RollingCode, bool) {
	switch d.state {
	case StateIdle:
		if !level {
			d.headerCount = 0
			break
		}
		switch {
		case isPreamble(duration):
			d.headerCount++
			d.state = StatePreambleConfirm
		case d.headerCount > minHeaderCount:
			if !isBitHalf(duration) {
				d.desync()
				break
			}
			// First edge of the data burst; there is no boundary before it
			d.data = 0
			d.bitCount = 0
			d.teLast = duration
			d.state = StateBitMeasure
		}

	case StatePreambleConfirm:
		if !level && isPreamble(duration) {
			d.state = StateIdle
			break
		}
		d.desync()

	case StateBitBoundary:
		if !level {
			d.desync()
			break
		}
		if duration >= TeLong+TeDelta {
			return d.endFrame()
		}
		if !isBitHalf(duration) {
			d.desync()
			break
		}
		d.teLast = duration
		d.state = StateBitMeasure

	case StateBitMeasure:
		if level {
			d.desync()
			break
		}
		var bit uint64
		switch {
		case within(d.teLast, TeShort, TeDelta) && within(duration, TeShort, TeDelta):
			bit = 0
		case within(d.teLast, TeLong, TeDelta) && within(duration, TeLong, TeDelta):
			bit = 1
		default:
			d.desync()
			return RollingCode{}, false
		}
		// Up to MaxBits are shifted in, so the register keeps the last 64.
		// Past the cap bits are only counted.
		if d.bitCount < MaxBits {
			d.data = d.data<<1 | bit
		}
		d.bitCount++
		d.state = StateBitBoundary
	}

	return RollingCode{}, false
}

// endFrame validates the accumulated bits and returns to idle.
func (d *Decoder) endFrame() (RollingCode, bool) {
	data, count := d.data, d.bitCount
	d.data = 0
	d.bitCount = 0
	d.headerCount = 0
	d.state = StateIdle

	if count < MinBits || count > MaxBits {
		logging.Debug("Frame rejected",
			zap.Uint32("bit_count", count),
		)
		return RollingCode{}, false
	}
	if d.emitted && data == d.lastData {
		return RollingCode{}, false
	}

	d.lastData = data
	d.emitted = true
	return RollingCode{Data: data, BitCount: count}, true
}

func (d *Decoder) desync() {
	d.data = 0
	d.bitCount = 0
	d.headerCount = 0
	d.state = StateIdle
}

func isPreamble(duration uint32) bool {
	return within(duration, 2*TeLong, 2*TeDelta)
}

func isBitHalf(duration uint32) bool {
	return within(duration, TeShort, TeDelta) || within(duration, TeLong, TeDelta)
}

// within reports whether duration lies in [target-delta, target+delta].
func within(duration, target, delta uint32) bool {
	if duration > target {
		return duration-target <= delta
	}
	return target-duration <= delta
}
