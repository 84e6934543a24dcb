package starline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/starline/internal/keeloq"
	"github.com/muurk/starline/internal/keystore"
	"github.com/muurk/starline/internal/logging"
)

// Encoder builds transmissions from codes
type Encoder struct {
	Cipher   Cipher
	Capacity int // Maximum edges per frame
}

// NewEncoder creates an encoder using the KeeLoq cipher and the default
// edge buffer capacity
func NewEncoder() *Encoder {
	return &Encoder{
		Cipher:   keeloq.Cipher{},
		Capacity: DefaultCapacity,
	}
}

// FrameEdges returns the number of edges in one frame of bitCount bits.
func FrameEdges(bitCount uint32) int {
	return 2*PreamblePairs + 2*int(bitCount)
}

// Build prepares a transmission of code.
//
// An unresolved code (no manufacturer or ManufacturerUnknown) is replayed
// bit for bit without touching the cipher. A resolved code gets its counter
// incremented and its hop word re-encrypted with the manufacturer key; when
// the dictionary has no usable key for it, it is replayed as well.
// Build fails on a bit count outside [MinBits, MaxBits] or a frame larger
// than Capacity.
func (e *Encoder) Build(code RollingCode, dict []keystore.Entry) (*EncoderSession, error) {
	if code.BitCount < MinBits || code.BitCount > MaxBits {
		return nil, &CodecError{
			Type:    ErrTypeInvalidBitCount,
			Message: fmt.Sprintf("bit count %d outside [%d, %d]", code.BitCount, MinBits, MaxBits),
		}
	}

	capacity := e.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if need := FrameEdges(code.BitCount); need > capacity {
		return nil, &CodecError{
			Type:    ErrTypeCapacityExceeded,
			Message: fmt.Sprintf("frame needs %d edges, buffer holds %d", need, capacity),
		}
	}

	if code.Resolved() {
		rolled, err := e.rollCode(code, dict)
		if err != nil {
			// No usable key: fall back to replaying the captured bits
			logging.Warn("Replaying code without rolling",
				zap.String("manufacturer", code.Manufacturer),
				zap.Error(err),
			)
		} else {
			code = rolled
		}
	} else {
		logging.Debug("Replaying unresolved code",
			zap.String("data", fmt.Sprintf("0x%016X", code.Data)),
		)
	}

	repeat := code.Repeat
	if repeat == 0 {
		repeat = DefaultRepeat
	}

	return &EncoderSession{
		code:    code,
		pulses:  framePulses(code.Data, code.BitCount, capacity),
		repeat:  repeat,
		running: true,
	}, nil
}

// rollCode advances the counter and recomputes the hop word.
func (e *Encoder) rollCode(code RollingCode, dict []keystore.Entry) (RollingCode, error) {
	entry, ok := findEntry(dict, code.Manufacturer)
	if !ok {
		return code, &CodecError{
			Type:    ErrTypeManufacturerNotFound,
			Message: fmt.Sprintf("manufacturer %q is not in the keystore", code.Manufacturer),
		}
	}

	scheme, err := e.forwardScheme(code, entry)
	if err != nil {
		return code, err
	}

	code.Counter++ // wraps to 0 after 0xFFFF
	serial := code.Serial & 0x00FFFFFF
	fix := uint32(code.Button)<<24 | serial
	plain := uint32(code.Button)<<24 | (serial&0xFF)<<16 | uint32(code.Counter)
	hop := e.Cipher.Encrypt(plain, scheme.deviceKey(e.Cipher, fix, entry.Key))

	code.Scheme = scheme
	code.Data = joinKey(fix, hop)

	logging.Debug("Rolled code",
		zap.String("manufacturer", entry.Name),
		zap.Stringer("scheme", scheme),
		zap.Uint16("counter", code.Counter),
	)
	return code, nil
}

// forwardScheme picks the learning scheme used to encrypt a new hop word.
func (e *Encoder) forwardScheme(code RollingCode, entry keystore.Entry) (Scheme, error) {
	if code.Scheme != SchemeNone {
		return code.Scheme, nil
	}
	switch entry.Learning {
	case keystore.LearningSimple:
		return SchemeSimpleRaw, nil
	case keystore.LearningNormal:
		return SchemeNormalRaw, nil
	}

	// Unknown learning: probe the current code to find which variant applies
	r := &Recoverer{Cipher: e.Cipher}
	cache := &RecoveryCache{}
	m, ok := r.Resolve(code.Data, []keystore.Entry{entry}, cache)
	if !ok {
		return SchemeNone, &CodecError{
			Type:    ErrTypeManufacturerNotFound,
			Message: fmt.Sprintf("key for %q does not decrypt this code", entry.Name),
		}
	}
	return m.Scheme, nil
}

func findEntry(dict []keystore.Entry, name string) (keystore.Entry, bool) {
	for _, e := range dict {
		if e.Name == name {
			return e, true
		}
	}
	return keystore.Entry{}, false
}

// framePulses renders one frame: the preamble, then the data MSB first.
// Bits beyond MinBits go out as leading zeros so the decoder's shift
// register ends up holding data.
func framePulses(data uint64, bitCount uint32, capacity int) []Edge {
	pulses := make([]Edge, 0, capacity)

	for i := 0; i < PreamblePairs; i++ {
		pulses = append(pulses,
			Edge{Level: true, Duration: 2 * TeLong},
			Edge{Level: false, Duration: 2 * TeLong},
		)
	}

	var lead uint32
	if bitCount > MinBits {
		lead = bitCount - MinBits
	}
	for i := uint32(0); i < bitCount; i++ {
		duration := uint32(TeShort)
		if i >= lead && data>>(bitCount-1-i)&1 == 1 {
			duration = TeLong
		}
		pulses = append(pulses,
			Edge{Level: true, Duration: duration},
			Edge{Level: false, Duration: duration},
		)
	}

	return pulses
}

// EncoderSession yields the edges of a transmission, repeating the frame.
type EncoderSession struct {
	code    RollingCode
	pulses  []Edge
	cursor  int
	repeat  uint8
	running bool
}

// Next returns the next edge. It returns false once all repeats are sent
// or after Stop.
func (s *EncoderSession) Next() (Edge, bool) {
	if !s.running || s.repeat == 0 {
		s.running = false
		return Edge{}, false
	}

	e := s.pulses[s.cursor]
	s.cursor++
	if s.cursor == len(s.pulses) {
		s.cursor = 0
		s.repeat--
	}
	return e, true
}

// Stop ends the transmission immediately
func (s *EncoderSession) Stop() {
	s.running = false
}

// Running reports whether Next can still return edges
func (s *EncoderSession) Running() bool {
	return s.running && s.repeat > 0
}

// Remaining returns the number of frames still to be sent, counting the
// one in progress
func (s *EncoderSession) Remaining() uint8 {
	return s.repeat
}

// Code returns the code being transmitted, including the new counter
func (s *EncoderSession) Code() RollingCode {
	return s.code
}

// Pulses returns a copy of one frame's edges
func (s *EncoderSession) Pulses() []Edge {
	out := make([]Edge, len(s.pulses))
	copy(out, s.pulses)
	return out
}
