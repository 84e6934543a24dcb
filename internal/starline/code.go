package starline

import (
	"fmt"
	"math/bits"
)

// Edge is one radio level held for Duration microseconds.
type Edge struct {
	Level    bool
	Duration uint32
}

// String returns the signed RAW notation (negative for low levels)
func (e Edge) String() string {
	if e.Level {
		return fmt.Sprintf("%d", e.Duration)
	}
	return fmt.Sprintf("-%d", e.Duration)
}

// Cipher is the block cipher used to protect the hop word.
type Cipher interface {
	Encrypt(block uint32, key uint64) uint32
	Decrypt(block uint32, key uint64) uint32
	NormalLearning(fix uint32, key uint64) uint64
}

// Scheme is the learning scheme that actually decrypted a code.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeSimpleRaw
	SchemeSimpleMirrored
	SchemeNormalRaw
	SchemeNormalMirrored
)

// String returns a human-readable scheme name
func (s Scheme) String() string {
	switch s {
	case SchemeNone:
		return "none"
	case SchemeSimpleRaw:
		return "simple"
	case SchemeSimpleMirrored:
		return "simple-mirrored"
	case SchemeNormalRaw:
		return "normal"
	case SchemeNormalMirrored:
		return "normal-mirrored"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

// ParseScheme is the inverse of Scheme.String
func ParseScheme(s string) (Scheme, bool) {
	for _, scheme := range []Scheme{SchemeNone, SchemeSimpleRaw, SchemeSimpleMirrored, SchemeNormalRaw, SchemeNormalMirrored} {
		if scheme.String() == s {
			return scheme, true
		}
	}
	return SchemeNone, false
}

// deviceKey returns the key this scheme encrypts with for a given fix word.
func (s Scheme) deviceKey(c Cipher, fix uint32, manufacturerKey uint64) uint64 {
	switch s {
	case SchemeSimpleRaw:
		return manufacturerKey
	case SchemeSimpleMirrored:
		return bits.ReverseBytes64(manufacturerKey)
	case SchemeNormalRaw:
		return c.NormalLearning(fix, manufacturerKey)
	case SchemeNormalMirrored:
		return c.NormalLearning(fix, bits.ReverseBytes64(manufacturerKey))
	default:
		return manufacturerKey
	}
}

// RollingCode is a StarLine transmission.
//
// Data holds the bits in transmission order. Serial, Button, Counter and
// Manufacturer are filled in by key recovery.
type RollingCode struct {
	Data         uint64
	BitCount     uint32
	Serial       uint32 // Low 24 bits meaningful
	Button       uint8
	Counter      uint16
	Manufacturer string // Empty when unresolved, ManufacturerUnknown when the search failed
	Scheme       Scheme

	Repeat    uint8
	Frequency uint32
	Preset    string
}

// Resolved reports whether a manufacturer key is known for the code.
func (c RollingCode) Resolved() bool {
	return c.Manufacturer != "" && c.Manufacturer != ManufacturerUnknown
}

// Fix returns the unencrypted word of the code.
func (c RollingCode) Fix() uint32 {
	fix, _ := splitKey(c.Data)
	return fix
}

// Hop returns the encrypted word of the code.
func (c RollingCode) Hop() uint32 {
	_, hop := splitKey(c.Data)
	return hop
}

// String returns a debug representation of the code
func (c RollingCode) String() string {
	manufacturer := c.Manufacturer
	if manufacturer == "" {
		manufacturer = "unresolved"
	}
	return fmt.Sprintf("StarLine{key=0x%016X, bits=%d, serial=0x%06X, btn=0x%02X, cnt=0x%04X, manufacturer=%s}",
		c.Data, c.BitCount, c.Serial&0xFFFFFF, c.Button, c.Counter, manufacturer)
}

// splitKey converts transmitted data to fix and hop words.
func splitKey(data uint64) (fix, hop uint32) {
	key := bits.Reverse64(data)
	return uint32(key >> 32), uint32(key)
}

// joinKey is the inverse of splitKey.
func joinKey(fix, hop uint32) uint64 {
	return bits.Reverse64(uint64(fix)<<32 | uint64(hop))
}
