package starline

// Timing constants in microseconds
const (
	TeShort = 250
	TeLong  = 500
	TeDelta = 120
)

// Frame constants
const (
	MinBits        = 64
	MaxBits        = MinBits + 2
	PreamblePairs  = 6
	minHeaderCount = 4
)

// Transmission defaults
const (
	DefaultRepeat    = 40
	DefaultCapacity  = 256
	DefaultFrequency = 433920000
	DefaultPreset    = "FuriHalSubGhzPresetOok650Async"
)

// ProtocolName is the record value identifying this protocol.
const ProtocolName = "Star Line"

// ManufacturerUnknown marks a code whose dictionary search was exhausted.
const ManufacturerUnknown = "Unknown"
