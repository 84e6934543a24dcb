package starline

import (
	"go.uber.org/zap"

	"github.com/muurk/starline/internal/keeloq"
	"github.com/muurk/starline/internal/keystore"
	"github.com/muurk/starline/internal/logging"
)

// RecoveryCache pins the manufacturer found for a capture session so later
// frames skip the dictionary scan. It must not be shared between sessions.
type RecoveryCache struct {
	Manufacturer string // Empty until the first resolve
	Scheme       Scheme
}

// Reset forgets the pinned manufacturer. Call it when a new capture starts.
func (c *RecoveryCache) Reset() {
	*c = RecoveryCache{}
}

// Unknown reports whether a previous search was exhausted
func (c *RecoveryCache) Unknown() bool {
	return c.Manufacturer == ManufacturerUnknown
}

// Match is a successful key recovery
type Match struct {
	Manufacturer string
	Counter      uint16
	Scheme       Scheme
	Serial       uint32
	Button       uint8
}

// learningStrategies lists the schemes tried for each declared learning
// type, in priority order.
var learningStrategies = map[keystore.Learning][]Scheme{
	keystore.LearningSimple:  {SchemeSimpleRaw},
	keystore.LearningNormal:  {SchemeNormalRaw},
	keystore.LearningUnknown: {SchemeSimpleRaw, SchemeSimpleMirrored, SchemeNormalRaw, SchemeNormalMirrored},
}

// Recoverer searches a key dictionary for the manufacturer of a code
type Recoverer struct {
	Cipher Cipher
}

// NewRecoverer creates a recoverer using the KeeLoq cipher
func NewRecoverer() *Recoverer {
	return &Recoverer{Cipher: keeloq.Cipher{}}
}

// Resolve finds the manufacturer entry that decrypts code and returns the
// rolling counter. A failed search marks the cache Unknown and every later
// call with that cache fails immediately.
func (r *Recoverer) Resolve(code uint64, dict []keystore.Entry, cache *RecoveryCache) (Match, bool) {
	fix, hop := splitKey(code)
	button := uint8(fix >> 24)
	serialLow := uint8(fix)

	if cache.Unknown() {
		return Match{}, false
	}

	for _, entry := range dict {
		if cache.Manufacturer != "" && entry.Name != cache.Manufacturer {
			continue
		}

		schemes := learningStrategies[entry.Learning]
		if cache.Manufacturer != "" && cache.Scheme != SchemeNone {
			schemes = []Scheme{cache.Scheme}
		}

		for _, scheme := range schemes {
			key := scheme.deviceKey(r.Cipher, fix, entry.Key)
			decrypt := r.Cipher.Decrypt(hop, key)
			if uint8(decrypt>>24) != button || uint8(decrypt>>16) != serialLow {
				continue
			}

			cache.Manufacturer = entry.Name
			cache.Scheme = scheme

			logging.Debug("Manufacturer key matched",
				zap.String("manufacturer", entry.Name),
				zap.Stringer("scheme", scheme),
			)
			return Match{
				Manufacturer: entry.Name,
				Counter:      uint16(decrypt),
				Scheme:       scheme,
				Serial:       fix & 0x00FFFFFF,
				Button:       button,
			}, true
		}

		if cache.Manufacturer != "" {
			break
		}
	}

	cache.Manufacturer = ManufacturerUnknown
	cache.Scheme = SchemeNone
	return Match{}, false
}

// ResolveCode runs Resolve and stores the result in code. Serial and Button
// are always filled from the fix word; they are not authenticated beyond the
// low serial byte.
func (r *Recoverer) ResolveCode(code *RollingCode, dict []keystore.Entry, cache *RecoveryCache) bool {
	fix, _ := splitKey(code.Data)
	code.Serial = fix & 0x00FFFFFF
	code.Button = uint8(fix >> 24)

	m, ok := r.Resolve(code.Data, dict, cache)
	if !ok {
		code.Manufacturer = ManufacturerUnknown
		code.Counter = 0
		code.Scheme = SchemeNone
		return false
	}

	code.Manufacturer = m.Manufacturer
	code.Counter = m.Counter
	code.Scheme = m.Scheme
	return true
}
