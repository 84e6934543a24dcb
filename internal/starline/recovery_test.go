package starline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/muurk/starline/internal/keeloq"
	"github.com/muurk/starline/internal/keystore"
)

// tableCipher decrypts from a fixed table; anything else decrypts to zero.
type tableCipher struct {
	plain map[uint32]uint32
}

func (c tableCipher) Encrypt(block uint32, key uint64) uint32 { return 0 }

func (c tableCipher) Decrypt(block uint32, key uint64) uint32 { return c.plain[block] }

func (c tableCipher) NormalLearning(fix uint32, key uint64) uint64 { return key }

func TestResolveSimpleEntry(t *testing.T) {
	const fix = 0x05112233
	const hop = 0xDEADBEEF

	r := &Recoverer{Cipher: tableCipher{plain: map[uint32]uint32{hop: 0x053300AA}}}
	dict := []keystore.Entry{{Name: "Acme", Key: 0x0102030405060708, Learning: keystore.LearningSimple}}
	cache := &RecoveryCache{}

	m, ok := r.Resolve(joinKey(fix, hop), dict, cache)
	require.True(t, ok)
	assert.Equal(t, "Acme", m.Manufacturer)
	assert.Equal(t, uint16(0x00AA), m.Counter)
	assert.Equal(t, uint8(0x05), m.Button)
	assert.Equal(t, uint32(0x112233), m.Serial)
	assert.Equal(t, SchemeSimpleRaw, m.Scheme)
	assert.Equal(t, RecoveryCache{Manufacturer: "Acme", Scheme: SchemeSimpleRaw}, *cache)
}

func TestResolveLearningSchemes(t *testing.T) {
	dict := testDictionary()

	tests := []struct {
		name         string
		scheme       Scheme
		key          uint64
		manufacturer string
	}{
		{name: "simple entry", scheme: SchemeSimpleRaw, key: 0x0123456789ABCDEF, manufacturer: "Simple Motors"},
		{name: "normal entry", scheme: SchemeNormalRaw, key: 0xFEDCBA9876543210, manufacturer: "Normal Motors"},
		{name: "auto simple raw", scheme: SchemeSimpleRaw, key: 0x0F1E2D3C4B5A6978, manufacturer: "Auto Motors"},
		{name: "auto simple mirrored", scheme: SchemeSimpleMirrored, key: 0x0F1E2D3C4B5A6978, manufacturer: "Auto Motors"},
		{name: "auto normal raw", scheme: SchemeNormalRaw, key: 0x0F1E2D3C4B5A6978, manufacturer: "Auto Motors"},
		{name: "auto normal mirrored", scheme: SchemeNormalMirrored, key: 0x0F1E2D3C4B5A6978, manufacturer: "Auto Motors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := buildCode(tt.scheme, tt.key, 0x02, 0xABCDEF, 0x1234)

			m, ok := NewRecoverer().Resolve(code, dict, &RecoveryCache{})
			if !ok {
				t.Fatal("Resolve() found no manufacturer")
			}
			want := Match{
				Manufacturer: tt.manufacturer,
				Counter:      0x1234,
				Scheme:       tt.scheme,
				Serial:       0xABCDEF,
				Button:       0x02,
			}
			if diff := cmp.Diff(want, m); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveUnknownIsSticky(t *testing.T) {
	cipher := newCountingCipher()
	r := &Recoverer{Cipher: cipher}
	dict := testDictionary()
	cache := &RecoveryCache{}

	foreign := buildCode(SchemeSimpleRaw, 0x9999999999999999, 0x01, 0x000042, 7)
	_, ok := r.Resolve(foreign, dict, cache)
	require.False(t, ok)
	assert.True(t, cache.Unknown())

	// Even a code the dictionary could resolve is not searched again
	before := cipher.calls()
	valid := buildCode(SchemeSimpleRaw, 0x0123456789ABCDEF, 0x01, 0x000042, 8)
	_, ok = r.Resolve(valid, dict, cache)
	assert.False(t, ok)
	assert.Equal(t, before, cipher.calls(), "cipher used after the cache went Unknown")

	// A reset cache searches again
	cache.Reset()
	m, ok := r.Resolve(valid, dict, cache)
	require.True(t, ok)
	assert.Equal(t, "Simple Motors", m.Manufacturer)
}

func TestResolvePinnedManufacturer(t *testing.T) {
	cipher := newCountingCipher()
	r := &Recoverer{Cipher: cipher}
	dict := testDictionary()
	cache := &RecoveryCache{}

	first := buildCode(SchemeNormalMirrored, 0x0F1E2D3C4B5A6978, 0x08, 0x00BEEF, 100)
	_, ok := r.Resolve(first, dict, cache)
	require.True(t, ok)
	require.Equal(t, SchemeNormalMirrored, cache.Scheme)

	// The next frame tries only the pinned entry and scheme
	cipher.decrypts = 0
	next := buildCode(SchemeNormalMirrored, 0x0F1E2D3C4B5A6978, 0x08, 0x00BEEF, 101)
	m, ok := r.Resolve(next, dict, cache)
	require.True(t, ok)
	assert.Equal(t, uint16(101), m.Counter)
	assert.Equal(t, 1, cipher.decrypts)

	// A frame from another manufacturer fails against the pin
	other := buildCode(SchemeSimpleRaw, 0x0123456789ABCDEF, 0x08, 0x00BEEF, 5)
	_, ok = r.Resolve(other, dict, cache)
	assert.False(t, ok)
	assert.True(t, cache.Unknown())
}

func TestResolveDeterministic(t *testing.T) {
	dict := testDictionary()
	r := NewRecoverer()

	rapid.Check(t, func(t *rapid.T) {
		code := rapid.Uint64().Draw(t, "code")

		m1, ok1 := r.Resolve(code, dict, &RecoveryCache{})
		m2, ok2 := r.Resolve(code, dict, &RecoveryCache{})
		if ok1 != ok2 || m1 != m2 {
			t.Fatalf("Resolve(0x%016X) not deterministic: %v/%v vs %v/%v", code, m1, ok1, m2, ok2)
		}
	})
}

func TestResolveCode(t *testing.T) {
	dict := testDictionary()
	r := NewRecoverer()

	code := RollingCode{Data: buildCode(SchemeNormalRaw, 0xFEDCBA9876543210, 0x04, 0x123456, 0xFFFE), BitCount: 64}
	require.True(t, r.ResolveCode(&code, dict, &RecoveryCache{}))
	assert.Equal(t, "Normal Motors", code.Manufacturer)
	assert.Equal(t, uint16(0xFFFE), code.Counter)
	assert.Equal(t, uint32(0x123456), code.Serial)
	assert.Equal(t, uint8(0x04), code.Button)
	assert.True(t, code.Resolved())

	unknown := RollingCode{Data: buildCode(SchemeSimpleRaw, 0x7777777777777777, 0x04, 0x123456, 3), BitCount: 64, Counter: 9}
	assert.False(t, r.ResolveCode(&unknown, dict, &RecoveryCache{}))
	assert.Equal(t, ManufacturerUnknown, unknown.Manufacturer)
	assert.Equal(t, uint16(0), unknown.Counter)
	assert.Equal(t, uint32(0x123456), unknown.Serial)
	assert.False(t, unknown.Resolved())
}

func TestSessionResolvesDecodedFrames(t *testing.T) {
	dict := testDictionary()
	sess := NewSession(dict)

	data := buildCode(SchemeSimpleRaw, 0x0123456789ABCDEF, 0x01, 0x00C0DE, 41)
	var got []RollingCode
	for _, e := range frameWithTerminator(data, 64) {
		if code, ok := sess.FeedEdge(e); ok {
			got = append(got, code)
		}
	}

	require.Len(t, got, 1)
	assert.Equal(t, "Simple Motors", got[0].Manufacturer)
	assert.Equal(t, uint16(41), got[0].Counter)
	assert.Equal(t, "Simple Motors", sess.Cache().Manufacturer)

	sess.Reset()
	assert.Equal(t, RecoveryCache{}, sess.Cache())
	assert.Equal(t, StateIdle, sess.Decoder().State())
}

func TestMirroredKeyIsByteReversed(t *testing.T) {
	c := keeloq.Cipher{}
	key := uint64(0x0102030405060708)
	assert.Equal(t, uint64(0x0807060504030201), SchemeSimpleMirrored.deviceKey(c, 0, key))
	assert.Equal(t, c.NormalLearning(0x1234, 0x0807060504030201), SchemeNormalMirrored.deviceKey(c, 0x1234, key))
}
