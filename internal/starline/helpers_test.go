package starline

import (
	"github.com/muurk/starline/internal/keeloq"
	"github.com/muurk/starline/internal/keystore"
)

// frameWithTerminator returns one frame of edges followed by the long high
// pulse that closes it.
func frameWithTerminator(data uint64, bitCount uint32) []Edge {
	edges := framePulses(data, bitCount, FrameEdges(bitCount)+1)
	return append(edges, Edge{Level: true, Duration: 2 * TeLong})
}

// feedAll feeds edges and collects every emitted code.
func feedAll(d *Decoder, edges []Edge) []RollingCode {
	var codes []RollingCode
	for _, e := range edges {
		if code, ok := d.Feed(e.Level, e.Duration); ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// buildCode encrypts a transmission the way a remote using scheme would.
func buildCode(scheme Scheme, manufacturerKey uint64, button uint8, serial uint32, counter uint16) uint64 {
	c := keeloq.Cipher{}
	fix := uint32(button)<<24 | serial&0xFFFFFF
	plain := uint32(button)<<24 | (serial&0xFF)<<16 | uint32(counter)
	hop := c.Encrypt(plain, scheme.deviceKey(c, fix, manufacturerKey))
	return joinKey(fix, hop)
}

// countingCipher records how often each primitive is used.
type countingCipher struct {
	inner    Cipher
	encrypts int
	decrypts int
	learns   int
}

func newCountingCipher() *countingCipher {
	return &countingCipher{inner: keeloq.Cipher{}}
}

func (c *countingCipher) Encrypt(block uint32, key uint64) uint32 {
	c.encrypts++
	return c.inner.Encrypt(block, key)
}

func (c *countingCipher) Decrypt(block uint32, key uint64) uint32 {
	c.decrypts++
	return c.inner.Decrypt(block, key)
}

func (c *countingCipher) NormalLearning(fix uint32, key uint64) uint64 {
	c.learns++
	return c.inner.NormalLearning(fix, key)
}

func (c *countingCipher) calls() int {
	return c.encrypts + c.decrypts + c.learns
}

// testDictionary has decoys ahead of the real entries so the scan order
// is exercised.
func testDictionary() []keystore.Entry {
	return []keystore.Entry{
		{Name: "Decoy One", Key: 0x1111111111111111, Learning: keystore.LearningSimple},
		{Name: "Decoy Two", Key: 0x2222222222222222, Learning: keystore.LearningNormal},
		{Name: "Simple Motors", Key: 0x0123456789ABCDEF, Learning: keystore.LearningSimple},
		{Name: "Normal Motors", Key: 0xFEDCBA9876543210, Learning: keystore.LearningNormal},
		{Name: "Auto Motors", Key: 0x0F1E2D3C4B5A6978, Learning: keystore.LearningUnknown},
	}
}
