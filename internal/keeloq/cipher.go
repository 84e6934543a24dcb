package keeloq

const (
	// NLF is the non-linear feedback function as a 32-entry truth table.
	NLF = 0x3A5C742E

	// Rounds is the number of cipher rounds per block.
	Rounds = 528
)

func bit(x uint64, n uint) uint32 {
	return uint32((x >> n) & 1)
}

func g5(x uint32, a, b, c, d, e uint) uint {
	v := uint64(x)
	return uint(bit(v, a) | bit(v, b)<<1 | bit(v, c)<<2 | bit(v, d)<<3 | bit(v, e)<<4)
}

// Encrypt encrypts a 32-bit block with a 64-bit key.
func Encrypt(data uint32, key uint64) uint32 {
	x := data
	for r := uint(0); r < Rounds; r++ {
		fb := bit(uint64(x), 0) ^ bit(uint64(x), 16) ^ bit(key, r&63) ^ bit(NLF, g5(x, 1, 9, 20, 26, 31))
		x = (x >> 1) ^ (fb << 31)
	}
	return x
}

// Decrypt reverses Encrypt.
func Decrypt(data uint32, key uint64) uint32 {
	x := data
	for r := uint(0); r < Rounds; r++ {
		fb := bit(uint64(x), 31) ^ bit(uint64(x), 15) ^ bit(key, (15-r)&63) ^ bit(NLF, g5(x, 0, 8, 19, 25, 30))
		x = (x << 1) ^ fb
	}
	return x
}

// NormalLearning derives a device key from the fixed part of a transmission
// and a manufacturer key. Only the low 28 bits of fix take part.
func NormalLearning(fix uint32, manufacturerKey uint64) uint64 {
	data := fix&0x0FFFFFFF | 0x20000000
	k1 := Decrypt(data, manufacturerKey)

	data = fix&0x0FFFFFFF | 0x60000000
	k2 := Decrypt(data, manufacturerKey)

	return uint64(k2)<<32 | uint64(k1)
}

// Cipher adapts the package functions to an interface value.
type Cipher struct{}

// Encrypt calls the package-level Encrypt.
func (Cipher) Encrypt(data uint32, key uint64) uint32 { return Encrypt(data, key) }

// Decrypt calls the package-level Decrypt.
func (Cipher) Decrypt(data uint32, key uint64) uint32 { return Decrypt(data, key) }

// NormalLearning calls the package-level NormalLearning.
func (Cipher) NormalLearning(fix uint32, key uint64) uint64 { return NormalLearning(fix, key) }
