// Package keeloq implements the KeeLoq block cipher used by StarLine remotes.
//
// KeeLoq is a 32-bit block cipher with a 64-bit key built from a non-linear
// feedback shift register. The cipher runs 528 rounds; each round shifts the
// block by one bit and feeds back a bit taken from the key and a fixed 5-input
// non-linear function.
//
// # Learning Schemes
//
// Receivers do not use the manufacturer key directly for every remote. The
// per-device key is derived from the manufacturer key by a "learning" scheme:
//   - Simple learning: the manufacturer key is the device key
//   - Normal learning: the device key is two decryptions of the serial number
//     under the manufacturer key (see NormalLearning)
//
// # Usage Example
//
//	hop := keeloq.Encrypt(plain, key)
//	plain := keeloq.Decrypt(hop, key)
//
//	deviceKey := keeloq.NormalLearning(fix, manufacturerKey)
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package keeloq
