// Package starline implements the StarLine rolling-code protocol codec.
//
// StarLine remotes transmit a 64-bit KeeLoq code using pulse width modulation
// on an OOK carrier. This package turns raw radio edges into codes, recovers
// the manufacturer key and rolling counter, rebuilds transmissions with an
// incremented counter and converts codes to and from text records.
//
// # Protocol Overview
//
// A transmission is a preamble followed by the code:
//   - Preamble: 6 pairs of (high 1000µs, low 1000µs)
//   - Bit 0: high 250µs, low 250µs
//   - Bit 1: high 500µs, low 500µs
//   - End of frame: any high pulse of 620µs or more (usually the next preamble)
//
// Bits are sent MSB first. The transmitted value is the bit reversal of
// fix<<32 | hop where:
//   - fix = button<<24 | serial (24 bits), sent in the clear
//   - hop = KeeLoq(button<<24 | serialLow<<16 | counter), encrypted
//
// # Components
//
//   - Decoder: edge state machine producing RollingCode values
//   - Recoverer: dictionary search resolving manufacturer and counter
//   - Encoder: builds an EncoderSession that replays or re-encrypts a code
//   - Record: the "Key: Value" text format used to persist codes
//
// # Usage Example
//
//	sess := starline.NewSession(keys.Entries)
//	for _, e := range edges {
//	    if code, ok := sess.Feed(e.Level, e.Duration); ok {
//	        fmt.Println(code)
//	    }
//	}
//
//	tx, err := starline.NewEncoder().Build(code, keys.Entries)
//	for e, ok := tx.Next(); ok; e, ok = tx.Next() {
//	    radio.Send(e)
//	}
//
// # Thread Safety
//
// Decoder, RecoveryCache, Session and EncoderSession are not reentrant. Each
// radio session must own its own values. Recoverer, Encoder and the record
// functions are stateless.
package starline
