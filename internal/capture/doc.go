// Package capture moves radio edges in and out of the codec.
//
// Edges are exchanged in the Flipper RAW notation: whitespace separated
// signed durations in microseconds, positive for a high level and negative
// for a low level.
//
//	Filetype: Flipper SubGhz RAW File
//	Version: 1
//	Frequency: 433920000
//	Preset: FuriHalSubGhzPresetOok650Async
//	Protocol: RAW
//	RAW_Data: 1000 -1000 1000 -1000 250 -250 500 -500
//
// The same line format is used on serial links to radio front-ends, where
// the "RAW_Data:" prefix is optional.
//
// # Sources
//
//   - RawReader: any io.Reader (files, pipes, websocket text frames)
//   - SerialPort: a radio front-end on a serial port
//
// Both implement Source, so capture loops do not care where edges come from.
package capture
