// Package keystore loads the manufacturer key dictionary used for StarLine
// key recovery.
//
// A keystore is an ordered list of manufacturer entries. Order matters: key
// recovery scans the dictionary front to back and the first entry that
// decrypts a transmission wins.
//
// # File Formats
//
// Two formats are accepted, chosen by file extension:
//
// YAML (.yaml, .yml):
//
//	version: 1
//	manufacturers:
//	  - name: Example
//	    key: "0x0123456789ABCDEF"
//	    learning: normal
//
// Flipper keystore text (any other extension):
//
//	Filetype: Flipper SubGhz Keystore File
//	Version: 0
//	Encryption: 0
//	0123456789ABCDEF:2:Example
//
// In the text format the middle column is the learning type: 0 unknown,
// 1 simple, 2 normal. Entries with other learning types belong to other
// KeeLoq variants and are skipped.
//
// # Thread Safety
//
// A loaded Keystore is read-only and safe for concurrent use.
package keystore
