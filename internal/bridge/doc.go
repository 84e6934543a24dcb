// Package bridge implements a websocket bridge for remote radio front-ends.
//
// A remote radio (an SDR host, a microcontroller with a CC1101, another
// starline instance) connects to the bridge and streams the edges it
// samples. The bridge runs the receive pipeline for every connection and
// pushes each new code back as JSON.
//
// # Session Model
//
// Every websocket connection owns one starline.Session: its own decoder,
// duplicate filter and recovery cache. Nothing is shared between
// connections except the keystore (read-only) and the history database.
//
// # Messages
//
// Clients send text frames in one of two forms:
//
//	RAW_Data: 1000 -1000 1000 -1000 ...
//
// or JSON:
//
//	{"type": "edges", "durations": [1000, -1000, 500, -500]}
//	{"type": "reset"}
//
// Durations are signed microseconds, negative for low levels. A reset
// starts a new capture on the connection.
//
// The bridge answers with:
//
//	{"type": "code", "key": "A0 A1 A2 A3 A4 A5 B4 C1", "bit_count": 64, ...}
//	{"type": "error", "error": "..."}
//
// # Discovery
//
// When enabled, the bridge advertises itself over mDNS as a
// "_starline._tcp" service so front-ends on the LAN can find it without
// configuration.
//
// # Usage Example
//
//	srv := bridge.New(&bridge.Config{Host: "", Port: 8765, Advertise: true}, ks.Entries, db)
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package bridge
