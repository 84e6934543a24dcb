package starline

import (
	"github.com/muurk/starline/internal/keystore"
	"github.com/muurk/starline/internal/logging"
)

// Session is the receive pipeline of one radio capture: it decodes edges
// and resolves every new code against the keystore. The recovery cache
// lives and dies with the session.
type Session struct {
	decoder   *Decoder
	cache     RecoveryCache
	recoverer *Recoverer
	dict      []keystore.Entry
}

// NewSession creates a capture session over a key dictionary
func NewSession(dict []keystore.Entry) *Session {
	return &Session{
		decoder:   NewDecoder(),
		recoverer: NewRecoverer(),
		dict:      dict,
	}
}

// WithRecoverer replaces the recoverer, e.g. to use a different cipher
func (s *Session) WithRecoverer(r *Recoverer) *Session {
	s.recoverer = r
	return s
}

// Feed processes one edge and returns a resolved code when a new frame
// completes
func (s *Session) Feed(level bool, duration uint32) (RollingCode, bool) {
	code, ok := s.decoder.Feed(level, duration)
	if !ok {
		return RollingCode{}, false
	}

	s.recoverer.ResolveCode(&code, s.dict, &s.cache)
	logging.LogCode("decoded", code.Data, code.BitCount, code.Manufacturer, code.Counter)
	return code, true
}

// FeedEdge is Feed for an Edge value
func (s *Session) FeedEdge(e Edge) (RollingCode, bool) {
	return s.Feed(e.Level, e.Duration)
}

// Reset starts a new capture: decoder state, duplicate filter and the
// recovery cache are all cleared
func (s *Session) Reset() {
	s.decoder.Reset()
	s.cache.Reset()
}

// Cache returns the session's recovery cache
func (s *Session) Cache() RecoveryCache {
	return s.cache
}

// Decoder returns the session's decoder
func (s *Session) Decoder() *Decoder {
	return s.decoder
}
