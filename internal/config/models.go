package config

import (
	"fmt"
	"time"

	"github.com/muurk/starline/internal/starline"
	"github.com/muurk/starline/internal/version"
)

// Settings represents the entire user configuration file.
type Settings struct {
	Version int                `yaml:"version"`
	Codec   *CodecPrefs        `yaml:"codec,omitempty"`
	Radio   *RadioPrefs        `yaml:"radio,omitempty"`
	Bridge  *BridgePrefs       `yaml:"bridge,omitempty"`
	Remotes map[string]*Remote `yaml:"remotes,omitempty"` // Keyed by serial, e.g. "0x112233"

	path string // File the settings were loaded from
}

// CodecPrefs holds decoder and encoder defaults.
type CodecPrefs struct {
	Keystore    string `yaml:"keystore,omitempty"` // Manufacturer keystore file
	Repeat      uint8  `yaml:"repeat"`             // Frames per transmission
	Capacity    int    `yaml:"capacity"`           // Encoder edge buffer size
	HistoryPath string `yaml:"history,omitempty"`  // SQLite history database, empty disables
}

// RadioPrefs describes the serial radio front-end.
type RadioPrefs struct {
	Port      string `yaml:"port,omitempty"`
	Baud      int    `yaml:"baud"`
	Frequency uint32 `yaml:"frequency"`
	Preset    string `yaml:"preset"`
}

// BridgePrefs configures `starline serve`.
type BridgePrefs struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Advertise bool   `yaml:"advertise"`
}

// Remote is user metadata for one remote, keyed by its serial.
type Remote struct {
	Nickname     string    `yaml:"nickname,omitempty"`
	Manufacturer string    `yaml:"manufacturer,omitempty"`
	LastCounter  uint16    `yaml:"last_counter"`
	LastSeen     time.Time `yaml:"last_seen,omitempty"`
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	s := &Settings{Version: version.SettingsFormat}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.Codec == nil {
		s.Codec = &CodecPrefs{}
	}
	if s.Codec.Repeat == 0 {
		s.Codec.Repeat = starline.DefaultRepeat
	}
	if s.Codec.Capacity == 0 {
		s.Codec.Capacity = starline.DefaultCapacity
	}

	if s.Radio == nil {
		s.Radio = &RadioPrefs{}
	}
	if s.Radio.Baud == 0 {
		s.Radio.Baud = 115200
	}
	if s.Radio.Frequency == 0 {
		s.Radio.Frequency = starline.DefaultFrequency
	}
	if s.Radio.Preset == "" {
		s.Radio.Preset = starline.DefaultPreset
	}

	if s.Bridge == nil {
		s.Bridge = &BridgePrefs{Advertise: true}
	}
	if s.Bridge.Port == 0 {
		s.Bridge.Port = 8765
	}

	if s.Remotes == nil {
		s.Remotes = make(map[string]*Remote)
	}
}

// Path returns the file the settings were loaded from or will be saved to.
func (s *Settings) Path() string {
	return s.path
}

// RemoteKey formats a serial as a Remotes map key.
func RemoteKey(serial uint32) string {
	return fmt.Sprintf("0x%06X", serial&0xFFFFFF)
}

// GetRemote returns the metadata of a remote, or nil.
func (s *Settings) GetRemote(serial uint32) *Remote {
	return s.Remotes[RemoteKey(serial)]
}

// EnsureRemote returns the metadata of a remote, creating it if needed.
func (s *Settings) EnsureRemote(serial uint32) *Remote {
	if s.Remotes == nil {
		s.Remotes = make(map[string]*Remote)
	}
	key := RemoteKey(serial)
	if r, ok := s.Remotes[key]; ok {
		return r
	}
	r := &Remote{}
	s.Remotes[key] = r
	return r
}

// SetRemoteNickname sets a user-friendly name for a remote.
func (s *Settings) SetRemoteNickname(serial uint32, nickname string) {
	s.EnsureRemote(serial).Nickname = nickname
}

// ObserveCode records a resolved code against its remote. Unresolved codes
// carry no trustworthy counter and are ignored.
func (s *Settings) ObserveCode(code starline.RollingCode) {
	if !code.Resolved() {
		return
	}
	r := s.EnsureRemote(code.Serial)
	r.Manufacturer = code.Manufacturer
	r.LastCounter = code.Counter
	r.LastSeen = time.Now()
}

// Label returns the nickname of a remote, or its serial.
func (s *Settings) Label(serial uint32) string {
	if r := s.GetRemote(serial); r != nil && r.Nickname != "" {
		return r.Nickname
	}
	return RemoteKey(serial)
}
