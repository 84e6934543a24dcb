package keystore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/starline/internal/logging"
	"github.com/muurk/starline/internal/version"
)

// Learning is the key derivation scheme declared for a manufacturer.
type Learning int

const (
	// LearningUnknown means the scheme is probed at recovery time.
	LearningUnknown Learning = iota
	// LearningSimple uses the manufacturer key as the device key.
	LearningSimple
	// LearningNormal derives the device key from the serial number.
	LearningNormal
)

// String returns the name used in YAML keystores.
func (l Learning) String() string {
	switch l {
	case LearningUnknown:
		return "unknown"
	case LearningSimple:
		return "simple"
	case LearningNormal:
		return "normal"
	default:
		return fmt.Sprintf("Learning(%d)", int(l))
	}
}

// ParseLearning parses a learning name or its numeric Flipper type.
func ParseLearning(s string) (Learning, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unknown", "auto", "0":
		return LearningUnknown, nil
	case "simple", "1":
		return LearningSimple, nil
	case "normal", "2":
		return LearningNormal, nil
	default:
		return 0, fmt.Errorf("unsupported learning type %q", s)
	}
}

// MarshalYAML implements yaml.Marshaler
func (l Learning) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (l *Learning) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseLearning(value.Value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Entry is a single manufacturer key.
type Entry struct {
	Name     string
	Key      uint64
	Learning Learning
}

// Keystore is an ordered manufacturer dictionary.
type Keystore struct {
	Entries []Entry
	Path    string // Source file, empty for in-memory keystores
}

// New creates an in-memory keystore from entries.
func New(entries ...Entry) *Keystore {
	return &Keystore{Entries: entries}
}

// Find returns the first entry with the given name.
func (k *Keystore) Find(name string) (Entry, bool) {
	for _, e := range k.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries
func (k *Keystore) Len() int {
	return len(k.Entries)
}

// yamlFile is the on-disk YAML layout.
type yamlFile struct {
	Version       int         `yaml:"version"`
	Manufacturers []yamlEntry `yaml:"manufacturers"`
}

type yamlEntry struct {
	Name     string   `yaml:"name"`
	Key      string   `yaml:"key"`
	Learning Learning `yaml:"learning"`
}

// Load reads a keystore file. The format is chosen by extension.
func Load(path string) (*Keystore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}
	defer f.Close()

	var ks *Keystore
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		ks, err = ReadYAML(f)
	default:
		ks, err = ReadText(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load keystore %s: %w", path, err)
	}
	ks.Path = path

	logging.Info("Keystore loaded",
		zap.String("path", path),
		zap.Int("entries", ks.Len()),
	)
	return ks, nil
}

// ReadYAML parses the YAML keystore format.
func ReadYAML(r io.Reader) (*Keystore, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse keystore: %w", err)
	}
	if file.Version != version.KeystoreFormat {
		return nil, fmt.Errorf("unsupported keystore version: %d (expected %d)", file.Version, version.KeystoreFormat)
	}

	ks := &Keystore{Entries: make([]Entry, 0, len(file.Manufacturers))}
	for i, m := range file.Manufacturers {
		if m.Name == "" {
			return nil, fmt.Errorf("manufacturer %d: missing name", i)
		}
		key, err := parseKey(m.Key)
		if err != nil {
			return nil, fmt.Errorf("manufacturer %q: %w", m.Name, err)
		}
		ks.Entries = append(ks.Entries, Entry{Name: m.Name, Key: key, Learning: m.Learning})
	}
	return ks, nil
}

// WriteYAML writes the keystore in the YAML format.
func (k *Keystore) WriteYAML(w io.Writer) error {
	file := yamlFile{Version: version.KeystoreFormat}
	for _, e := range k.Entries {
		file.Manufacturers = append(file.Manufacturers, yamlEntry{
			Name:     e.Name,
			Key:      fmt.Sprintf("0x%016X", e.Key),
			Learning: e.Learning,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&file); err != nil {
		return fmt.Errorf("failed to marshal keystore: %w", err)
	}
	return enc.Close()
}

// ReadText parses the Flipper keystore text format. Header lines of the
// form "Name: value" and comments are skipped.
func ReadText(r io.Reader) (*Keystore, error) {
	ks := &Keystore{}
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, ": ") {
			// Header line such as "Version: 0"
			continue
		}

		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("line %d: expected KEY:TYPE:NAME", lineNum)
		}

		key, err := parseKey(parts[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		learning, err := ParseLearning(parts[1])
		if err != nil {
			logging.Debug("Skipping keystore entry",
				zap.Int("line", lineNum),
				zap.String("name", parts[2]),
				zap.Error(err),
			)
			continue
		}

		ks.Entries = append(ks.Entries, Entry{
			Name:     strings.TrimSpace(parts[2]),
			Key:      key,
			Learning: learning,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	return ks, nil
}

func parseKey(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 16 {
		return 0, fmt.Errorf("key must be 16 hex digits, got %d", len(s))
	}
	key, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %w", s, err)
	}
	return key, nil
}
