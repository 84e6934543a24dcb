package starline

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/starline/internal/logging"
	"github.com/muurk/starline/internal/version"
)

// Record header values written ahead of the protocol fields
const RecordFiletype = "Flipper SubGhz Key File"

// Field is one "Key: Value" line of a record
type Field struct {
	Name  string
	Value string
}

// Record is an ordered set of text fields
type Record struct {
	fields []Field
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{}
}

// Get returns the value of a field
func (r *Record) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces a field value, appending the field if it is new
func (r *Record) Set(name, value string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Delete removes a field
func (r *Record) Delete(name string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields = append(r.fields[:i], r.fields[i+1:]...)
			return
		}
	}
}

// Fields returns the fields in file order
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// ParseRecord reads "Key: Value" lines. Blank lines and '#' comments are
// skipped.
func ParseRecord(rd io.Reader) (*Record, error) {
	r := NewRecord()
	scanner := bufio.NewScanner(rd)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, newFieldError(ErrTypeInvalidField, "", fmt.Sprintf("line %d: expected \"Key: Value\"", lineNum), nil)
		}
		r.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	return r, nil
}

// WriteTo writes the record as text lines
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, f := range r.fields {
		n, err := fmt.Fprintf(w, "%s: %s\n", f.Name, f.Value)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("failed to write record: %w", err)
		}
	}
	return total, nil
}

// String returns the record text
func (r *Record) String() string {
	var sb strings.Builder
	_, _ = r.WriteTo(&sb)
	return sb.String()
}

// ToRecord converts a code to its text record
func ToRecord(code RollingCode) *Record {
	bitCount := code.BitCount
	if bitCount == 0 {
		bitCount = MinBits
	}
	frequency := code.Frequency
	if frequency == 0 {
		frequency = DefaultFrequency
	}
	preset := code.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	repeat := code.Repeat
	if repeat == 0 {
		repeat = DefaultRepeat
	}

	r := NewRecord()
	r.Set("Filetype", RecordFiletype)
	r.Set("Version", strconv.Itoa(version.RecordFormat))
	r.Set("Frequency", strconv.FormatUint(uint64(frequency), 10))
	r.Set("Preset", preset)
	r.Set("Protocol", ProtocolName)
	r.Set("Bit", strconv.FormatUint(uint64(bitCount), 10))
	r.Set("Key", FormatKey(code.Data))
	r.Set("Serial", fmt.Sprintf("0x%08X", code.Serial))
	r.Set("Btn", fmt.Sprintf("0x%02X", code.Button))
	r.Set("Cnt", fmt.Sprintf("0x%04X", code.Counter))
	if code.Manufacturer != "" {
		r.Set("Manufacture", code.Manufacturer)
	}
	r.Set("Repeat", strconv.FormatUint(uint64(repeat), 10))
	return r
}

// recordField describes how one record field maps onto a code. Derive
// supplies the value of an absent optional field; a nil Derive leaves the
// code untouched.
type recordField struct {
	Name     string
	Required bool
	Derive   func(key uint64) string
	Apply    func(code *RollingCode, value string) error
}

// recordSchema is applied in order; Key comes before every field whose
// fallback is derived from it.
var recordSchema = []recordField{
	{Name: "Protocol", Required: true, Apply: applyProtocol},
	{Name: "Key", Required: true, Apply: applyKey},
	{Name: "Bit", Required: true, Apply: applyBit},
	{
		Name:   "Serial",
		Derive: func(key uint64) string { return strconv.FormatUint(uint64(uint32(key>>24)), 10) },
		Apply: func(code *RollingCode, value string) error {
			v, err := parseUint("Serial", value, 32)
			code.Serial = uint32(v)
			return err
		},
	},
	{
		Name:   "Btn",
		Derive: func(key uint64) string { return strconv.FormatUint((key>>16)&0xFF, 10) },
		Apply: func(code *RollingCode, value string) error {
			v, err := parseUint("Btn", value, 8)
			code.Button = uint8(v)
			return err
		},
	},
	{
		Name:   "Cnt",
		Derive: func(uint64) string { return "0" },
		Apply: func(code *RollingCode, value string) error {
			v, err := parseUint("Cnt", value, 16)
			code.Counter = uint16(v)
			return err
		},
	},
	{
		Name:   "Repeat",
		Derive: func(uint64) string { return strconv.Itoa(DefaultRepeat) },
		Apply: func(code *RollingCode, value string) error {
			v, err := parseUint("Repeat", value, 8)
			code.Repeat = uint8(v)
			return err
		},
	},
	{
		Name: "Manufacture",
		Apply: func(code *RollingCode, value string) error {
			code.Manufacturer = value
			return nil
		},
	},
	{
		Name:   "Frequency",
		Derive: func(uint64) string { return strconv.Itoa(DefaultFrequency) },
		Apply: func(code *RollingCode, value string) error {
			v, err := parseUint("Frequency", value, 32)
			code.Frequency = uint32(v)
			return err
		},
	},
	{
		Name:   "Preset",
		Derive: func(uint64) string { return DefaultPreset },
		Apply: func(code *RollingCode, value string) error {
			code.Preset = value
			return nil
		},
	},
}

// FromRecord converts a text record to a code
func FromRecord(r *Record) (RollingCode, error) {
	var code RollingCode

	for _, f := range recordSchema {
		value, ok := r.Get(f.Name)
		if ok && value == "" && !f.Required {
			ok = false
		}
		if !ok {
			if f.Required {
				return RollingCode{}, newFieldError(ErrTypeMissingField, f.Name, "mandatory field is absent", nil)
			}
			if f.Derive == nil {
				continue
			}
			value = f.Derive(code.Data)
		}
		if err := f.Apply(&code, value); err != nil {
			return RollingCode{}, err
		}
	}

	return code, nil
}

func applyProtocol(_ *RollingCode, value string) error {
	if value != ProtocolName {
		return newFieldError(ErrTypeProtocolMismatch, "Protocol",
			fmt.Sprintf("got %q, want %q", value, ProtocolName), nil)
	}
	return nil
}

func applyKey(code *RollingCode, value string) error {
	key, err := ParseKey(value)
	if err != nil {
		return err
	}
	code.Data = key
	return nil
}

// applyBit validates the Bit field. The frame width is fixed by the
// protocol, so a different declared width is logged and ignored.
func applyBit(code *RollingCode, value string) error {
	bitCount, err := parseUint("Bit", value, 32)
	if err != nil {
		return err
	}
	if bitCount != MinBits {
		logging.Warn("Record declares a non-standard bit count, using protocol width",
			zap.Uint64("declared", bitCount),
			zap.Int("used", MinBits),
		)
	}
	code.BitCount = MinBits
	return nil
}

// ParseKey parses a 64-bit key written as 16 hex nibbles. Spaces and
// colons between nibbles are ignored.
func ParseKey(s string) (uint64, error) {
	var key uint64
	nibbles := 0

	for _, c := range s {
		var v uint64
		switch {
		case c == ' ' || c == ':' || c == '\t':
			continue
		case c >= '0' && c <= '9':
			v = uint64(c - '0')
		case c >= 'A' && c <= 'F':
			v = uint64(c-'A') + 10
		case c >= 'a' && c <= 'f':
			v = uint64(c-'a') + 10
		default:
			return 0, newFieldError(ErrTypeInvalidHexChar, "Key", fmt.Sprintf("invalid character %q", c), nil)
		}
		key = key<<4 | v
		nibbles++
	}

	if nibbles != 16 {
		return 0, newFieldError(ErrTypeInvalidKeyLength, "Key", fmt.Sprintf("got %d nibbles, want 16", nibbles), nil)
	}
	return key, nil
}

// FormatKey renders a key as space-separated upper-case byte pairs
func FormatKey(key uint64) string {
	var sb strings.Builder
	for i := 7; i >= 0; i-- {
		if i != 7 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", byte(key>>(8*i)))
	}
	return sb.String()
}

func parseUint(field, value string, bitSize int) (uint64, error) {
	v, err := strconv.ParseUint(value, 0, bitSize)
	if err != nil {
		return 0, newFieldError(ErrTypeInvalidField, field, fmt.Sprintf("invalid number %q", value), err)
	}
	return v, nil
}
