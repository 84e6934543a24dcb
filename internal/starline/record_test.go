package starline

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseRecordString(t *testing.T, s string) *Record {
	t.Helper()
	r, err := ParseRecord(strings.NewReader(s))
	require.NoError(t, err)
	return r
}

func TestRecordRoundTrip(t *testing.T) {
	code := RollingCode{
		Data:         0xA0A1A2A3A4A5B4C1,
		BitCount:     64,
		Serial:       0x00112233,
		Button:       0x05,
		Counter:      0x00AA,
		Manufacturer: "Simple Motors",
		Repeat:       12,
		Frequency:    868350000,
		Preset:       "FuriHalSubGhzPresetOok270Async",
	}

	var sb strings.Builder
	_, err := ToRecord(code).WriteTo(&sb)
	require.NoError(t, err)

	got, err := FromRecord(parseRecordString(t, sb.String()))
	require.NoError(t, err)
	if diff := cmp.Diff(code, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToRecordFormat(t *testing.T) {
	r := ToRecord(RollingCode{Data: 0xA0A1A2A3A4A5B4C1, BitCount: 64, Serial: 0x112233, Button: 5, Counter: 0xAA})

	want := `Filetype: Flipper SubGhz Key File
Version: 1
Frequency: 433920000
Preset: FuriHalSubGhzPresetOok650Async
Protocol: Star Line
Bit: 64
Key: A0 A1 A2 A3 A4 A5 B4 C1
Serial: 0x00112233
Btn: 0x05
Cnt: 0x00AA
Repeat: 40
`
	assert.Equal(t, want, r.String())
	_, ok := r.Get("Manufacture")
	assert.False(t, ok, "unresolved code must not write Manufacture")
}

func TestFromRecordDerivesOptionalFields(t *testing.T) {
	r := parseRecordString(t, `# captured on the bench
Protocol: Star Line
Bit: 64
Key: 01 23 45 67 89 AB CD EF
`)

	code, err := FromRecord(r)
	require.NoError(t, err)

	assert.Equal(t, uint64(0x0123456789ABCDEF), code.Data)
	assert.Equal(t, uint32(0x23456789), code.Serial)
	assert.Equal(t, uint8(0xAB), code.Button)
	assert.Equal(t, uint16(0), code.Counter)
	assert.Equal(t, uint8(DefaultRepeat), code.Repeat)
	assert.Equal(t, "", code.Manufacturer, "absent Manufacture must stay unresolved")
	assert.Equal(t, uint32(DefaultFrequency), code.Frequency)
	assert.Equal(t, DefaultPreset, code.Preset)
	assert.Equal(t, uint32(MinBits), code.BitCount)
}

func TestFromRecordBitFieldNotAuthoritative(t *testing.T) {
	r := parseRecordString(t, "Protocol: Star Line\nBit: 66\nKey: 0123456789ABCDEF\n")

	code, err := FromRecord(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(MinBits), code.BitCount)
}

func TestFromRecordKeepsUnknownSentinel(t *testing.T) {
	r := parseRecordString(t, "Protocol: Star Line\nBit: 64\nKey: 0123456789ABCDEF\nManufacture: Unknown\nCnt: 12\n")

	code, err := FromRecord(r)
	require.NoError(t, err)
	assert.Equal(t, ManufacturerUnknown, code.Manufacturer)
	assert.Equal(t, uint16(12), code.Counter)
	assert.False(t, code.Resolved())
}

func TestFromRecordErrors(t *testing.T) {
	tests := []struct {
		name     string
		record   string
		wantType ErrorType
	}{
		{
			name:     "15 nibble key",
			record:   "Protocol: Star Line\nBit: 64\nKey: 0123456789ABCDE\n",
			wantType: ErrTypeInvalidKeyLength,
		},
		{
			name:     "17 nibble key",
			record:   "Protocol: Star Line\nBit: 64\nKey: 0123456789ABCDEF0\n",
			wantType: ErrTypeInvalidKeyLength,
		},
		{
			name:     "non-hex key character",
			record:   "Protocol: Star Line\nBit: 64\nKey: 0123456789ABCDEG\n",
			wantType: ErrTypeInvalidHexChar,
		},
		{
			name:     "other protocol",
			record:   "Protocol: KeeLoq\nBit: 64\nKey: 0123456789ABCDEF\n",
			wantType: ErrTypeProtocolMismatch,
		},
		{
			name:     "missing protocol",
			record:   "Bit: 64\nKey: 0123456789ABCDEF\n",
			wantType: ErrTypeMissingField,
		},
		{
			name:     "missing key",
			record:   "Protocol: Star Line\nBit: 64\n",
			wantType: ErrTypeMissingField,
		},
		{
			name:     "missing bit",
			record:   "Protocol: Star Line\nKey: 0123456789ABCDEF\n",
			wantType: ErrTypeMissingField,
		},
		{
			name:     "bad bit",
			record:   "Protocol: Star Line\nBit: lots\nKey: 0123456789ABCDEF\n",
			wantType: ErrTypeInvalidField,
		},
		{
			name:     "button out of range",
			record:   "Protocol: Star Line\nBit: 64\nKey: 0123456789ABCDEF\nBtn: 0x100\n",
			wantType: ErrTypeInvalidField,
		},
		{
			name:     "bad counter",
			record:   "Protocol: Star Line\nBit: 64\nKey: 0123456789ABCDEF\nCnt: -1\n",
			wantType: ErrTypeInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRecord(parseRecordString(t, tt.record))
			if err == nil {
				t.Fatal("FromRecord() expected error")
			}
			if !IsMalformedRecord(err) {
				t.Errorf("IsMalformedRecord(%v) = false", err)
			}
			gotType, _ := ErrorTypeOf(err)
			if gotType != tt.wantType {
				t.Errorf("error type = %v, want %v (%v)", gotType, tt.wantType, err)
			}
		})
	}
}

func TestParseKeySeparators(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{in: "0123456789ABCDEF", want: 0x0123456789ABCDEF},
		{in: "01 23 45 67 89 ab cd ef", want: 0x0123456789ABCDEF},
		{in: "01:23:45:67:89:AB:CD:EF", want: 0x0123456789ABCDEF},
		{in: "  FFFFFFFFFFFFFFFF ", want: 0xFFFFFFFFFFFFFFFF},
	}

	for _, tt := range tests {
		got, err := ParseKey(tt.in)
		if err != nil {
			t.Errorf("ParseKey(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKey(%q) = 0x%016X, want 0x%016X", tt.in, got, tt.want)
		}
	}
}

func TestParseRecordRejectsBareLine(t *testing.T) {
	_, err := ParseRecord(strings.NewReader("Protocol: Star Line\nnot a field\n"))
	require.Error(t, err)
	assert.True(t, IsMalformedRecord(err))
}

func TestRecordSetAndDelete(t *testing.T) {
	r := NewRecord()
	r.Set("A", "1")
	r.Set("B", "2")
	r.Set("A", "3")
	r.Delete("B")

	assert.Equal(t, []Field{{Name: "A", Value: "3"}}, r.Fields())
}

func TestCodecErrorMessage(t *testing.T) {
	err := newFieldError(ErrTypeInvalidKeyLength, "Key", "got 15 nibbles, want 16", nil)
	assert.Equal(t, "Invalid Key Length: Key: got 15 nibbles, want 16", err.Error())
	assert.Equal(t, "ErrorType(99)", ErrorType(99).String())
}
