package keystore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = `Filetype: Flipper SubGhz Keystore File
Version: 0
Encryption: 0
# comment
0123456789ABCDEF:1:Simple Motors
FEDCBA9876543210:2:Normal Motors
1111111111111111:4:Magic Serial
0F1E2D3C4B5A6978:0:Auto Motors
`

func TestParseLearning(t *testing.T) {
	tests := []struct {
		in      string
		want    Learning
		wantErr bool
	}{
		{"simple", LearningSimple, false},
		{"Normal", LearningNormal, false},
		{"unknown", LearningUnknown, false},
		{"auto", LearningUnknown, false},
		{"0", LearningUnknown, false},
		{"1", LearningSimple, false},
		{"2", LearningNormal, false},
		{" 2 ", LearningNormal, false},
		{"3", 0, true},
		{"secure", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLearning(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadText(t *testing.T) {
	ks, err := ReadText(strings.NewReader(sampleText))
	require.NoError(t, err)

	require.Equal(t, 3, ks.Len())
	assert.Equal(t, Entry{Name: "Simple Motors", Key: 0x0123456789ABCDEF, Learning: LearningSimple}, ks.Entries[0])
	assert.Equal(t, Entry{Name: "Normal Motors", Key: 0xFEDCBA9876543210, Learning: LearningNormal}, ks.Entries[1])
	assert.Equal(t, Entry{Name: "Auto Motors", Key: 0x0F1E2D3C4B5A6978, Learning: LearningUnknown}, ks.Entries[2])
}

func TestReadTextErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing parts", "0123456789ABCDEF:1\n", "line 1"},
		{"short key", "0123:1:Short\n", "16 hex digits"},
		{"bad hex", "# header\n0123456789ABCDEZ:1:Bad\n", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadText(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	ks := New(
		Entry{Name: "Simple Motors", Key: 0x0123456789ABCDEF, Learning: LearningSimple},
		Entry{Name: "Normal Motors", Key: 0xFEDCBA9876543210, Learning: LearningNormal},
		Entry{Name: "Auto Motors", Key: 0x0F1E2D3C4B5A6978, Learning: LearningUnknown},
	)

	var buf bytes.Buffer
	require.NoError(t, ks.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "0x0123456789ABCDEF")
	assert.Contains(t, buf.String(), "learning: normal")

	got, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, ks.Entries, got.Entries)
}

func TestReadYAMLErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"wrong version", "version: 2\nmanufacturers: []\n", "unsupported keystore version"},
		{"missing name", "version: 1\nmanufacturers:\n  - key: \"0x0123456789ABCDEF\"\n    learning: simple\n", "missing name"},
		{"bad key", "version: 1\nmanufacturers:\n  - name: A\n    key: \"0x01\"\n    learning: simple\n", "16 hex digits"},
		{"bad learning", "version: 1\nmanufacturers:\n  - name: A\n    key: \"0x0123456789ABCDEF\"\n    learning: secure\n", "unsupported learning type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadYAML(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadPicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()

	textPath := filepath.Join(dir, "keeloq_mfcodes_user")
	require.NoError(t, os.WriteFile(textPath, []byte(sampleText), 0o644))

	ks, err := Load(textPath)
	require.NoError(t, err)
	assert.Equal(t, 3, ks.Len())
	assert.Equal(t, textPath, ks.Path)

	yamlPath := filepath.Join(dir, "keys.yaml")
	f, err := os.Create(yamlPath)
	require.NoError(t, err)
	require.NoError(t, ks.WriteYAML(f))
	require.NoError(t, f.Close())

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, ks.Entries, fromYAML.Entries)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	ks := New(
		Entry{Name: "A", Key: 1},
		Entry{Name: "B", Key: 2},
		Entry{Name: "A", Key: 3},
	)

	e, ok := ks.Find("A")
	require.True(t, ok)
	assert.Equal(t, uint64(1), e.Key)

	_, ok = ks.Find("C")
	assert.False(t, ok)
}
