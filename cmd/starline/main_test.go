package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/starline/internal/keystore"
	"github.com/muurk/starline/internal/starline"
	"github.com/muurk/starline/internal/version"
)

// execute runs the CLI with args and returns stdout
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func writeKeystore(t *testing.T, path string) []keystore.Entry {
	t.Helper()
	ks := keystore.New(
		keystore.Entry{Name: "Decoy", Key: 0x1111111111111111, Learning: keystore.LearningNormal},
		keystore.Entry{Name: "Simple Motors", Key: 0x0123456789ABCDEF, Learning: keystore.LearningSimple},
	)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, ks.WriteYAML(f))
	require.NoError(t, f.Close())
	return ks.Entries
}

func TestVersionListsFormats(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	out := execute(t, "version", "--config", cfg)

	assert.Contains(t, out, "starline "+version.Full())
	for _, f := range version.Formats() {
		assert.Contains(t, out, f.Name+":")
	}
}

func TestEncodeDecodeResolveWorkflow(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	keys := filepath.Join(dir, "keys.yaml")
	dict := writeKeystore(t, keys)

	// A genuine code of remote 0x112233, button 2, counter 6
	seed := starline.RollingCode{
		Serial:       0x112233,
		Button:       2,
		BitCount:     starline.MinBits,
		Manufacturer: "Simple Motors",
		Counter:      5,
		Repeat:       3,
	}
	tx, err := starline.NewEncoder().Build(seed, dict)
	require.NoError(t, err)
	genuine := tx.Code()
	require.Equal(t, uint16(6), genuine.Counter)

	record := filepath.Join(dir, "remote.sub")
	require.NoError(t, os.WriteFile(record, []byte(starline.ToRecord(genuine).String()), 0644))

	raw := filepath.Join(dir, "next.sub")
	execute(t, "encode", record, "--raw", raw, "--config", cfg, "--keystore", keys, "--no-history")

	// The record was rolled forward
	f, err := os.Open(record)
	require.NoError(t, err)
	rec, err := starline.ParseRecord(f)
	f.Close()
	require.NoError(t, err)
	rolled, err := starline.FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), rolled.Counter)
	assert.Equal(t, "Simple Motors", rolled.Manufacturer)

	// Decoding the transmission recovers the new counter
	out := execute(t, "decode", raw, "--format", "json", "--config", cfg, "--keystore", keys, "--no-history")
	var codes []codeJSON
	require.NoError(t, json.Unmarshal([]byte(out), &codes), out)
	require.Len(t, codes, 1)
	assert.Equal(t, starline.FormatKey(rolled.Data), codes[0].Key)
	assert.Equal(t, "Simple Motors", codes[0].Manufacturer)
	assert.Equal(t, uint16(7), codes[0].Counter)
	assert.Equal(t, "simple", codes[0].Scheme)

	// Resolving a record with only a Key fills in the rest
	bare := filepath.Join(dir, "bare.sub")
	require.NoError(t, os.WriteFile(bare, []byte(
		"Filetype: Flipper SubGhz Key File\nVersion: 1\nProtocol: Star Line\nBit: 64\nKey: "+starline.FormatKey(rolled.Data)+"\n"), 0644))
	execute(t, "resolve", bare, "--write", "--config", cfg, "--keystore", keys)

	f, err = os.Open(bare)
	require.NoError(t, err)
	rec, err = starline.ParseRecord(f)
	f.Close()
	require.NoError(t, err)
	manufacturer, _ := rec.Get("Manufacture")
	assert.Equal(t, "Simple Motors", manufacturer)
	cnt, _ := rec.Get("Cnt")
	assert.Equal(t, "0x0007", cnt)

	// Resolved codes were remembered in the configuration
	_, err = os.Stat(cfg)
	assert.NoError(t, err)
}
