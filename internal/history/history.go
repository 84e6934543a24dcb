// Package history records decoded codes in a SQLite database.
//
// Each capture (a CLI decode run, a serial listen session or one bridge
// connection) gets a row in captures; every code it emits is stored in
// codes with the key recovery result at the time it was received.
package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/muurk/starline/internal/starline"
)

// schema.sql creates the captures and codes tables.
//
//go:embed schema.sql
var schemaSQL string

// DB is the code history store
type DB struct {
	*sql.DB
}

// Entry is one stored code
type Entry struct {
	ID         int64
	CaptureID  int64
	Code       starline.RollingCode
	Scheme     string
	ReceivedAt time.Time
}

// Open opens (and creates if needed) the history database at path
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &DB{db}, nil
}

// StartCapture creates a capture record and returns its ID
func (db *DB) StartCapture(source string) (int64, error) {
	res, err := db.Exec(`INSERT INTO captures (source) VALUES (?)`, source)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}
	return res.LastInsertId()
}

// RecordCode stores a code received during a capture
func (db *DB) RecordCode(captureID int64, code starline.RollingCode) error {
	query := `
		INSERT INTO codes (capture_id, key_hex, bit_count, serial, button, counter, manufacturer, scheme)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	scheme := ""
	if code.Scheme != starline.SchemeNone {
		scheme = code.Scheme.String()
	}

	_, err := db.Exec(query,
		captureID,
		fmt.Sprintf("%016X", code.Data),
		code.BitCount,
		code.Serial&0xFFFFFF,
		code.Button,
		code.Counter,
		code.Manufacturer,
		scheme,
	)
	if err != nil {
		return fmt.Errorf("failed to insert code: %w", err)
	}
	return nil
}

// Recent returns the newest codes, newest first
func (db *DB) Recent(limit int) ([]Entry, error) {
	return db.query(`
		SELECT code_id, capture_id, key_hex, bit_count, serial, button, counter, manufacturer, scheme, received_at
		FROM codes ORDER BY code_id DESC LIMIT ?
	`, limit)
}

// BySerial returns every code of one remote, oldest first
func (db *DB) BySerial(serial uint32) ([]Entry, error) {
	return db.query(`
		SELECT code_id, capture_id, key_hex, bit_count, serial, button, counter, manufacturer, scheme, received_at
		FROM codes WHERE serial = ? ORDER BY code_id ASC
	`, serial&0xFFFFFF)
}

func (db *DB) query(query string, args ...interface{}) ([]Entry, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query codes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			keyHex  string
			serial  int64
			button  int64
			counter int64
			unix    int64
		)
		if err := rows.Scan(&e.ID, &e.CaptureID, &keyHex, &e.Code.BitCount, &serial, &button, &counter,
			&e.Code.Manufacturer, &e.Scheme, &unix); err != nil {
			return nil, fmt.Errorf("failed to scan code: %w", err)
		}

		data, err := strconv.ParseUint(keyHex, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt key %q in history: %w", keyHex, err)
		}
		e.Code.Data = data
		e.Code.Serial = uint32(serial)
		e.Code.Button = uint8(button)
		e.Code.Counter = uint16(counter)
		e.ReceivedAt = time.Unix(unix, 0)
		e.Code.Scheme, _ = starline.ParseScheme(e.Scheme)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
