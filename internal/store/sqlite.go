package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLitePersister stores records as rows ordered by position.
type SQLitePersister struct {
	db   *sql.DB
	path string
}

// NewSQLitePersister opens (or creates) the database at dbPath.
func NewSQLitePersister(dbPath string) (*SQLitePersister, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	p := &SQLitePersister{db: db, path: dbPath}
	if err := p.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *SQLitePersister) initSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			position INTEGER PRIMARY KEY,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (p *SQLitePersister) Path() string { return p.path }

// Close closes the database.
func (p *SQLitePersister) Close() error { return p.db.Close() }

// Load returns all records in position order.
func (p *SQLitePersister) Load() ([]NoteRecord, error) {
	rows, err := p.db.Query(`SELECT text, embedding FROM notes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var records []NoteRecord
	for rows.Next() {
		var text string
		var blob []byte
		if err := rows.Scan(&text, &blob); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		emb, err := bytesToFloat32Slice(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: note %d: %w", ErrMalformed, len(records), err)
		}
		records = append(records, NoteRecord{Text: text, Embedding: emb})
	}
	return records, rows.Err()
}

// Save replaces every row in a single transaction.
func (p *SQLitePersister) Save(records []NoteRecord) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM notes`); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO notes (position, text, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(i, r.Text, float32SliceToBytes(r.Embedding)); err != nil {
			return fmt.Errorf("insert note %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func float32SliceToBytes(f []float32) []byte {
	b := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func bytesToFloat32Slice(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f, nil
}
