package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix marks a store file that is zstd-compressed on disk.
const CompressedSuffix = ".zst"

// FilePersister stores records as a single JSON array in one file.
type FilePersister struct {
	path     string
	codec    Codec
	compress bool
}

// FileOption configures a FilePersister.
type FileOption func(*FilePersister)

// WithCodec sets the JSON codec.
func WithCodec(c Codec) FileOption {
	return func(p *FilePersister) {
		if c != nil {
			p.codec = c
		}
	}
}

// NewFilePersister returns a persister for path. Paths ending in ".zst" are
// read and written zstd-compressed.
func NewFilePersister(path string, opts ...FileOption) *FilePersister {
	p := &FilePersister{
		path:     path,
		codec:    DefaultCodec,
		compress: strings.HasSuffix(path, CompressedSuffix),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Path returns the store file path.
func (p *FilePersister) Path() string { return p.path }

// Close is a no-op; the file is only open during Load and Save.
func (p *FilePersister) Close() error { return nil }

// Load reads all records. A missing file is an empty store.
func (p *FilePersister) Load() ([]NoteRecord, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store %s: %w", p.path, err)
	}
	if p.compress {
		data, err = decompress(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, p.path, err)
		}
	}
	var records []NoteRecord
	if err := p.codec.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, p.path, err)
	}
	return records, nil
}

// Save writes all records, replacing the previous file atomically.
func (p *FilePersister) Save(records []NoteRecord) error {
	if records == nil {
		records = []NoteRecord{}
	}
	data, err := p.codec.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return saveToFile(p.path, func(w io.Writer) error {
		if !p.compress {
			_, err := w.Write(data)
			return err
		}
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := enc.Write(data); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	})
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

// saveToFile writes to a temp file in the target directory, syncs it and
// renames it over filename so readers never observe a partial file.
func saveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 64*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}
