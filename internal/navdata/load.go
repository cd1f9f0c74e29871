package navdata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Load reads navdata from path. The format is chosen by extension: ".db", ".sqlite" and
// ".sqlite3" are SQLite databases, ".zst" is zstd-compressed JSON and anything else is JSON.
func Load(path string) (*Index, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(path)
	default:
		return LoadJSON(path)
	}
}

// LoadJSON reads a JSON navdata document, transparently decompressing ".zst" files
func LoadJSON(path string) (*Index, error) {
	r, err := OpenMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var raw RawNavdata
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidNavdata, path, err)
	}

	return NewIndex(raw)
}

// OpenMaybeCompressed opens path for reading, wrapping it in a zstd decoder when the file name
// ends in ".zst".
func OpenMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !strings.EqualFold(filepath.Ext(path), ".zst") {
		return f, nil
	}

	zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(0))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd reader for %s: %w", path, err)
	}
	return &zstdFile{Decoder: zr, f: f}, nil
}

type zstdFile struct {
	*zstd.Decoder
	f *os.File
}

func (z *zstdFile) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}
