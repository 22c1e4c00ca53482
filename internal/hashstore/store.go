package hashstore

import (
	"bufio"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Filename is the name of the hash store inside the build root
const Filename = "hashes"

const chunkSize = 8192

// Store persists path -> digest records as `path=digest` lines
type Store struct {
	path string
}

func New(buildRoot string) *Store {
	return &Store{path: filepath.Join(buildRoot, Filename)}
}

func (s *Store) Path() string { return s.path }

// Load reads the store. A missing file is an empty store, not an error.
func (s *Store) Load() (map[string]string, error) {
	records := make(map[string]string)

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return records, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		// digests never contain '=', paths might
		i := strings.LastIndexByte(line, '=')
		if i <= 0 {
			continue
		}
		records[line[:i]] = line[i+1:]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Save overwrites the store with one line per record
func (s *Store) Save(records map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	bufw := bufio.NewWriter(f)
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		bufw.WriteString(k)
		bufw.WriteByte('=')
		bufw.WriteString(records[k])
		bufw.WriteByte('\n')
	}
	if err := bufw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// Digest computes the hex BLAKE2b-512 digest of a file's contents
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New512(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
