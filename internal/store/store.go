// Package store persists computed label-map pairs under caller-supplied
// output names so repeated pipeline runs can reuse earlier results.
//
// Each entry is two artifacts: a gob-encoded label-map payload and a
// JSON metadata side file carrying dimensions, region counts, and a
// checksum of the payload. Writes publish atomically (temp file, then
// rename, metadata last), so a concurrent reader either sees a complete
// entry or no entry at all. Corruption is detected on load and surfaced
// as ErrCacheRead; the store never deletes entries on its own.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tissuegraph/regionmap/internal/imaging"
)

// ErrCacheRead marks an entry that exists but cannot be read back:
// corruption, a partial write observed despite the atomic-publish
// discipline, or a permission failure. The caller may delete and
// recompute; the store does not.
var ErrCacheRead = errors.New("cache entry unreadable")

// ErrCacheWrite marks a failed persistence attempt. The computation's
// in-memory result is unaffected; only persistence is lost.
var ErrCacheWrite = errors.New("cache entry not written")

// Entry is the persisted value: the merged label map and the initial
// (pre-merge, post-filter) label map, both at original resolution.
type Entry struct {
	Merged  *imaging.LabelMap
	Initial *imaging.LabelMap
}

// Metadata is the JSON side channel describing an entry. It is enough
// to reconstruct node identities downstream without decoding the
// payload: region counts plus dimensions fix the id range 1..K.
type Metadata struct {
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	MergedRegions  int       `json:"merged_regions"`
	InitialRegions int       `json:"initial_regions"`
	Checksum       string    `json:"checksum"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is a file-backed cache of label-map pairs.
//
// Concurrent stores for different output names are independent; callers
// must not issue overlapping writes for the same name.
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheWrite, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's backing directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) paths(name string) (data, meta string, err error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("invalid output name %q", name)
	}
	return filepath.Join(s.dir, name+".labels.gob"),
		filepath.Join(s.dir, name+".meta.json"),
		nil
}

// Load retrieves the entry stored under the output name. A missing
// entry returns (nil, false, nil). A present but unreadable entry
// returns an ErrCacheRead error; wrong data is never returned silently.
func (s *Store) Load(name string) (*Entry, bool, error) {
	dataPath, metaPath, err := s.paths(name)
	if err != nil {
		return nil, false, err
	}

	metaRaw, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCacheRead, name, err)
	}

	var meta Metadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, false, fmt.Errorf("%w: %s: bad metadata: %v", ErrCacheRead, name, err)
	}

	payload, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCacheRead, name, err)
	}
	if sum := checksum(payload); sum != meta.Checksum {
		return nil, false, fmt.Errorf("%w: %s: checksum mismatch", ErrCacheRead, name)
	}

	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("%w: %s: bad payload: %v", ErrCacheRead, name, err)
	}
	return &entry, true, nil
}

// Store persists the label-map pair under the output name, replacing any
// existing entry. The payload is published before the metadata, and both
// via rename, so readers never observe a partially written entry.
func (s *Store) Store(name string, merged, initial *imaging.LabelMap) error {
	dataPath, metaPath, err := s.paths(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&Entry{Merged: merged, Initial: initial}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheWrite, name, err)
	}
	payload := buf.Bytes()

	meta := Metadata{
		Width:          merged.Width,
		Height:         merged.Height,
		MergedRegions:  len(merged.Distinct()),
		InitialRegions: len(initial.Distinct()),
		Checksum:       checksum(payload),
		CreatedAt:      time.Now().UTC(),
	}
	metaRaw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheWrite, name, err)
	}

	if err := publish(dataPath, payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheWrite, name, err)
	}
	if err := publish(metaPath, metaRaw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheWrite, name, err)
	}
	return nil
}

// publish writes data to a temporary file in the target's directory and
// renames it into place. Rename is atomic on POSIX filesystems, so a
// reader sees either the old file or the new one, never a mixture.
func publish(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
