package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"

	"clarity-podcast/internal/models"
)

// Store reads the episode catalog from a single JSON file. Nothing is cached:
// every call goes back to disk so out-of-band edits show up on the next request.
type Store struct {
	path   string
	logger *log.Logger
}

// NewStore creates a Store for the catalog at path.
func NewStore(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		path:   filepath.Clean(path),
		logger: logger,
	}
}

// Path returns the catalog file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the episodes in file order. Read and parse failures are logged
// and reported as an empty catalog, so callers cannot tell "no episodes" from
// "load failed".
func (s *Store) Load() []models.Episode {
	episodes, err := s.LoadStrict()
	if err != nil {
		s.logger.Error("error loading episodes", "path", s.path, "err", err)
		return []models.Episode{}
	}
	return episodes
}

// LoadStrict is Load without the recovery: read errors and a file that is not
// a JSON array are returned. Individual records that cannot be decoded are
// logged and skipped so one bad entry does not hide the rest.
func (s *Store) LoadStrict() ([]models.Episode, error) {
	episodes, _, err := s.Check()
	return episodes, err
}

// RecordError describes a catalog record that could not be decoded.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Check loads the catalog like LoadStrict and also reports the records that
// were skipped.
func (s *Store) Check() ([]models.Episode, []*RecordError, error) {
	records, err := s.readRecords()
	if err != nil {
		return nil, nil, err
	}
	episodes, _, bad := s.decodeRecords(records)
	return episodes, bad, nil
}

func (s *Store) readRecords() ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", s.path, err)
	}
	return records, nil
}

// decodeRecords returns the decodable episodes and, for each, the position of
// its record.
func (s *Store) decodeRecords(records []json.RawMessage) ([]models.Episode, []int, []*RecordError) {
	episodes := make([]models.Episode, 0, len(records))
	index := make([]int, 0, len(records))
	var bad []*RecordError

	for i, raw := range records {
		var ep models.Episode
		err := json.Unmarshal(raw, &ep)
		if err == nil && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			err = errors.New("null record")
		}
		if err != nil {
			s.logger.Warn("skipping unreadable catalog record", "path", s.path, "index", i, "err", err)
			bad = append(bad, &RecordError{Index: i, Err: err})
			continue
		}
		episodes = append(episodes, ep)
		index = append(index, i)
	}
	return episodes, index, bad
}

// Update loads the catalog while holding an exclusive lock on a sibling .lock
// file, lets fn edit the episodes in place and writes back only the fields fn
// changed. Keys the Episode type does not model, key order and undecodable
// records are kept as they were. fn cannot add or remove episodes. Update
// returns the number of records rewritten; nothing is written when it is zero.
func (s *Store) Update(fn func(episodes []models.Episode) error) (int, error) {
	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock catalog: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release catalog lock", "path", s.path, "err", err)
		}
	}()

	records, err := s.readRecords()
	if err != nil {
		return 0, err
	}
	episodes, index, _ := s.decodeRecords(records)

	before := make([]models.Episode, len(episodes))
	for i, ep := range episodes {
		ep.Categories = slices.Clone(ep.Categories)
		before[i] = ep
	}

	if err := fn(episodes); err != nil {
		return 0, err
	}

	changed := 0
	for i := range episodes {
		merged, dirty, err := mergeRecord(records[index[i]], before[i], episodes[i])
		if err != nil {
			return 0, fmt.Errorf("episode %d: %w", episodes[i].ID, err)
		}
		if dirty {
			records[index[i]] = merged
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}

	if err := s.writeRecords(records); err != nil {
		return 0, err
	}
	s.logger.Info("catalog saved", "path", s.path, "changed", changed)
	return changed, nil
}

// writeRecords renames a complete new file into place so readers never see a
// partial catalog.
func (s *Store) writeRecords(records []json.RawMessage) error {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, raw := range records {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.Write(raw)
	}
	compact.WriteByte(']')

	var buf bytes.Buffer
	if err := json.Indent(&buf, compact.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	buf.WriteByte('\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp catalog: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// Find returns the first episode whose id equals id.
func Find(episodes []models.Episode, id int) (models.Episode, bool) {
	for _, ep := range episodes {
		if ep.ID == id {
			return ep, true
		}
	}
	return models.Episode{}, false
}

// FirstDuplicateID reports the first id that appears more than once.
func FirstDuplicateID(episodes []models.Episode) (int, bool) {
	seen := make(map[int]struct{}, len(episodes))
	for _, ep := range episodes {
		if _, ok := seen[ep.ID]; ok {
			return ep.ID, true
		}
		seen[ep.ID] = struct{}{}
	}
	return 0, false
}
