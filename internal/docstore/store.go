// Package docstore is a flat, file-backed JSON document store.
//
// Each collection lives in its own file (<dir>/<collection>.json) holding a
// pretty-printed array of records. A missing file is an empty collection.
// Writes rewrite the whole collection through a temp file and a rename, and
// every operation on a collection is serialised by that collection's mutex.
package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Store-owned record keys.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// TimeLayout is the format of the created_at and updated_at stamps.
const TimeLayout = time.RFC3339Nano

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("docstore: record not found")

// PersistenceError reports a failure reading or writing a collection file.
type PersistenceError struct {
	Op         string
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("docstore: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at/updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a handle over one data directory.
type Store struct {
	fs  afero.Fs
	dir string
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Store rooted at dir on fs, creating the directory if needed.
func New(fs afero.Fs, dir string, opts ...Option) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	s := &Store{
		fs:    fs,
		dir:   dir,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewOnDisk creates a Store on the operating system filesystem.
func NewOnDisk(dir string, opts ...Option) (*Store, error) {
	return New(afero.NewOsFs(), dir, opts...)
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// GetAll returns every record of collection in storage order.
func (s *Store) GetAll(collection string) ([]Record, error) {
	unlock, err := s.lock(collection)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.load(collection)
}

// GetByID returns the record with the given id or ErrNotFound.
func (s *Store) GetByID(collection string, id int64) (Record, error) {
	unlock, err := s.lock(collection)
	if err != nil {
		return nil, err
	}
	defer unlock()

	records, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	if i := indexOf(records, id); i >= 0 {
		return records[i], nil
	}
	return nil, ErrNotFound
}

// Insert stores data as a new record. The id is one more than the largest
// id in the collection (1 for an empty collection) and both timestamps are
// set to the current time, overriding anything the caller supplied.
func (s *Store) Insert(collection string, data Record) (Record, error) {
	return s.InsertChecked(collection, data, nil)
}

// InsertChecked is Insert with a guard evaluated against the current
// records while the collection is locked. A non-nil error from check aborts
// the insert and is returned unchanged. A nil check always passes.
func (s *Store) InsertChecked(collection string, data Record, check func(existing []Record) error) (Record, error) {
	unlock, err := s.lock(collection)
	if err != nil {
		return nil, err
	}
	defer unlock()

	records, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(records); err != nil {
			return nil, err
		}
	}

	record := data.Clone()
	stamp := s.stamp()
	record[FieldID] = nextID(records)
	record[FieldCreatedAt] = stamp
	record[FieldUpdatedAt] = stamp

	if err := s.save(collection, append(records, record)); err != nil {
		return nil, err
	}
	return record, nil
}

// Update merges data into the record with the given id. The id and
// created_at of the stored record always win over data; updated_at is
// refreshed.
func (s *Store) Update(collection string, id int64, data Record) (Record, error) {
	unlock, err := s.lock(collection)
	if err != nil {
		return nil, err
	}
	defer unlock()

	records, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, ErrNotFound
	}

	existing := records[i]
	merged := existing.Clone()
	for k, v := range data {
		merged[k] = v
	}
	merged[FieldID] = existing[FieldID]
	merged[FieldCreatedAt] = existing[FieldCreatedAt]
	merged[FieldUpdatedAt] = s.stamp()
	records[i] = merged

	if err := s.save(collection, records); err != nil {
		return nil, err
	}
	return merged, nil
}

// Delete removes the record with the given id. The remaining records are
// written back contiguously in their original order.
func (s *Store) Delete(collection string, id int64) error {
	unlock, err := s.lock(collection)
	if err != nil {
		return err
	}
	defer unlock()

	records, err := s.load(collection)
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return ErrNotFound
	}

	remaining := make([]Record, 0, len(records)-1)
	remaining = append(remaining, records[:i]...)
	remaining = append(remaining, records[i+1:]...)
	return s.save(collection, remaining)
}

// DeleteWhere removes every record matching pred in a single rewrite and
// returns how many were removed. Nothing is written when nothing matches.
func (s *Store) DeleteWhere(collection string, pred func(Record) bool) (int, error) {
	unlock, err := s.lock(collection)
	if err != nil {
		return 0, err
	}
	defer unlock()

	records, err := s.load(collection)
	if err != nil {
		return 0, err
	}

	remaining := make([]Record, 0, len(records))
	for _, r := range records {
		if !pred(r) {
			remaining = append(remaining, r)
		}
	}
	removed := len(records) - len(remaining)
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(collection, remaining); err != nil {
		return 0, err
	}
	return removed, nil
}

// FindBy returns the records whose field equals value. Numbers compare by
// value regardless of their Go type.
func (s *Store) FindBy(collection, field string, value any) ([]Record, error) {
	return s.FindWhere(collection, func(r Record) bool {
		v, ok := r[field]
		return ok && Equal(v, value)
	})
}

// FindWhere returns the records satisfying pred in storage order.
func (s *Store) FindWhere(collection string, pred func(Record) bool) ([]Record, error) {
	records, err := s.GetAll(collection)
	if err != nil {
		return nil, err
	}

	matched := make([]Record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (s *Store) lock(collection string) (func(), error) {
	if collection == "" || strings.ContainsAny(collection, `/\`) || strings.HasPrefix(collection, ".") {
		return nil, fmt.Errorf("docstore: invalid collection name %q", collection)
	}

	s.mu.Lock()
	l, ok := s.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		s.locks[collection] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(TimeLayout)
}

func (s *Store) load(collection string) ([]Record, error) {
	raw, err := afero.ReadFile(s.fs, s.path(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, &PersistenceError{Op: "read", Collection: collection, Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, &PersistenceError{Op: "decode", Collection: collection, Err: err}
	}
	for _, r := range records {
		r.normalize()
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *Store) save(collection string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	raw, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return &PersistenceError{Op: "encode", Collection: collection, Err: err}
	}

	tmp, err := afero.TempFile(s.fs, s.dir, collection+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "write", Collection: collection, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return &PersistenceError{Op: "write", Collection: collection, Err: err}
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return &PersistenceError{Op: "write", Collection: collection, Err: err}
	}
	if err := s.fs.Rename(tmpName, s.path(collection)); err != nil {
		s.fs.Remove(tmpName)
		return &PersistenceError{Op: "rename", Collection: collection, Err: err}
	}
	return nil
}

func indexOf(records []Record, id int64) int {
	for i, r := range records {
		if rid, ok := r.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}

func nextID(records []Record) int64 {
	var maxID int64
	for _, r := range records {
		if id, ok := r.ID(); ok && id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}
