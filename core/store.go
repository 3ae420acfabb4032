package core

import (
	"io"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"multidex/internal/lock"
	"multidex/internal/metrics"
	"multidex/internal/record"
)

// Store state machine: Closed -> Rebuilding -> Ready. Operations are only
// accepted in Ready.
type state int

const (
	stateClosed state = iota
	stateRebuilding
	stateReady
)

var (
	// ErrNotReady is returned when an operation is issued against a store
	// that is closed or still rebuilding its index.
	ErrNotReady = errors.New("store is not ready")

	// ErrKeyTooLarge is returned when a key exceeds the on-disk key length
	// bound and could not be read back by a rebuild scan.
	ErrKeyTooLarge = errors.New("key exceeds maximum size")
)

// Store is a persistent multimap from string keys to sets of int32 values.
//
// Every live (key, value) pair is one non-tombstoned record in an append-only
// data file; deletes flip a record's tombstone byte in place and the file
// never shrinks. The in-memory index mirrors the file and is rebuilt from it
// on startup, so the file alone is the source of truth.
//
// A Store is single-threaded: it is not safe for concurrent use, and exactly
// one Store may own a data file at a time (enforced with a lock file).
type Store struct {
	file     *os.File
	lockFile *os.File
	offset   int64 // append position, end of file
	index    *keyIndex
	state    state
	path     string

	logger  log.Logger
	metrics *metrics.StoreMetrics
}

// Options configures a Store. The zero value disables logging and metrics.
type Options struct {
	Logger     log.Logger
	Registerer prometheus.Registerer
}

// Open acquires ownership of the data file at path and returns a Ready store.
//
// A missing file is created empty and the store starts with an empty index.
// An existing file is replayed from offset 0 to rebuild the index before any
// operation is accepted.
func Open(path string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "component", "store")

	lf, err := lock.LockFile(path)
	if err != nil {
		return nil, err
	}

	existed := pathExists(path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		lock.UnlockFile(lf)
		return nil, errors.Wrapf(err, "opening data file %s", path)
	}

	s := &Store{
		file:     f,
		lockFile: lf,
		index:    newKeyIndex(),
		state:    stateClosed,
		path:     path,
		logger:   logger,
		metrics:  metrics.NewStoreMetrics(opts.Registerer),
	}

	if existed {
		if err := s.rebuild(); err != nil {
			s.file.Close()
			lock.UnlockFile(lf)
			return nil, err
		}
	} else {
		level.Info(logger).Log("msg", "data file not found, created empty", "path", path)
	}

	// New records always go to the physical end of the file, past any
	// unreadable trailing bytes a previous interrupted write left behind.
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		s.file.Close()
		lock.UnlockFile(lf)
		return nil, errors.Wrap(err, "seeking data file end")
	}
	s.offset = end

	s.state = stateReady
	s.metrics.SetLive(s.index.keyCount(), s.index.pairCount())

	return s, nil
}

// rebuild replays every record from offset 0, populating the index with live
// (key, value) pairs and their offsets. The scan stops at the first short or
// malformed record; everything after it is unreadable trailing garbage, not
// an error.
func (s *Store) rebuild() error {
	s.state = stateRebuilding
	start := time.Now()

	var offset int64
	var scanned int

	for {
		rec, n, err := record.ReadAt(s.file, offset)
		if err == io.EOF {
			break
		}
		if err == record.ErrMalformed {
			level.Warn(s.logger).Log(
				"msg", "unreadable trailing data, scan stopped",
				"offset", offset,
			)
			break
		}
		if err != nil {
			return errors.Wrapf(err, "reading record at offset %d", offset)
		}

		scanned++
		if !rec.Tombstone {
			s.index.insert(string(rec.Key), rec.Value, offset)
		}

		offset += n
	}

	elapsed := time.Since(start)
	s.metrics.ObserveRebuild(elapsed.Seconds(), scanned)

	level.Info(s.logger).Log(
		"msg", "index rebuilt",
		"records", scanned,
		"keys", s.index.keyCount(),
		"pairs", s.index.pairCount(),
		"duration", elapsed,
	)

	return nil
}

// Insert associates value with key. Inserting a pair that is already present
// is a no-op, so Insert is idempotent.
func (s *Store) Insert(key string, value int32) error {
	if s.state != stateReady {
		return ErrNotReady
	}
	if len(key) > record.MaxKeyLen {
		return ErrKeyTooLarge
	}

	if entry := s.index.get(key); entry != nil {
		if _, found := entry.search(value); found {
			s.metrics.ObserveInsert(false)
			return nil
		}
	}

	offset, err := s.append(&record.Record{Key: []byte(key), Value: value})
	if err != nil {
		return err
	}

	s.index.insert(key, value, offset)
	s.metrics.ObserveInsert(true)
	s.metrics.SetLive(s.index.keyCount(), s.index.pairCount())

	return nil
}

// Delete removes value from key's set. A missing key or value is absorbed as
// a no-op. On a hit, exactly one byte of the file changes: the tombstone flag
// of the record that introduced the pair.
func (s *Store) Delete(key string, value int32) error {
	if s.state != stateReady {
		return ErrNotReady
	}

	entry := s.index.get(key)
	if entry == nil {
		s.metrics.ObserveDelete(false)
		return nil
	}
	if _, found := entry.search(value); !found {
		s.metrics.ObserveDelete(false)
		return nil
	}

	offset, _ := s.index.remove(key, value)

	if err := record.MarkTombstone(s.file, offset); err != nil {
		// The index already dropped the pair; a failed flip leaves the
		// record live on disk and it will resurface on the next rebuild.
		return errors.Wrapf(err, "marking tombstone at offset %d", offset)
	}

	s.metrics.ObserveDelete(true)
	s.metrics.SetLive(s.index.keyCount(), s.index.pairCount())

	return nil
}

// Find returns key's live values in ascending order, answered purely from
// the index. It returns nil when the key has no live values.
func (s *Store) Find(key string) []int32 {
	if s.state != stateReady {
		return nil
	}

	entry := s.index.get(key)
	if entry == nil {
		s.metrics.ObserveFind(false)
		return nil
	}

	s.metrics.ObserveFind(true)
	return entry.values()
}

// Exists reports whether key has at least one live value.
func (s *Store) Exists(key string) bool {
	return s.state == stateReady && s.index.get(key) != nil
}

// Count returns the number of distinct live keys.
func (s *Store) Count() int {
	if s.state != stateReady {
		return 0
	}
	return s.index.keyCount()
}

// Keys returns all live keys in ascending order.
func (s *Store) Keys() []string {
	if s.state != stateReady {
		return nil
	}
	return s.index.sortedKeys()
}

// Path returns the location of the backing data file.
func (s *Store) Path() string {
	return s.path
}

// Close syncs and releases the data file and its lock. The store accepts no
// operations afterwards.
func (s *Store) Close() error {
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed

	level.Info(s.logger).Log(
		"msg", "closing store",
		"keys", s.index.keyCount(),
		"pairs", s.index.pairCount(),
		"size", s.offset,
	)

	var firstErr error
	if err := s.file.Sync(); err != nil {
		firstErr = errors.Wrap(err, "syncing data file")
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "closing data file")
	}

	lock.UnlockFile(s.lockFile)

	return firstErr
}

// append encodes the record and writes it at the current end of the file,
// returning the offset it was written at.
func (s *Store) append(rec *record.Record) (int64, error) {
	encoded, err := record.Encode(rec)
	if err != nil {
		return 0, errors.Wrap(err, "encoding record")
	}

	offset := s.offset

	n, err := s.file.WriteAt(encoded, offset)
	s.offset += int64(n)
	if err != nil {
		// A partial append leaves a short trailing record; the next
		// rebuild treats it as garbage. Later appends go after it.
		return 0, errors.Wrapf(err, "appending record at offset %d", offset)
	}

	return offset, nil
}

// pathExists indicates if the given path exists (works for both files and
// directories).
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
