// Package cache provides the on-disk media cache. Files are stored as
// {key}.{ext} under a single cache directory, with entry metadata kept in a
// bbolt index so expiry is tracked from creation time rather than file mtime.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
	"go.etcd.io/bbolt"
)

// ErrMiss is returned when a key has no live cache entry. It is a normal
// control-flow signal, not a failure.
var ErrMiss = errors.New("cache: miss")

// DefaultRetention is how long entries remain valid after creation.
const DefaultRetention = 7 * 24 * time.Hour

var bucketEntries = []byte("entries")

// Entry describes one cached artifact. Entries are published only after the
// underlying file is fully written.
type Entry struct {
	Key       youtubetools.Key  `json:"key"`
	Kind      youtubetools.Kind `json:"kind"`
	Path      string            `json:"path"`
	Size      int64             `json:"size"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Store maps cache keys to files on disk plus metadata.
type Store struct {
	dir       string
	retention time.Duration
	db        *bbolt.DB
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRetention sets the retention window measured from entry creation.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		s.retention = d
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNow sets the time function for testing.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store rooted at dir, creating the directory and opening the
// metadata index.
func New(dir string, opts ...Option) (*Store, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving cache dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	s := &Store{
		dir:       absDir,
		retention: DefaultRetention,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bbolt.Open(filepath.Join(absDir, "index.db"), 0o600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("opening cache index: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating index bucket: %w", err)
	}
	s.db = db

	return s, nil
}

// Close closes the metadata index.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the cache directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Resolve returns the entry for (key, kind) if its file exists on disk and
// the retention window has not elapsed. Expired entries report a miss without
// being deleted; removal is the sweep's job, which keeps the read path free
// of mutation.
func (s *Store) Resolve(ctx context.Context, key youtubetools.Key, kind youtubetools.Kind) (*Entry, error) {
	entry, err := s.getEntry(key, kind)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(entry.ExpiresAt) {
		return nil, ErrMiss
	}
	if _, err := os.Stat(entry.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("stat cache file: %w", err)
	}
	return entry, nil
}

// Publish atomically installs the file at srcPath as the cache entry for
// (key, kind). The file is renamed into place, so a concurrent reader never
// observes partial content. The entry becomes resolvable only after both the
// rename and the index write succeed.
func (s *Store) Publish(ctx context.Context, key youtubetools.Key, kind youtubetools.Kind, srcPath string) (*Entry, error) {
	dst := filepath.Join(s.dir, kind.Filename(key))

	if err := renameOrCopy(srcPath, dst); err != nil {
		return nil, fmt.Errorf("installing cache file: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, fmt.Errorf("stat published file: %w", err)
	}

	now := s.now()
	entry := &Entry{
		Key:       key,
		Kind:      kind,
		Path:      dst,
		Size:      info.Size(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.retention),
	}
	if err := s.putEntry(entry); err != nil {
		return nil, err
	}

	s.logger.Debug("published cache entry",
		"key", key.ShortString(),
		"kind", kind,
		"size", entry.Size,
	)
	return entry, nil
}

// PublishBytes installs raw bytes as a cache entry, using the same atomic
// temp-file-and-rename path as Publish.
func (s *Store) PublishBytes(ctx context.Context, key youtubetools.Key, kind youtubetools.Kind, data []byte) (*Entry, error) {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	success = true
	return s.Publish(ctx, key, kind, tmpPath)
}

// List returns all indexed entries, including expired ones that the sweep
// has not removed yet, sorted by creation time descending.
func (s *Store) List(ctx context.Context) ([]*Entry, error) {
	var entries []*Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				// Skip corrupt index records rather than failing the listing.
				s.logger.Warn("skipping corrupt index entry", "error", err)
				return nil
			}
			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// SweepResult reports what a sweep pass removed.
type SweepResult struct {
	Removed    int
	BytesFreed int64
	Errors     int
}

// Sweep removes entries whose expiry has passed, deleting both the file and
// the index record. Individual deletion failures are logged and counted but
// do not stop the pass.
func (s *Store) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, e := range entries {
		if now.Before(e.ExpiresAt) {
			continue
		}
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove expired file",
				"key", e.Key.ShortString(),
				"kind", e.Kind,
				"error", err,
			)
			result.Errors++
			continue
		}
		if err := s.deleteEntry(e.Key, e.Kind); err != nil {
			s.logger.Warn("failed to remove index entry",
				"key", e.Key.ShortString(),
				"kind", e.Kind,
				"error", err,
			)
			result.Errors++
			continue
		}
		result.Removed++
		result.BytesFreed += e.Size
		s.logger.Debug("swept expired entry",
			"key", e.Key.ShortString(),
			"kind", e.Kind,
			"age", now.Sub(e.CreatedAt),
		)
	}
	return result, nil
}

func (s *Store) getEntry(key youtubetools.Key, kind youtubetools.Kind) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketEntries).Get(entryKey(key, kind))
		if v == nil {
			return ErrMiss
		}
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("decoding entry: %w", err)
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) putEntry(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Put(entryKey(entry.Key, entry.Kind), data)
	})
	if err != nil {
		return fmt.Errorf("writing index entry: %w", err)
	}
	return nil
}

func (s *Store) deleteEntry(key youtubetools.Key, kind youtubetools.Kind) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete(entryKey(key, kind))
	})
}

// entryKey builds the index key. Kind is part of the key because a transcript
// shares the cache key of its source audio.
func entryKey(key youtubetools.Key, kind youtubetools.Kind) []byte {
	return []byte(key.String() + "/" + string(kind))
}

// renameOrCopy renames src to dst, falling back to a copy through a temp file
// in the destination directory when src lives on a different filesystem.
func renameOrCopy(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Rename failed, most likely EXDEV. Copy through a temp file in the
	// destination directory so the final rename stays atomic.
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return fmt.Errorf("copying content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	success = true
	_ = os.Remove(src)
	return nil
}
