package cache

import (
	"bytes"
	"encoding/hex"
	"hash"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	lru "github.com/hashicorp/golang-lru/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type entry struct {
	data  []byte
	saved time.Time
}

// Storage keeps JSON values keyed by a request hash: recent entries in memory,
// all of them as files under dir. Entries older than ttl are misses; a zero
// ttl keeps entries forever.
type Storage struct {
	dir    string
	ttl    time.Duration
	mem    *lru.Cache[string, entry]
	logger *zap.Logger

	now func() time.Time

	savingLock sync.RWMutex
	saving     map[string]struct{}
}

func NewStorage(dir string, ttl time.Duration, entries int, logger *zap.Logger) (*Storage, error) {
	if entries < 1 {
		entries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.WithStack(err)
	}

	mem, err := lru.New[string, entry](entries)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Storage{
		dir:    dir,
		ttl:    ttl,
		mem:    mem,
		logger: logger,
		now:    time.Now,
		saving: make(map[string]struct{}, 32),
	}, nil
}

func key(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Storage) path(k string) string {
	return filepath.Join(s.dir, k+".json")
}

func (s *Storage) expired(saved time.Time) bool {
	return s.ttl > 0 && s.now().Sub(saved) > s.ttl
}

func (s *Storage) lock(k string) bool {
	s.savingLock.Lock()
	defer s.savingLock.Unlock()

	_, ok := s.saving[k]
	if !ok {
		s.saving[k] = struct{}{}
	}
	return !ok
}

func (s *Storage) unlock(k string) {
	s.savingLock.Lock()
	defer s.savingLock.Unlock()

	delete(s.saving, k)
}

func (s *Storage) checkSkip(k string) bool {
	s.savingLock.RLock()
	defer s.savingLock.RUnlock()

	_, ok := s.saving[k]
	return ok
}

// Load decodes the entry for h into v. It reports false on a miss, an expired
// entry, or an entry that is being written.
func (s *Storage) Load(h hash.Hash, v interface{}) bool {
	k := key(h)
	if s.checkSkip(k) {
		return false
	}

	e, ok := s.mem.Get(k)
	if !ok {
		fi, err := os.Stat(s.path(k))
		if err != nil {
			return false
		}

		data, err := os.ReadFile(s.path(k))
		if err != nil {
			s.logger.Warn("cache read failed", zap.String("key", k), zap.Error(err))
			return false
		}

		e = entry{data: data, saved: fi.ModTime()}
	}

	if s.expired(e.saved) {
		s.mem.Remove(k)
		os.Remove(s.path(k))
		return false
	}

	if err := json.Unmarshal(e.data, v); err != nil {
		sentry.CaptureException(err)
		s.logger.Warn("cache entry corrupt", zap.String("key", k), zap.Error(err))
		s.mem.Remove(k)
		os.Remove(s.path(k))
		return false
	}

	if !ok {
		s.mem.Add(k, e)
	}
	return true
}

// Save stores v under h. Concurrent saves of the same key are collapsed: only
// the first one writes, the others report false.
func (s *Storage) Save(h hash.Hash, v interface{}) bool {
	k := key(h)
	if !s.lock(k) {
		return false
	}
	defer s.unlock(k)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		sentry.CaptureException(err)
		s.logger.Error("cache encode failed", zap.String("key", k), zap.Error(err))
		return false
	}

	tmp, err := os.CreateTemp(s.dir, k+".*.tmp")
	if err != nil {
		sentry.CaptureException(err)
		s.logger.Error("cache write failed", zap.String("key", k), zap.Error(err))
		return false
	}
	_, err = buf.WriteTo(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), s.path(k))
	}
	if err != nil {
		os.Remove(tmp.Name())
		sentry.CaptureException(err)
		s.logger.Error("cache write failed", zap.String("key", k), zap.Error(err))
		return false
	}

	s.mem.Add(k, entry{data: buf.Bytes(), saved: s.now()})
	return true
}

// Sweep removes expired files and returns how many were removed.
func (s *Storage) Sweep() (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	fiList, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	removed := 0
	for _, fi := range fiList {
		if fi.IsDir() || filepath.Ext(fi.Name()) != ".json" {
			continue
		}
		info, err := fi.Info()
		if err != nil {
			continue
		}
		if s.expired(info.ModTime()) {
			k := fi.Name()[:len(fi.Name())-len(".json")]
			if s.checkSkip(k) {
				continue
			}
			s.mem.Remove(k)
			if err := os.Remove(filepath.Join(s.dir, fi.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *Storage) Len() int {
	return s.mem.Len()
}
