package cache

import (
	"fmt"
	"hash"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type value struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func hashOf(s string) hash.Hash {
	h := fnv.New128a()
	fmt.Fprint(h, s)
	return h
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, 0, 4, zaptest.NewLogger(t))
	require.NoError(t, err)

	var v value
	assert.False(t, s.Load(hashOf("a"), &v))

	require.True(t, s.Save(hashOf("a"), &value{Name: "a", Count: 3}))
	require.True(t, s.Load(hashOf("a"), &v))
	assert.Equal(t, value{Name: "a", Count: 3}, v)

	// a fresh storage on the same directory reads the file
	s2, err := NewStorage(dir, 0, 4, nil)
	require.NoError(t, err)
	var v2 value
	require.True(t, s2.Load(hashOf("a"), &v2))
	assert.Equal(t, v, v2)
	assert.Equal(t, 1, s2.Len())
}

func TestEviction(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 0, 2, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.True(t, s.Save(hashOf(fmt.Sprint(i)), &value{Count: i}))
	}
	assert.Equal(t, 2, s.Len())

	var v value
	require.True(t, s.Load(hashOf("0"), &v), "evicted entries come back from disk")
	assert.Equal(t, 0, v.Count)
}

func TestExpiry(t *testing.T) {
	s, err := NewStorage(t.TempDir(), time.Minute, 4, nil)
	require.NoError(t, err)

	require.True(t, s.Save(hashOf("a"), &value{Name: "a"}))
	require.True(t, s.Save(hashOf("b"), &value{Name: "b"}))

	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	var v value
	assert.False(t, s.Load(hashOf("a"), &v))

	n, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	files, _ := filepath.Glob(filepath.Join(s.dir, "*.json"))
	assert.Empty(t, files)
}

func TestCorruptEntry(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 0, 4, nil)
	require.NoError(t, err)

	k := key(hashOf("a"))
	require.NoError(t, os.WriteFile(s.path(k), []byte("{not json"), 0600))

	var v value
	assert.False(t, s.Load(hashOf("a"), &v))
	_, err = os.Stat(s.path(k))
	assert.True(t, os.IsNotExist(err))
}

func TestConcurrentSaveCollapses(t *testing.T) {
	s, err := NewStorage(t.TempDir(), 0, 4, nil)
	require.NoError(t, err)

	k := key(hashOf("a"))
	require.True(t, s.lock(k))

	var v value
	assert.False(t, s.Save(hashOf("a"), &value{}), "a save in flight wins")
	assert.False(t, s.Load(hashOf("a"), &v), "readers skip an entry being written")
	s.unlock(k)

	var ok int32
	var w sync.WaitGroup
	for i := 0; i < 8; i++ {
		w.Add(1)
		go func() {
			defer w.Done()
			if s.Save(hashOf("b"), &value{Name: "b"}) {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	w.Wait()
	assert.GreaterOrEqual(t, atomic.LoadInt32(&ok), int32(1))
	assert.True(t, s.Load(hashOf("b"), &v))
}

func TestCleanUpWithHash(t *testing.T) {
	src := t.TempDir()
	dir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.yaml"), []byte("one"), 0600))

	cleaned, err := CleanUpWithHash(dir, src)
	require.NoError(t, err)
	assert.True(t, cleaned)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte("{}"), 0600))

	cleaned, err = CleanUpWithHash(dir, src)
	require.NoError(t, err)
	assert.False(t, cleaned)
	assert.FileExists(t, filepath.Join(dir, "x.json"))

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.yaml"), []byte("two"), 0600))

	cleaned, err = CleanUpWithHash(dir, src)
	require.NoError(t, err)
	assert.True(t, cleaned)
	assert.NoFileExists(t, filepath.Join(dir, "x.json"))
}
