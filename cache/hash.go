package cache

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const stampFile = "sources.hash"

// CleanUpWithHash empties dir when the content of sources (files or
// directories) changed since the last call, so results computed from old
// profiles or ability data are never served. It reports whether dir was
// emptied.
func CleanUpWithHash(dir string, sources ...string) (bool, error) {
	newHash, err := hashSources(sources...)
	if err != nil {
		return false, err
	}

	stamp := filepath.Join(dir, stampFile)

	b, err := os.ReadFile(stamp)
	switch {
	case err == nil && len(b) == 4 && binary.BigEndian.Uint32(b) == newHash:
		return false, nil
	case err != nil && !os.IsNotExist(err):
		return false, errors.WithStack(err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return false, errors.WithStack(err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return false, errors.WithStack(err)
	}

	b = make([]byte, 4)
	binary.BigEndian.PutUint32(b, newHash)
	if err := os.WriteFile(stamp, b, 0600); err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

func hashSources(sources ...string) (uint32, error) {
	h := fnv.New32a()

	for _, src := range sources {
		err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			fmt.Fprint(h, filepath.ToSlash(path))
			if d.IsDir() {
				return nil
			}
			return hashFile(h, path)
		})
		if err != nil {
			return 0, errors.WithStack(err)
		}
	}

	return h.Sum32(), nil
}

func hashFile(h hash.Hash, path string) error {
	fs, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fs.Close()

	_, err = io.Copy(h, fs)
	return err
}
