package profile

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Set is every valid profile found in a directory, by name.
type Set struct {
	profiles map[string]*Profile

	// Invalid holds the files (or file#name) that failed to parse or validate.
	Invalid map[string]error
}

func (s *Set) Get(name string) (*Profile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

func (s *Set) Names() []string {
	r := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		r = append(r, name)
	}
	sort.Strings(r)
	return r
}

func (s *Set) Len() int {
	return len(s.profiles)
}

// Parse reads every YAML document of r as a profile.
func Parse(r io.Reader) ([]*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ps []*Profile
	for {
		p := new(Profile)
		err := dec.Decode(p)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse profile")
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func LoadFile(path string) ([]*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	ps, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	for _, p := range ps {
		p.SourceFile = path
	}
	return ps, nil
}

// LoadDir loads every *.yaml / *.yml below dir in file name order. A profile
// defined again in a later file replaces the earlier one. Broken files and
// invalid profiles are skipped and reported in Set.Invalid.
func LoadDir(dir string, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := profileFiles(dir)
	if err != nil {
		return nil, err
	}

	s := &Set{
		profiles: make(map[string]*Profile),
		Invalid:  make(map[string]error),
	}

	for _, file := range files {
		ps, err := LoadFile(file)
		if err != nil {
			logger.Warn("profile file skipped", zap.String("file", file), zap.Error(err))
			s.Invalid[file] = err
			continue
		}

		for _, p := range ps {
			if err := p.Validate(); err != nil {
				logger.Warn("invalid profile skipped",
					zap.String("file", file),
					zap.String("profile", p.Name),
					zap.Error(err),
				)
				s.Invalid[file+"#"+p.Name] = err
				continue
			}

			if old, ok := s.profiles[p.Name]; ok {
				logger.Info("profile overridden",
					zap.String("profile", p.Name),
					zap.String("file", file),
					zap.String("previous", old.SourceFile),
				)
			}
			s.profiles[p.Name] = p
		}
	}

	logger.Info("profiles loaded",
		zap.String("dir", dir),
		zap.Int("profiles", len(s.profiles)),
		zap.Int("invalid", len(s.Invalid)),
	)
	return s, nil
}

func profileFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "read profile dir")
	}

	sort.Strings(files)
	return files, nil
}
