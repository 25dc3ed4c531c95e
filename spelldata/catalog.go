package spelldata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/dimchansky/utfbom"
	"github.com/pkg/errors"
)

type Ability struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Cooldown int    `json:"cooldown,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// Catalog holds ability names for report labels, and which profile uses which
// ability.
type Catalog struct {
	abilities map[int]Ability
	profiles  map[string][]int
}

func Empty() *Catalog {
	return &Catalog{
		abilities: make(map[int]Ability),
		profiles:  make(map[string][]int),
	}
}

func Load(path string) (*Catalog, error) {
	fs, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer fs.Close()

	c, err := Read(fs)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Read parses the catalog CSV. A row starting with 0 is the header: columns
// after the fifth name profiles. Rows starting with 1 are abilities, a non
// empty profile column marks the ability as used by that profile.
func Read(r io.Reader) (*Catalog, error) {
	sr, _ := utfbom.Skip(r)

	c := Empty()
	var columnProfile []string

	cr := csv.NewReader(sr)
	cr.FieldsPerRecord = -1
	for line := 1; ; line++ {
		d, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if len(d) < 5 {
			continue
		}

		switch d[0] {
		case "0":
			columnProfile = make([]string, len(d))
			copy(columnProfile, d)
			for i := 5; i < len(d); i++ {
				c.profiles[d[i]] = nil
			}

		case "1":
			id, err := strconv.Atoi(d[2])
			if err != nil {
				return nil, errors.Errorf("line %d: bad ability id %q", line, d[2])
			}

			cooldown, _ := strconv.Atoi(d[3])

			c.abilities[id] = Ability{
				ID:       id,
				Name:     d[1],
				Cooldown: cooldown,
				Icon:     d[4],
			}

			for i := 5; i < len(d) && i < len(columnProfile); i++ {
				if d[i] != "" {
					c.profiles[columnProfile[i]] = append(c.profiles[columnProfile[i]], id)
				}
			}
		}
	}

	return c, nil
}

func (c *Catalog) Get(id int) (Ability, bool) {
	a, ok := c.abilities[id]
	return a, ok
}

// Name returns the ability name, or "#id" for abilities the catalog lacks.
func (c *Catalog) Name(id int) string {
	if a, ok := c.abilities[id]; ok {
		return a.Name
	}
	return fmt.Sprintf("#%d", id)
}

func (c *Catalog) Len() int {
	return len(c.abilities)
}

// ForProfile returns the abilities a profile column marks, sorted by id.
func (c *Catalog) ForProfile(name string) []Ability {
	ids := append([]int(nil), c.profiles[name]...)
	sort.Ints(ids)

	r := make([]Ability, 0, len(ids))
	for _, id := range ids {
		r = append(r, c.abilities[id])
	}
	return r
}
