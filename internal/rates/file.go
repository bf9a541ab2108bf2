package rates

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the YAML form of a set of rate tables:
//
//	tables:
//	  franch_rates:
//	    Tamilnadu:
//	      extra: 12
//	      slabs:
//	        - {weight: 0.25, rate: 10}
//	        - {weight: 0.5, rate: 12}
type File struct {
	Tables map[string]map[string]ZoneDoc `yaml:"tables"`
}

// ZoneDoc is one zone in a rate file.
type ZoneDoc struct {
	Extra *float64  `yaml:"extra,omitempty"`
	Slabs []SlabDoc `yaml:"slabs"`
}

// SlabDoc is one weight slab.
type SlabDoc struct {
	Weight float64 `yaml:"weight"`
	Rate   float64 `yaml:"rate"`
}

// DecodeFile parses a rate file.
func DecodeFile(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode rate file: %w", err)
	}
	for table, zones := range f.Tables {
		for zone, doc := range zones {
			if len(doc.Slabs) == 0 {
				return nil, fmt.Errorf("rate file: %s/%s has no slabs", table, zone)
			}
		}
	}
	return &f, nil
}

// ReadFile opens and parses a rate file.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rate file: %w", err)
	}
	defer fh.Close()
	return DecodeFile(fh)
}

// Book converts one table of the file.
func (f *File) Book(table string) (Book, bool) {
	zones, ok := f.Tables[table]
	if !ok {
		return nil, false
	}
	book := make(Book, len(zones))
	for name, doc := range zones {
		z := book.zone(name)
		for _, s := range doc.Slabs {
			z.Slabs[s.Weight] = s.Rate
		}
		if doc.Extra != nil {
			v := *doc.Extra
			z.Extra = &v
		}
	}
	return book, true
}

// Row is one stored rate row in either layout.
type Row struct {
	Zone    string
	Weight  *float64
	Rate    float64
	Extra   *float64 // LayoutSurcharge only
	IsExtra bool     // LayoutFlagged only
}

// Rows flattens a table of the file into stored rows for spec's layout.
// Zones and slabs come out sorted so repeated syncs write identical data.
func (f *File) Rows(spec TableSpec) ([]Row, error) {
	zones, ok := f.Tables[spec.Name]
	if !ok {
		return nil, fmt.Errorf("rate file has no table %q", spec.Name)
	}

	names := make([]string, 0, len(zones))
	for name := range zones {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []Row
	for _, name := range names {
		doc := zones[name]
		slabs := append([]SlabDoc(nil), doc.Slabs...)
		sort.Slice(slabs, func(i, j int) bool { return slabs[i].Weight < slabs[j].Weight })

		for i, s := range slabs {
			w := s.Weight
			row := Row{Zone: name, Weight: &w, Rate: s.Rate}
			if spec.Layout == LayoutSurcharge && i == len(slabs)-1 {
				row.Extra = doc.Extra
			}
			rows = append(rows, row)
		}

		if spec.Layout == LayoutFlagged && doc.Extra != nil {
			rows = append(rows, Row{Zone: name, Rate: *doc.Extra, IsExtra: true})
		}
	}
	return rows, nil
}

// FileStore serves rate tables from a YAML file. The file is re-read on
// every Load so edits are picked up by the next cache refresh.
type FileStore struct {
	path string
}

// NewFileStore creates a store reading path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads spec.Name from the file.
func (s *FileStore) Load(_ context.Context, spec TableSpec) (Book, error) {
	f, err := ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	book, ok := f.Book(spec.Name)
	if !ok {
		return nil, fmt.Errorf("rate file %s has no table %q", s.path, spec.Name)
	}
	return book, nil
}
