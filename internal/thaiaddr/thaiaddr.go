package thaiaddr

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// MaxResults caps every Search.
const MaxResults = 10

// Address is one sub-district record.
type Address struct {
	District string // tambon / khwaeng
	Amphoe   string // district / khet
	Province string
	Zipcode  string
}

// Form is an Address mapped onto the registration form fields.
type Form struct {
	SubDistrict string
	District    string
	Province    string
	Zipcode     string
}

// Index is a searchable list of addresses kept in load order.
type Index struct {
	records []Address
}

//go:embed data.json
var sampleData []byte

var (
	defaultOnce  sync.Once
	defaultIndex *Index
)

// Default returns the index built from the embedded sample data.
func Default() *Index {
	defaultOnce.Do(func() {
		idx, err := Parse(sampleData)
		if err != nil {
			panic(fmt.Sprintf("thaiaddr: embedded data: %v", err))
		}
		defaultIndex = idx
	})
	return defaultIndex
}

// Open loads the database at path, or Default when path is empty.
func Open(path string) (*Index, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load reads a JSON array of {district, amphoe, province, zipcode}
// records. Zipcodes may be numbers or strings.
func Load(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read address db: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Index, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("address db: invalid json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errors.New("address db: expected an array")
	}
	idx := &Index{}
	root.ForEach(func(_, rec gjson.Result) bool {
		a := Address{
			District: rec.Get("district").String(),
			Amphoe:   rec.Get("amphoe").String(),
			Province: rec.Get("province").String(),
			Zipcode:  rec.Get("zipcode").String(),
		}
		if a.District != "" {
			idx.records = append(idx.records, a)
		}
		return true
	})
	return idx, nil
}

// Len returns the number of records.
func (idx *Index) Len() int { return len(idx.records) }

// Search matches query against zipcodes when it is all digits and
// against sub-district names otherwise. A match may start anywhere in
// the field, so "200" finds 10200. Queries shorter than two characters
// match nothing.
func (idx *Index) Search(query string) []Address {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < 2 {
		return nil
	}
	byZip := isDigits(q)

	var out []Address
	for _, a := range idx.records {
		field := strings.ToLower(a.District)
		if byZip {
			field = a.Zipcode
		}
		if strings.Contains(field, q) {
			out = append(out, a)
			if len(out) == MaxResults {
				break
			}
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// FormatLabel renders "district, amphoe, province zipcode".
func FormatLabel(a Address) string {
	return fmt.Sprintf("%s, %s, %s %s", a.District, a.Amphoe, a.Province, a.Zipcode)
}

// ToForm maps a onto the registration form's address fields.
func ToForm(a Address) Form {
	return Form{
		SubDistrict: a.District,
		District:    a.Amphoe,
		Province:    a.Province,
		Zipcode:     a.Zipcode,
	}
}
