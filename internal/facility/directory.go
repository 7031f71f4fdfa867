package facility

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lifeline/internal/model"
)

// Directory is the on-disk facility list.
//
//	facilities:
//	  - id: nims
//	    name: NIMS Blood Bank
//	    location: {lat: 17.4239, lng: 78.4738}
//	    address: Punjagutta, Hyderabad
//	    contact_phone: "+91-40-23489000"
//	    open_24x7: true
type Directory struct {
	Facilities []model.Facility `yaml:"facilities"`
}

// LoadFile reads and validates a facility directory file.
func LoadFile(path string) ([]model.Facility, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facility file: %w", err)
	}
	facilities, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return facilities, nil
}

// Parse decodes a facility directory. Unknown fields are rejected so typos
// do not silently drop data.
func Parse(r io.Reader) ([]model.Facility, error) {
	var dir Directory
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&dir); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validate(dir.Facilities); err != nil {
		return nil, fmt.Errorf("invalid facility directory: %w", err)
	}
	if dir.Facilities == nil {
		dir.Facilities = []model.Facility{}
	}
	return dir.Facilities, nil
}

func validate(facilities []model.Facility) error {
	seen := make(map[string]bool, len(facilities))
	for i, f := range facilities {
		switch {
		case f.ID == "":
			return fmt.Errorf("facility %d: id is required", i)
		case f.Name == "":
			return fmt.Errorf("facility %s: name is required", f.ID)
		case !f.Location.Valid():
			return fmt.Errorf("facility %s: location out of range", f.ID)
		case seen[f.ID]:
			return fmt.Errorf("facility %s: duplicate id", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}
