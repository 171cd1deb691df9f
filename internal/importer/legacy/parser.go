package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Legacy file names inside a source directory.
const (
	YokaiFile       = "yokai.json"
	AttacksFile     = "attacks.json"
	TechniquesFile  = "techniques.json"
	SoultimatesFile = "soultimates.json"
	InspiritsFile   = "inspirits.json"
	AttitudesFile   = "attitudes.json"
	EquipmentFile   = "equipment.json"
)

// parseList decodes data as a JSON array of T.
//
// Postcondition: returns a non-nil error if data is not an array of objects
// matching T.
func parseList[T any](data []byte) ([]T, error) {
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// readList reads dir/name as a list of T. A missing optional file yields an
// empty list.
func readList[T any](dir, name string, required bool) ([]T, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	out, err := parseList[T](data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return out, nil
}
