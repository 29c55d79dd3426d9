package yearfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"CycleDCA/internal/model"
)

// Dir stores one price file per year under Root, named <year>.csv.
type Dir struct {
	Root string
}

// NewDir returns a Dir rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

// Path returns the file path for year.
func (d *Dir) Path(year int) string {
	return filepath.Join(d.Root, strconv.Itoa(year)+".csv")
}

// Exists reports whether the file for year is present.
func (d *Dir) Exists(year int) bool {
	_, err := os.Stat(d.Path(year))
	return err == nil
}

// Years lists the years that have a file, oldest first.
func (d *Dir) Years() ([]int, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", d.Root, err)
	}
	var years []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		y, err := strconv.Atoi(strings.TrimSuffix(name, ".csv"))
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

// Load reads the file for year. A missing file yields an error wrapping os.ErrNotExist.
func (d *Dir) Load(year int) (model.PriceSeries, error) {
	return ReadFile(d.Path(year))
}

// Write replaces the file for year atomically.
func (d *Dir) Write(year int, series model.PriceSeries) error {
	return WriteFile(d.Path(year), series)
}

// ReadFile decodes the price file at path.
func ReadFile(path string) (model.PriceSeries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

// WriteFile encodes series to a temp file beside path and renames it into place.
func WriteFile(path string, series model.PriceSeries) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, series); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
