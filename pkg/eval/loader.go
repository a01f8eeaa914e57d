package eval

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadFixture reads one fixture document. The format follows the extension:
// .yaml and .yml are YAML, anything else is JSON.
func LoadFixture(path string) (Fixture, error) {
	if strings.TrimSpace(path) == "" {
		return Fixture{}, fmt.Errorf("fixture path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture file %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err = ParseFixtureYAML(data)
	default:
		f, err = ParseFixtureJSON(data)
	}
	if err != nil {
		return Fixture{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func isFixtureFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFixturesFromDir loads every fixture document in dir, sorted by eval id.
// A missing directory yields no fixtures. Files that fail to load are logged
// and skipped.
func LoadFixturesFromDir(dir string, logger *slog.Logger) ([]Fixture, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fixtures := []Fixture{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fixtures, nil
		}
		return nil, fmt.Errorf("read fixture dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isFixtureFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := LoadFixture(path)
		if err != nil {
			logger.Warn("failed to load fixture", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		fixtures = append(fixtures, f)
	}

	sort.SliceStable(fixtures, func(i, j int) bool {
		return fixtures[i].EvalID < fixtures[j].EvalID
	})
	return fixtures, nil
}

// FindFixture returns the fixture with id from fixtures.
func FindFixture(fixtures []Fixture, id string) (Fixture, bool) {
	for _, f := range fixtures {
		if f.EvalID == id {
			return f, true
		}
	}
	return Fixture{}, false
}
