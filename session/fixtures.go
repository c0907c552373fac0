package session

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FixtureManifest is the file name looked up by LoadFixtures.
const FixtureManifest = "fixtures.yaml"

// Fixtures describes a recorded crawl: which HTML file to serve for each URL
// and where clicking a selector leads.
type Fixtures struct {
	Routes map[string]string `yaml:"routes"`
	Clicks map[string]string `yaml:"clicks"`
}

// LoadFixtures builds a Memory session from dir/fixtures.yaml. Route values
// are file names relative to dir.
func LoadFixtures(dir string) (*Memory, error) {
	data, err := os.ReadFile(filepath.Join(dir, FixtureManifest))
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture manifest: %w", err)
	}

	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixture manifest: %w", err)
	}

	m := NewMemory()
	for u, file := range fx.Routes {
		html, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture for %s: %w", u, err)
		}
		m.Routes[u] = string(html)
	}
	for sel, target := range fx.Clicks {
		m.Clicks[sel] = target
	}
	return m, nil
}
