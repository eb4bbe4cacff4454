// Package resources bundles the index settings and mapping payloads used by
// the examples. Payloads are opaque JSON text handed unchanged to index
// creation; a file on disk can replace either one.
package resources

import (
	"embed"
	"fmt"
	"os"
)

// Bundled payload names.
const (
	SettingsFile = "settings.json"
	MappingFile  = "mapping.json"
)

//go:embed settings.json mapping.json
var bundled embed.FS

// Payloads holds the settings and mapping text of an index.
type Payloads struct {
	Settings string
	Mapping  string
}

// Bundled returns the named bundled payload.
func Bundled(name string) (string, error) {
	b, err := bundled.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("bundled resource %s: %w", name, err)
	}
	return string(b), nil
}

// Load returns the bundled payloads, replacing each with the content of the
// matching path when that path is not empty.
func Load(settingsPath, mappingPath string) (Payloads, error) {
	settings, err := loadOne(SettingsFile, settingsPath)
	if err != nil {
		return Payloads{}, err
	}
	mapping, err := loadOne(MappingFile, mappingPath)
	if err != nil {
		return Payloads{}, err
	}
	return Payloads{Settings: settings, Mapping: mapping}, nil
}

func loadOne(name, override string) (string, error) {
	if override == "" {
		return Bundled(name)
	}
	b, err := os.ReadFile(override)
	if err != nil {
		return "", fmt.Errorf("read %s override: %w", name, err)
	}
	return string(b), nil
}
