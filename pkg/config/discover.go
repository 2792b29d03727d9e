package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MapExt is the file suffix of saved maps.
const MapExt = ".tmap.json"

// configNames are tried in order inside the .tmap directory.
var configNames = []string{"config.yaml", "config.yml", "config.toml"}

// ConfigPath returns the config file inside root/.tmap. When none exists
// it returns the YAML path that Save would create.
func ConfigPath(root string) string {
	dir := filepath.Join(root, DirName)
	for _, name := range configNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, configNames[0])
}

// Discover finds the project root above dir and loads its config. Outside
// any project it returns the defaults and an empty root.
func Discover(dir string) (Config, string, error) {
	root, ok := FindRoot(dir)
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(ConfigPath(root))
	return cfg, root, err
}

// DetectRoot walks up from the working directory looking for .tmap/.
func DetectRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return FindRoot(dir)
}

// FindRoot walks up from dir looking for a .tmap/ directory.
func FindRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		tmapDir := filepath.Join(dir, DirName)
		if info, err := os.Stat(tmapDir); err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// ScanMaps walks root up to maxDepth levels deep and returns saved map
// files, sorted. Hidden directories are skipped.
func ScanMaps(root string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if currentDepth > maxDepth {
				return filepath.SkipDir
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), MapExt) {
			results = append(results, path)
		}
		return nil
	})

	sort.Strings(results)
	return results
}

// Init creates root/.tmap with cfg as its config (unless one exists) and
// adds the directory to .gitignore. It returns the config path.
func Init(root string, cfg Config) (string, error) {
	if err := os.MkdirAll(filepath.Join(root, DirName), 0o755); err != nil {
		return "", err
	}
	path := ConfigPath(root)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Validate(); err != nil {
			return "", err
		}
		if err := Save(path, cfg); err != nil {
			return "", err
		}
	}
	return path, EnsureIgnored(root)
}
