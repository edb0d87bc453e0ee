package wlogging

import (
	"os"
	"path/filepath"
)

// EnvRootDir names the environment variable consulted when no
// RootDirectory is configured
const EnvRootDir = "WLOGGING_ROOT_DIR"

// executable is replaced in tests
var executable = os.Executable

// resolveRoot picks the project root: the explicit value, then
// WLOGGING_ROOT_DIR, then the directory holding the virtual environment the
// running binary was installed into
func resolveRoot(explicit, venvMarker string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}
	if env := os.Getenv(EnvRootDir); env != "" {
		return filepath.Abs(env)
	}
	if exe, err := executable(); err == nil {
		if root, ok := venvRoot(exe, venvMarker); ok {
			return root, nil
		}
	}
	return "", &ConfigurationError{
		Field:  "RootDirectory",
		Reason: "not set, " + EnvRootDir + " is empty and the executable is not inside a " + venvMarker + " directory",
	}
}

// venvRoot returns the parent of the nearest enclosing directory named marker
func venvRoot(path, marker string) (string, bool) {
	dir := filepath.Dir(filepath.Clean(path))
	for {
		if filepath.Base(dir) == marker {
			return filepath.Dir(dir), true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
