package pathutil

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Expand resolves environment variables and a leading "~" in config paths.
// The result is cleaned; an empty or blank path stays empty.
func Expand(path string) (string, error) {
	expanded := os.ExpandEnv(strings.TrimSpace(path))
	if expanded == "" {
		return "", nil
	}

	rest, tilde := strings.CutPrefix(expanded, "~")
	if tilde && (rest == "" || strings.HasPrefix(rest, "/")) {
		home, err := homeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		expanded = home + rest
	}

	return filepath.Clean(expanded), nil
}

// homeDir tries os.UserHomeDir, the user database and $HOME in turn and
// rejects values that are themselves unexpanded.
func homeDir() (string, error) {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, home)
	}
	if current, err := user.Current(); err == nil {
		candidates = append(candidates, current.HomeDir)
	}
	candidates = append(candidates, os.Getenv("HOME"))

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && !strings.HasPrefix(candidate, "~") {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no usable home directory (HOME=%q)", os.Getenv("HOME"))
}

// Resolve expands path and, when it is still relative, anchors it at baseDir.
// An empty baseDir leaves relative paths relative to the working directory.
func Resolve(path, baseDir string) (string, error) {
	expanded, err := Expand(path)
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return "", fmt.Errorf("path is empty")
	}
	if filepath.IsAbs(expanded) || strings.TrimSpace(baseDir) == "" {
		return expanded, nil
	}

	base, err := Expand(baseDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, expanded), nil
}
