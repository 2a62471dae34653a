package common

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Build metadata, overridden via -ldflags "-X .../common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

func GetVersion() string   { return Version }
func GetBuild() string     { return Build }
func GetGitCommit() string { return GitCommit }

// VersionInfo is the payload of the version endpoint.
func VersionInfo() map[string]string {
	return map[string]string{
		"version": Version,
		"build":   Build,
		"commit":  GitCommit,
	}
}

// LoadVersionFromFile reads "key: value" lines from a .version file next to
// the binary. Values only fill fields still at their ldflags defaults.
func LoadVersionFromFile() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	f, err := os.Open(filepath.Join(filepath.Dir(exe), ".version"))
	if err != nil {
		return
	}
	defer f.Close()

	defaults := map[string]*string{
		"version": &Version,
		"build":   &Build,
		"commit":  &GitCommit,
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		target, known := defaults[strings.TrimSpace(key)]
		if !known || (*target != "dev" && *target != "unknown") {
			continue
		}
		*target = strings.TrimSpace(val)
	}
}
