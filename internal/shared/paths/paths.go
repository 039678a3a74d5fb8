// Package paths provides the well-known names and path helpers shared by
// the launcher components.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Well-known names
const (
	// LocalConfigFileName is the encrypted local cache file in the OS temp dir
	LocalConfigFileName = "safe-launcher-local.config"

	// GlobalDirectoryName is the configuration directory in the networked tree
	GlobalDirectoryName = "safe-launcher-global"

	// GlobalConfigFileName is the shared config file inside GlobalDirectoryName
	GlobalConfigFileName = "safe-launcher-global.config"

	// rootDirSuffix is appended to every per-application root directory name
	rootDirSuffix = "Root-Dir"
)

// LocalCachePath returns the absolute path of the local cache file
func LocalCachePath(fileName string) string {
	if fileName == "" {
		fileName = LocalConfigFileName
	}
	return filepath.Join(os.TempDir(), fileName)
}

// Tokenise splits a slash separated path into its non-empty segments
func Tokenise(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// AppName derives the application name from the last segment of its path
func AppName(absolutePath string) (string, error) {
	tokens := Tokenise(absolutePath)
	if len(tokens) == 0 {
		return "", fmt.Errorf("no application name in path %q", absolutePath)
	}
	return tokens[len(tokens)-1], nil
}

// RootDirName returns the candidate root directory name for an app at index
func RootDirName(appName string, index int) string {
	return fmt.Sprintf("%s-%d-%s", appName, index, rootDirSuffix)
}
