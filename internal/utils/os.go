package utils

import (
	"os"
	"strings"
)

// ExecutableName returns the name the binary was invoked as, for help text
func ExecutableName() string {
	executable, err := os.Executable()
	if err != nil {
		return "keymode"
	}

	parts := strings.Split(executable, string(os.PathSeparator))

	return parts[len(parts)-1]
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}

// ConfigDir returns the directory for keymode's own files
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "keymode"
	}
	return ExpandHome("~/.config/keymode")
}
