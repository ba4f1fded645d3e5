package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// stateDirName is the per-user directory holding agent logs.
const stateDirName = ".dwhsync"

// DefaultLogDir returns the per-user log directory, ~/.dwhsync/logs.
// Without a resolvable home it lands under the system temp directory.
func DefaultLogDir() string {
	base, err := os.UserHomeDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, stateDirName, "logs")
}

// DefaultLogPath returns the agent's default log file.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "agent.log")
}

// FindLogFile resolves the file the logs command should read: the
// explicit path when given, the default agent log otherwise.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if !readable(explicit) {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return explicit, nil
	}

	path := DefaultLogPath()
	if !readable(path) {
		return "", fmt.Errorf("no log file found. The agent may not have run with file logging yet.\nExpected at: %s", path)
	}
	return path, nil
}

func readable(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
