package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret returns the value of the named environment variable,
// honoring the container-secret convention: when name+"_FILE" is set the
// secret is read from that file instead (trailing whitespace trimmed).
// An unset secret resolves to the empty string; only an unreadable file
// is an error.
func ResolveSecret(name string) (string, error) {
	if path := os.Getenv(name + "_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read secret %s from %s: %w", name, path, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return os.Getenv(name), nil
}
