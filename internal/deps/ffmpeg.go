package deps

import (
	"os/exec"
	"strings"
)

// ResolveBinary returns the path a configured tool name resolves to. An empty
// configured value falls back to fallback. Unresolvable names are returned
// unchanged so callers can report them.
func ResolveBinary(configured, fallback string) string {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = fallback
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}
