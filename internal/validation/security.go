// Package validation provides the checks that keep rule paths inside their
// roots and transform commands free of shell metacharacters.
package validation

import (
	"fmt"
	"path"
	"strings"
)

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	// exec.Command never goes through a shell, but configs are shared and
	// reviewed as text; reject anything that reads like shell syntax.
	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateCommand validates a transform command name. When allowedCommands is
// non-empty the command must be on it.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if len(allowedCommands) > 0 && !allowedCommands[command] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// ValidateRelativePath checks that p is a non-empty, slash-separated path
// that stays inside whatever root it is joined to.
func ValidateRelativePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("path cannot be empty")
	}

	slashed := strings.ReplaceAll(p, "\\", "/")
	if path.IsAbs(slashed) || hasDriveLetter(slashed) {
		return fmt.Errorf("absolute path not allowed: %s", p)
	}

	clean := path.Clean(slashed)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path traversal detected: %s", p)
	}

	return nil
}

// CleanRelativePath validates p and returns its cleaned slash form.
func CleanRelativePath(p string) (string, error) {
	if err := ValidateRelativePath(p); err != nil {
		return "", err
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/")), nil
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}
