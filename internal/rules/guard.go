package rules

import (
	"github.com/conneroisu/siteforge/internal/fsutil"
	"github.com/spf13/afero"
)

// Guard decides whether an optional source is present. It probes the
// filesystem when a rule is added, never during a build.
type Guard struct {
	fs afero.Fs
}

// NewGuard creates a guard over the project filesystem.
func NewGuard(fs afero.Fs) *Guard {
	return &Guard{fs: fs}
}

// Admit reports whether candidate exists and is readable. A selector is
// admitted when it matches at least one file.
func (g *Guard) Admit(candidate string) bool {
	if g == nil || g.fs == nil {
		return false
	}
	if fsutil.HasMeta(candidate) {
		matches, err := fsutil.Glob(g.fs, candidate)
		return err == nil && len(matches) > 0
	}
	return fsutil.Exists(g.fs, candidate)
}
