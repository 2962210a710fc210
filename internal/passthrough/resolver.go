// Package passthrough expands copy rules into concrete source/destination
// pairs and copies them byte for byte.
package passthrough

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/fsutil"
	"github.com/conneroisu/siteforge/internal/logging"
	"github.com/conneroisu/siteforge/internal/rules"
)

// Pair is one resolved copy. Source is relative to the project root and
// Destination to the output root.
type Pair struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
}

// Resolver expands copy rules against a filesystem.
type Resolver struct {
	fs     afero.Fs
	logger logging.Logger
}

// NewResolver creates a resolver over the project filesystem.
func NewResolver(fs afero.Fs, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Resolver{fs: fs, logger: logger.WithComponent("passthrough")}
}

// Resolve expands every rule and returns the pairs sorted by destination.
// It fails before returning anything when a required source is absent or
// two different sources claim the same destination.
func (r *Resolver) Resolve(copyRules []rules.CopyRule) ([]Pair, error) {
	claims := NewClaims()
	var pairs []Pair

	for _, rule := range copyRules {
		expanded, err := r.expand(rule)
		if err != nil {
			return nil, err
		}
		for _, p := range expanded {
			fresh, err := claims.Claim(p.Destination, p.Source)
			if err != nil {
				return nil, err
			}
			if fresh {
				pairs = append(pairs, p)
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Destination < pairs[j].Destination
	})

	r.logger.Debug(context.Background(), "Copy rules resolved", "rules", len(copyRules), "pairs", len(pairs))
	return pairs, nil
}

func (r *Resolver) expand(rule rules.CopyRule) ([]Pair, error) {
	if fsutil.HasMeta(rule.Source) {
		return r.expandSelector(rule)
	}

	info, err := r.fs.Stat(rule.Source)
	if err != nil {
		if os.IsNotExist(err) {
			return r.absent(rule, nil)
		}
		return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, rule.Source)
	}

	if !info.IsDir() {
		return []Pair{{Source: rule.Source, Destination: rule.Destination}}, nil
	}

	files, err := fsutil.Files(r.fs, rule.Source)
	if err != nil {
		return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, rule.Source)
	}
	pairs := make([]Pair, 0, len(files))
	for _, f := range files {
		pairs = append(pairs, Pair{
			Source:      f,
			Destination: path.Join(rule.Destination, fsutil.Rel(rule.Source, f)),
		})
	}
	return pairs, nil
}

func (r *Resolver) expandSelector(rule rules.CopyRule) ([]Pair, error) {
	matches, err := fsutil.Glob(r.fs, rule.Source)
	if err != nil {
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule, err.Error()).WithPath(rule.Source)
	}
	if len(matches) == 0 {
		return r.absent(rule, fmt.Errorf("selector matched no files"))
	}

	prefix := fsutil.StaticPrefix(rule.Source)
	pairs := make([]Pair, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, Pair{
			Source:      m,
			Destination: path.Join(rule.Destination, fsutil.Rel(prefix, m)),
		})
	}
	return pairs, nil
}

// absent handles a source that vanished. Optional rules were admitted by the
// guard at configuration time; if the file disappeared since, the rule still
// stays quiet.
func (r *Resolver) absent(rule rules.CopyRule, cause error) ([]Pair, error) {
	if rule.Optional {
		r.logger.Debug(context.Background(), "Optional source absent at build time", "source", rule.Source)
		return nil, nil
	}
	return nil, siteerrors.NewMissingSourceError(rule.Source, cause)
}
