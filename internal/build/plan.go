package build

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/conneroisu/siteforge/internal/bundle"
	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/fsutil"
	"github.com/conneroisu/siteforge/internal/pages"
	"github.com/conneroisu/siteforge/internal/passthrough"
	"github.com/conneroisu/siteforge/internal/rules"
)

// BundlePlan is a bundle with its sources expanded to files.
type BundlePlan struct {
	ID         string   `json:"id" yaml:"id"`
	Output     string   `json:"output" yaml:"output"`
	Sources    []string `json:"sources" yaml:"sources"`
	Transforms []string `json:"transforms,omitempty" yaml:"transforms,omitempty"`
	Fallback   string   `json:"fallback" yaml:"fallback"`

	spec bundle.Spec
}

// Plan is everything a build will write, computed without writing.
type Plan struct {
	Copies  []passthrough.Pair `json:"copies" yaml:"copies"`
	Omitted []rules.CopyRule   `json:"omitted,omitempty" yaml:"omitted,omitempty"`
	Bundles []BundlePlan       `json:"bundles" yaml:"bundles"`
	Pages   []pages.Page       `json:"pages" yaml:"pages"`
	Watch   []string           `json:"watch" yaml:"watch"`
	Filters []string           `json:"filters" yaml:"filters"`
}

// ExpandSources expands bundle sources in declared order. A selector expands
// to its matches in lexical order at its position. A source that resolves to
// nothing is a missing required source.
func ExpandSources(fs afero.Fs, sources []string) ([]string, error) {
	var files []string
	for _, src := range sources {
		if fsutil.HasMeta(src) {
			matches, err := fsutil.Glob(fs, src)
			if err != nil {
				return nil, siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule, err.Error()).WithPath(src)
			}
			if len(matches) == 0 {
				return nil, siteerrors.NewMissingSourceError(src, fmt.Errorf("selector matched no files"))
			}
			files = append(files, matches...)
			continue
		}

		info, err := fs.Stat(src)
		if err != nil {
			return nil, siteerrors.NewMissingSourceError(src, err)
		}
		if info.IsDir() {
			return nil, siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule,
				"bundle source is a directory; use a selector such as dir/*.css").WithPath(src)
		}
		files = append(files, src)
	}
	return files, nil
}

func (p *Plan) claim() error {
	claims := passthrough.NewClaims()
	for _, c := range p.Copies {
		if _, err := claims.Claim(c.Destination, c.Source); err != nil {
			return err
		}
	}
	for _, b := range p.Bundles {
		if _, err := claims.Claim(b.Output, "bundle "+b.ID); err != nil {
			return err
		}
	}
	for _, pg := range p.Pages {
		if _, err := claims.Claim(pg.Output, pg.Source); err != nil {
			return err
		}
	}
	return nil
}
