package rules

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/conneroisu/siteforge/internal/bundle"
	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/filters"
	"github.com/conneroisu/siteforge/internal/fsutil"
	"github.com/conneroisu/siteforge/internal/logging"
	"github.com/conneroisu/siteforge/internal/posttransform"
	"github.com/conneroisu/siteforge/internal/validation"
)

// Builder accumulates declarations for one configuration load.
type Builder struct {
	guard  *Guard
	logger logging.Logger

	copies         []CopyRule
	omitted        []CopyRule
	bundles        []bundle.Spec
	bundleIDs      map[string]struct{}
	filters        []filters.Entry
	watch          map[string]struct{}
	postTransforms []posttransform.Rule
	built          bool
}

// NewBuilder creates a builder. The guard decides optional copy rules; a nil
// logger discards output.
func NewBuilder(guard *Guard, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{
		guard:     guard,
		logger:    logger.WithComponent("rules"),
		bundleIDs: make(map[string]struct{}),
		watch:     make(map[string]struct{}),
	}
}

// AddCopy declares a copy rule. An optional rule whose source is absent is
// recorded as omitted and is not an error.
func (b *Builder) AddCopy(rule CopyRule) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	src, err := cleanPath("copy source", rule.Source)
	if err != nil {
		return err
	}
	dst, err := cleanPath("copy destination", rule.Destination)
	if err != nil {
		return err
	}
	rule.Source, rule.Destination = src, dst

	if rule.Optional && !b.guard.Admit(rule.Source) {
		b.logger.Debug(context.Background(), "Optional source absent, rule omitted",
			"source", rule.Source, "destination", rule.Destination)
		b.omitted = append(b.omitted, rule)
		return nil
	}

	b.copies = append(b.copies, rule)
	return nil
}

// AddOptionalCopy declares a copy rule that is skipped when source is absent.
func (b *Builder) AddOptionalCopy(source, destination string) error {
	return b.AddCopy(CopyRule{Source: source, Destination: destination, Optional: true})
}

// AddBundle declares a bundle. Bundle ids are unique; a second declaration
// with the same id is a configuration error.
func (b *Builder) AddBundle(spec bundle.Spec) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	if strings.TrimSpace(spec.ID) == "" {
		return siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule, "bundle id cannot be empty")
	}
	if _, dup := b.bundleIDs[spec.ID]; dup {
		return siteerrors.NewConfigError(siteerrors.ErrCodeDuplicateBundle,
			fmt.Sprintf("bundle id %q declared twice", spec.ID))
	}

	out, err := cleanPath(fmt.Sprintf("bundle %q output", spec.ID), spec.Output)
	if err != nil {
		return err
	}
	if len(spec.Sources) == 0 {
		return siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule,
			fmt.Sprintf("bundle %q has no sources", spec.ID))
	}

	c := spec.Clone()
	c.Output = out
	for i, src := range c.Sources {
		if c.Sources[i], err = cleanPath(fmt.Sprintf("bundle %q source", spec.ID), src); err != nil {
			return err
		}
	}
	for _, t := range c.Transforms {
		if t.Name == "" || t.Fn == nil {
			return siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule,
				fmt.Sprintf("bundle %q has an incomplete transform %q", spec.ID, t.Name))
		}
	}

	b.bundleIDs[c.ID] = struct{}{}
	b.bundles = append(b.bundles, c)
	return nil
}

// AddFilter declares a template filter. Duplicates are resolved by the
// filter registry when the rule set is turned into one.
func (b *Builder) AddFilter(name string, fn filters.Func) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if name == "" || fn == nil {
		return siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule,
			fmt.Sprintf("filter %q needs a name and a function", name))
	}
	b.filters = append(b.filters, filters.Entry{Name: name, Fn: fn})
	return nil
}

// AddWatchTarget declares a directory whose changes trigger a rebuild.
// Adding the same directory twice is a no-op.
func (b *Builder) AddWatchTarget(dir string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	clean, err := cleanPath("watch target", dir)
	if err != nil {
		return err
	}
	b.watch[clean] = struct{}{}
	return nil
}

// AddPostTransform declares a rewrite applied to matching rendered outputs.
func (b *Builder) AddPostTransform(rule posttransform.Rule) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if rule.AppliesTo == nil || rule.Rewrite == nil {
		return siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule,
			fmt.Sprintf("post-transform %q needs a path predicate and a rewrite", rule.Name))
	}
	b.postTransforms = append(b.postTransforms, rule)
	return nil
}

// Build freezes the declarations. The builder rejects further calls.
func (b *Builder) Build() *RuleSet {
	b.built = true
	rs := &RuleSet{
		copies:         append([]CopyRule(nil), b.copies...),
		omitted:        append([]CopyRule(nil), b.omitted...),
		bundles:        make([]bundle.Spec, len(b.bundles)),
		filters:        append([]filters.Entry(nil), b.filters...),
		watch:          sortedKeys(b.watch),
		postTransforms: append([]posttransform.Rule(nil), b.postTransforms...),
	}
	for i, spec := range b.bundles {
		rs.bundles[i] = spec.Clone()
	}
	return rs
}

func (b *Builder) checkOpen() error {
	if b.built {
		return siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule, "rule set already built")
	}
	return nil
}

func cleanPath(field, p string) (string, error) {
	clean, err := validation.CleanRelativePath(p)
	if err == nil {
		return clean, nil
	}

	code := siteerrors.ErrCodeInvalidRule
	slashed := fsutil.ToSlash(p)
	switch {
	case path.IsAbs(slashed) || (len(slashed) >= 2 && slashed[1] == ':'):
		code = siteerrors.ErrCodeAbsolutePath
	case strings.TrimSpace(p) != "":
		code = siteerrors.ErrCodePathTraversal
	}
	return "", siteerrors.NewConfigError(code, fmt.Sprintf("invalid %s: %v", field, err)).WithPath(p)
}
