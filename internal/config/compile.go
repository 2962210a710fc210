package config

import (
	"context"
	"path"
	"sort"

	"github.com/spf13/afero"

	"github.com/conneroisu/siteforge/internal/bundle"
	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/filters"
	"github.com/conneroisu/siteforge/internal/logging"
	"github.com/conneroisu/siteforge/internal/posttransform"
	"github.com/conneroisu/siteforge/internal/rules"
)

// CompileOptions carries what a rule set needs beyond the configuration.
type CompileOptions struct {
	// FS is rooted at the project directory. Optional rules are probed on it.
	FS      afero.Fs
	Filters []filters.Entry
	// Transforms are registered after the configured command transforms and
	// replace any of the same name.
	Transforms []bundle.Transform
	Logger     logging.Logger
}

// TransformRegistry returns the builtin transforms plus every configured
// command transform.
func (c *Config) TransformRegistry() (*bundle.TransformRegistry, error) {
	registry := bundle.NewTransformRegistry()
	for _, name := range sortedTransformNames(c.Transforms) {
		t := c.Transforms[name]
		if err := registry.RegisterCommand(name, t.Command, t.Args...); err != nil {
			return nil, siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule, err.Error()).
				WithPath("transforms." + name)
		}
	}
	return registry, nil
}

// Compile turns the configuration into a frozen rule set. Optional copy rules
// and optional bundles are decided here, once.
func (c *Config) Compile(opts CompileOptions) (*rules.RuleSet, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	guard := rules.NewGuard(opts.FS)
	b := rules.NewBuilder(guard, logger)

	for _, cp := range c.Copy {
		if err := b.AddCopy(rules.CopyRule{Source: cp.Source, Destination: cp.Destination, Optional: cp.Optional}); err != nil {
			return nil, err
		}
	}
	for _, name := range c.OptionalStatic {
		if err := b.AddOptionalCopy(path.Join(c.Input, name), name); err != nil {
			return nil, err
		}
	}

	transforms, err := c.TransformRegistry()
	if err != nil {
		return nil, err
	}
	for _, t := range opts.Transforms {
		transforms.Register(t)
	}
	for _, bc := range c.Bundles {
		if bc.Optional && !anyAdmitted(guard, bc.Sources) {
			logger.Debug(context.Background(), "Optional bundle has no sources, omitted", "bundle", bc.ID)
			continue
		}
		spec, err := bundleSpec(bc, transforms)
		if err != nil {
			return nil, err
		}
		if err := b.AddBundle(spec); err != nil {
			return nil, err
		}
	}

	for _, entry := range opts.Filters {
		if err := b.AddFilter(entry.Name, entry.Fn); err != nil {
			return nil, err
		}
	}

	for _, dir := range c.Watch {
		if err := b.AddWatchTarget(dir); err != nil {
			return nil, err
		}
	}

	for _, pt := range c.PostTransforms {
		rule, err := posttransform.NewRule(pt.AppliesTo, pt.Rewrite)
		if err != nil {
			return nil, siteerrors.NewConfigError(siteerrors.ErrCodeUnknownRewrite, err.Error())
		}
		if err := b.AddPostTransform(rule); err != nil {
			return nil, err
		}
	}

	return b.Build(), nil
}

func bundleSpec(bc BundleConfig, transforms *bundle.TransformRegistry) (bundle.Spec, error) {
	policy, err := bundle.ParseFallbackPolicy(bc.Fallback)
	if err != nil {
		return bundle.Spec{}, siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule, err.Error())
	}
	chain, err := transforms.Resolve(bc.Transforms)
	if err != nil {
		return bundle.Spec{}, siteerrors.NewConfigError(siteerrors.ErrCodeUnknownTransform, err.Error())
	}
	return bundle.Spec{
		ID:         bc.ID,
		Output:     bc.Output,
		Sources:    bc.Sources,
		Transforms: chain,
		Fallback:   policy,
	}, nil
}

func anyAdmitted(guard *rules.Guard, sources []string) bool {
	for _, src := range sources {
		if guard.Admit(src) {
			return true
		}
	}
	return false
}

func sortedTransformNames(transforms map[string]TransformConfig) []string {
	names := make([]string, 0, len(transforms))
	for name := range transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
