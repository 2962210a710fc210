// Package rules holds the declarative description of one site build: copy
// rules, bundles, filters, watch targets and post-transforms.
//
// A Builder accumulates declarations while configuration loads and validates
// each one as it arrives. Build returns a RuleSet, which never changes again;
// every accessor hands out copies.
package rules

import (
	"sort"

	"github.com/conneroisu/siteforge/internal/bundle"
	"github.com/conneroisu/siteforge/internal/filters"
	"github.com/conneroisu/siteforge/internal/posttransform"
)

// CopyRule copies Source verbatim to Destination under the output root.
// Source may be a file, a directory or a selector.
type CopyRule struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	Optional    bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// RuleSet is the frozen result of a Builder.
type RuleSet struct {
	copies         []CopyRule
	omitted        []CopyRule
	bundles        []bundle.Spec
	filters        []filters.Entry
	watch          []string
	postTransforms []posttransform.Rule
}

// CopyRules returns the admitted copy rules in declaration order.
func (rs *RuleSet) CopyRules() []CopyRule {
	return append([]CopyRule(nil), rs.copies...)
}

// Omitted returns optional copy rules whose source was absent when they were
// declared.
func (rs *RuleSet) Omitted() []CopyRule {
	return append([]CopyRule(nil), rs.omitted...)
}

// Bundles returns the bundle declarations in declaration order.
func (rs *RuleSet) Bundles() []bundle.Spec {
	out := make([]bundle.Spec, len(rs.bundles))
	for i, b := range rs.bundles {
		out[i] = b.Clone()
	}
	return out
}

// Bundle returns the bundle with the given id.
func (rs *RuleSet) Bundle(id string) (bundle.Spec, bool) {
	for _, b := range rs.bundles {
		if b.ID == id {
			return b.Clone(), true
		}
	}
	return bundle.Spec{}, false
}

// Filters returns filter registrations in declaration order, duplicates
// included.
func (rs *RuleSet) Filters() []filters.Entry {
	return append([]filters.Entry(nil), rs.filters...)
}

// WatchTargets returns the watched directories, sorted.
func (rs *RuleSet) WatchTargets() []string {
	return append([]string(nil), rs.watch...)
}

// PostTransforms returns the post-transform rules in declaration order.
func (rs *RuleSet) PostTransforms() []posttransform.Rule {
	return append([]posttransform.Rule(nil), rs.postTransforms...)
}

// NewFilterRegistry registers every filter in declaration order, so later
// registrations of a name win (or fail, in strict mode).
func (rs *RuleSet) NewFilterRegistry(opts ...filters.Option) (*filters.Registry, error) {
	registry := filters.NewRegistry(opts...)
	for _, entry := range rs.filters {
		if err := registry.Register(entry.Name, entry.Fn); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
