// Package posttransform applies narrow text rewrites to rendered output
// before it is written.
//
// Rewrites work on raw text through tightly anchored patterns rather than an
// HTML parser, and every rule must be idempotent: a rebuild may run it again
// over output it already rewrote.
package posttransform

import (
	"fmt"
	"path"
	"sort"

	"github.com/conneroisu/siteforge/internal/fsutil"
)

// Matcher decides whether a rule applies to an output path.
type Matcher func(outputPath string) bool

// RewriteFunc rewrites the content of the output at outputPath.
type RewriteFunc func(outputPath string, content []byte) []byte

// Rule is one post-transform.
type Rule struct {
	Name      string
	AppliesTo Matcher
	Rewrite   RewriteFunc
}

// Apply runs every rule whose AppliesTo matches outputPath, in order.
func Apply(rules []Rule, outputPath string, content []byte) []byte {
	for _, r := range rules {
		if r.AppliesTo == nil || r.Rewrite == nil || !r.AppliesTo(outputPath) {
			continue
		}
		content = r.Rewrite(outputPath, content)
	}
	return content
}

// GlobMatcher compiles a glob over slash-separated output paths with
// fsutil.CompileGlob.
func GlobMatcher(pattern string) (Matcher, error) {
	g, err := fsutil.CompileGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid applies_to pattern %q: %w", pattern, err)
	}
	return func(outputPath string) bool {
		return g.Match(outputPath)
	}, nil
}

// HTMLOutputs matches every .html output.
func HTMLOutputs(outputPath string) bool {
	ext := path.Ext(outputPath)
	return ext == ".html" || ext == ".htm"
}

var builtins = map[string]RewriteFunc{
	"relative-stylesheets": RelativeStylesheets,
	"relative-scripts":     RelativeScripts,
}

// Lookup returns a builtin rewrite by name.
func Lookup(name string) (RewriteFunc, bool) {
	fn, ok := builtins[name]
	return fn, ok
}

// Names lists the builtin rewrites.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRule builds a rule from a glob and a builtin rewrite name.
func NewRule(appliesTo, rewrite string) (Rule, error) {
	match, err := GlobMatcher(appliesTo)
	if err != nil {
		return Rule{}, err
	}
	fn, ok := Lookup(rewrite)
	if !ok {
		return Rule{}, fmt.Errorf("unknown rewrite %q (known: %v)", rewrite, Names())
	}
	return Rule{Name: rewrite, AppliesTo: match, Rewrite: fn}, nil
}
