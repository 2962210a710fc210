//go:build property

package bundle

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBundlePipelineProperties validates ordering properties of the pipeline
func TestBundlePipelineProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	ctx := context.Background()
	p := NewPipeline(nil, nil)

	upper := fn("upper", strings.ToUpper)
	suffix := fn("suffix", func(s string) string { return s + "!" })

	// Property: [A, B] equals B(A(concat(sources)))
	properties.Property("pipeline equals composed transforms", prop.ForAll(
		func(sources []string) bool {
			raw := make([][]byte, len(sources))
			for i, s := range sources {
				raw[i] = []byte(s)
			}

			got, err := p.BuildBundle(ctx, Spec{ID: "x", Transforms: []Transform{upper, suffix}}, raw)
			if err != nil {
				return false
			}

			a, _ := upper.Apply(ctx, Concat(raw))
			want, _ := suffix.Apply(ctx, a)
			return string(got) == string(want)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	// Property: truncate-then-wrap differs from wrap-then-truncate once the
	// input is long enough for truncation to bite.
	properties.Property("reordering non-commuting transforms changes output", prop.ForAll(
		func(s string) bool {
			if len(s) <= 4 {
				return true
			}
			raw := [][]byte{[]byte(s)}
			ab, err1 := p.BuildBundle(ctx, Spec{ID: "x", Transforms: []Transform{truncate, wrap}}, raw)
			ba, err2 := p.BuildBundle(ctx, Spec{ID: "x", Transforms: []Transform{wrap, truncate}}, raw)
			return err1 == nil && err2 == nil && string(ab) != string(ba)
		},
		gen.AlphaString(),
	))

	// Property: an empty chain is concatenation
	properties.Property("empty chain is concatenation", prop.ForAll(
		func(sources []string) bool {
			raw := make([][]byte, len(sources))
			for i, s := range sources {
				raw[i] = []byte(s)
			}
			got, err := p.BuildBundle(ctx, Spec{ID: "x"}, raw)
			return err == nil && string(got) == strings.Join(sources, "")
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}
