//go:build property

package passthrough

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"

	"github.com/conneroisu/siteforge/internal/rules"
)

// TestCopyRoundTripProperties validates that resolve then copy reproduces
// every source byte for byte.
func TestCopyRoundTripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("copied bytes equal source bytes", prop.ForAll(
		func(contents [][]byte, nested bool) bool {
			fs := afero.NewMemMapFs()
			sources := make(map[string][]byte, len(contents))
			for i, c := range contents {
				name := fmt.Sprintf("src/assets/f%03d.bin", i)
				if nested && i%2 == 1 {
					name = fmt.Sprintf("src/assets/sub/f%03d.bin", i)
				}
				if err := afero.WriteFile(fs, name, c, 0o644); err != nil {
					return false
				}
				sources[name] = c
			}

			pairs, err := NewResolver(fs, nil).Resolve([]rules.CopyRule{{Source: "src/assets", Destination: "out"}})
			if err != nil || len(pairs) != len(contents) {
				return false
			}
			if err := NewCopier(fs, "_site", 4).Copy(context.Background(), pairs); err != nil {
				return false
			}

			for _, p := range pairs {
				got, err := afero.ReadFile(fs, "_site/"+p.Destination)
				if err != nil || string(got) != string(sources[p.Source]) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.SliceOf(gen.UInt8())),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
