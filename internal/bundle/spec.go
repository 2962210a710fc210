// Package bundle concatenates source fragments into one artifact and threads
// the result through an ordered chain of transforms.
//
// Transforms run strictly in declared order within a bundle; each stage sees
// the full output of the previous one. Independent bundles may be built
// concurrently by the caller. What happens when a stage fails is decided by
// the bundle's FallbackPolicy, never guessed at runtime.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrTransformUnavailable is returned by a transform that cannot run in this
// environment at all, e.g. its executable is not installed. It is the only
// failure the skip-unavailable policy tolerates.
var ErrTransformUnavailable = errors.New("transform unavailable")

// TransformFunc rewrites a bundle's content. It must not assume anything
// about where the content came from.
type TransformFunc func(ctx context.Context, content []byte) ([]byte, error)

// Transform is a named stage in a bundle's chain.
type Transform struct {
	Name string
	Fn   TransformFunc
}

// Apply runs the transform.
func (t Transform) Apply(ctx context.Context, content []byte) ([]byte, error) {
	if t.Fn == nil {
		return nil, fmt.Errorf("transform %q has no function", t.Name)
	}
	return t.Fn(ctx, content)
}

// FallbackPolicy decides what a failing transform does to its bundle.
type FallbackPolicy int

const (
	// FallbackAbort propagates any transform error, aborting the bundle and
	// the build.
	FallbackAbort FallbackPolicy = iota
	// FallbackSkipUnavailable skips a transform that reports
	// ErrTransformUnavailable and keeps its input. Any other error aborts.
	FallbackSkipUnavailable
	// FallbackPassthrough keeps the failing stage's input on any error and
	// records a warning.
	FallbackPassthrough
)

// String returns the configuration spelling of the policy.
func (p FallbackPolicy) String() string {
	switch p {
	case FallbackAbort:
		return "abort"
	case FallbackSkipUnavailable:
		return "skip-unavailable"
	case FallbackPassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// ParseFallbackPolicy parses the configuration spelling. An empty string is
// FallbackAbort.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return FallbackAbort, nil
	case "skip-unavailable":
		return FallbackSkipUnavailable, nil
	case "passthrough":
		return FallbackPassthrough, nil
	default:
		return FallbackAbort, fmt.Errorf("unknown fallback policy %q (want abort, skip-unavailable or passthrough)", s)
	}
}

// Spec declares one bundle.
type Spec struct {
	// ID is unique within a rule set.
	ID string
	// Output is the destination path relative to the output root.
	Output string
	// Sources are paths or globs relative to the project root, in
	// concatenation order.
	Sources    []string
	Transforms []Transform
	Fallback   FallbackPolicy
}

// TransformNames lists the transform chain in order.
func (s Spec) TransformNames() []string {
	names := make([]string, len(s.Transforms))
	for i, t := range s.Transforms {
		names[i] = t.Name
	}
	return names
}

// Clone returns a copy that shares no slices with s.
func (s Spec) Clone() Spec {
	c := s
	c.Sources = append([]string(nil), s.Sources...)
	c.Transforms = append([]Transform(nil), s.Transforms...)
	return c
}
