package bundle

import (
	"bytes"
	"context"
	"errors"
	"time"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/logging"
)

// FallbackEvent describes a transform whose failure was tolerated.
type FallbackEvent struct {
	BundleID  string
	Transform string
	Policy    FallbackPolicy
	Err       error
}

// Pipeline builds bundles.
type Pipeline struct {
	logger   logging.Logger
	warnings *siteerrors.WarningCollector
	// OnFallback, when set, is called for every tolerated failure.
	OnFallback func(FallbackEvent)
	// OnStage, when set, is called after every stage that ran.
	OnStage func(bundleID, transform string, took time.Duration)
}

// NewPipeline creates a new bundle pipeline. warnings may be nil.
func NewPipeline(logger logging.Logger, warnings *siteerrors.WarningCollector) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Pipeline{
		logger:   logger.WithComponent("bundle"),
		warnings: warnings,
	}
}

// Concat joins sources in order with no separator.
func Concat(sources [][]byte) []byte {
	n := 0
	for _, s := range sources {
		n += len(s)
	}
	var buf bytes.Buffer
	buf.Grow(n)
	for _, s := range sources {
		buf.Write(s)
	}
	return buf.Bytes()
}

// BuildBundle concatenates sources and applies spec's transforms in order.
// A bundle without transforms is pure concatenation.
func (p *Pipeline) BuildBundle(ctx context.Context, spec Spec, sources [][]byte) ([]byte, error) {
	working := Concat(sources)

	for _, t := range spec.Transforms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		out, err := t.Apply(ctx, working)
		if p.OnStage != nil {
			p.OnStage(spec.ID, t.Name, time.Since(start))
		}
		if err == nil {
			working = out
			continue
		}

		// Cancellation is never a transform's fault.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !tolerated(spec.Fallback, err) {
			return nil, siteerrors.NewTransformError(spec.ID, t.Name, err).WithPath(spec.Output)
		}

		p.logger.Warn(ctx, err, "Transform failed, keeping untransformed content",
			"bundle", spec.ID,
			"transform", t.Name,
			"policy", spec.Fallback.String())
		if p.warnings != nil {
			p.warnings.Add(siteerrors.Warning{
				Component: "bundle",
				Subject:   spec.ID,
				Message:   "transform " + t.Name + " skipped (" + spec.Fallback.String() + ")",
				Cause:     err,
			})
		}
		if p.OnFallback != nil {
			p.OnFallback(FallbackEvent{BundleID: spec.ID, Transform: t.Name, Policy: spec.Fallback, Err: err})
		}
	}

	return working, nil
}

func tolerated(policy FallbackPolicy, err error) bool {
	switch policy {
	case FallbackPassthrough:
		return true
	case FallbackSkipUnavailable:
		return errors.Is(err, ErrTransformUnavailable)
	default:
		return false
	}
}
