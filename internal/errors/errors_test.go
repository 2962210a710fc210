package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteErrorError(t *testing.T) {
	testCases := []struct {
		name     string
		err      *SiteError
		contains []string
	}{
		{
			name:     "config error with code",
			err:      NewConfigError(ErrCodeDuplicateBundle, `bundle id "css" declared twice`),
			contains: []string{"[ERR_DUPLICATE_BUNDLE]", `bundle id "css" declared twice`},
		},
		{
			name:     "missing source carries path",
			err:      NewMissingSourceError("src/a.png", nil),
			contains: []string{"src/a.png:", "required source does not exist"},
		},
		{
			name:     "unknown filter carries page",
			err:      NewUnknownFilterError("slugify").WithPage("blog/index.html"),
			contains: []string{"page:blog/index.html", `unknown filter "slugify"`},
		},
		{
			name:     "transform error carries cause",
			err:      NewTransformError("css", "csso", fmt.Errorf("exit status 1")),
			contains: []string{`bundle "css"`, `transform "csso"`, "exit status 1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.err.Error()
			for _, want := range tc.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestSiteErrorIsMatchesByType(t *testing.T) {
	err := NewConfigError(ErrCodeCollision, "two sources for one destination")
	wrapped := fmt.Errorf("resolving rules: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrConfiguration))
	assert.True(t, IsConfigurationError(wrapped))
	assert.False(t, IsMissingSource(wrapped))
	assert.False(t, IsTransformFailure(wrapped))
	assert.False(t, IsUnknownFilter(wrapped))

	// A target with a code only matches that code.
	assert.True(t, stderrors.Is(err, &SiteError{Type: ErrorTypeConfig, Code: ErrCodeCollision}))
	assert.False(t, stderrors.Is(err, &SiteError{Type: ErrorTypeConfig, Code: ErrCodeDuplicateBundle}))
}

func TestSiteErrorUnwrap(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := NewMissingSourceError("src/x", cause)

	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrapPreservesContext(t *testing.T) {
	inner := NewUnknownFilterError("year").WithPage("index.html").WithPath("_includes/base.html")
	outer := Wrap(inner, ErrorTypeIO, ErrCodeWriteFailed, "page write aborted")

	require.NotNil(t, outer)
	assert.Equal(t, "index.html", outer.Page)
	assert.Equal(t, "_includes/base.html", outer.Path)
	assert.True(t, IsUnknownFilter(outer))

	assert.Nil(t, Wrap(nil, ErrorTypeIO, ErrCodeWriteFailed, "nothing"))
}

func TestWrapPage(t *testing.T) {
	se := NewUnknownFilterError("nope")
	err := WrapPage(se, "about/index.html")

	var got *SiteError
	require.True(t, stderrors.As(err, &got))
	assert.Equal(t, "about/index.html", got.Page)
	assert.Empty(t, se.Page, "original error must not be mutated")

	plain := WrapPage(stderrors.New("boom"), "x.html")
	assert.Contains(t, plain.Error(), "x.html")

	assert.NoError(t, WrapPage(nil, "x.html"))
}

func TestFirstAndCollectErrors(t *testing.T) {
	a := stderrors.New("a")
	b := stderrors.New("b")

	assert.Equal(t, a, FirstError(nil, a, b))
	assert.Nil(t, FirstError(nil, nil))
	assert.Equal(t, []error{a, b}, CollectErrors(nil, a, nil, b))
}

func TestWarningCollector(t *testing.T) {
	collector := NewWarningCollector()
	assert.False(t, collector.HasWarnings())

	collector.Add(Warning{Component: "bundle", Subject: "css", Message: "csso unavailable"})
	collector.Add(Warning{Component: "filters", Subject: "year", Message: "overwritten"})

	assert.True(t, collector.HasWarnings())
	assert.Len(t, collector.Warnings(), 2)
	assert.Len(t, collector.ByComponent("bundle"), 1)
	assert.False(t, collector.Warnings()[0].Timestamp.IsZero())

	collector.Clear()
	assert.False(t, collector.HasWarnings())
}

func TestWarningCollectorConcurrentAdd(t *testing.T) {
	collector := NewWarningCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			collector.Add(Warning{Component: "copy", Subject: fmt.Sprintf("f%d", i)})
		}(i)
	}
	wg.Wait()

	assert.Len(t, collector.Warnings(), 50)
}

type recordingLogger struct {
	errors []string
}

func (r *recordingLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.errors = append(r.errors, msg)
}

func (r *recordingLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {}

func TestErrorHandlerHandle(t *testing.T) {
	logger := &recordingLogger{}
	handler := NewErrorHandler(logger)
	ctx := context.Background()

	handler.Handle(ctx, nil)
	handler.Handle(ctx, NewConfigError(ErrCodeCollision, "collision"))
	handler.Handle(ctx, NewUnknownFilterError("x").WithPage("p.html"))
	handler.Handle(ctx, stderrors.New("plain"))

	assert.Equal(t, []string{
		"Configuration rejected before any write",
		"Render failed",
		"Unhandled error occurred",
	}, logger.errors)
}
