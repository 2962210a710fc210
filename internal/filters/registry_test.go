package filters

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"testing"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v any) Func {
	return func(...any) (any, error) { return v, nil }
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("answer", constant(42)))

	fn, err := r.Lookup("answer")
	require.NoError(t, err)
	got, err := fn()
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	assert.Equal(t, []string{"answer"}, r.Names())
}

func TestLookupUnknownFilter(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("slugify")
	require.Error(t, err)
	assert.True(t, siteerrors.IsUnknownFilter(err))
	assert.Contains(t, err.Error(), `unknown filter "slugify"`)

	_, err = r.Invoke("slugify", "Hello")
	assert.True(t, siteerrors.IsUnknownFilter(err))
}

func TestDuplicateRegistrationLastWinsWithWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelWarn, Output: &buf})
	r := NewRegistry(WithLogger(logger))

	require.NoError(t, r.Register("year", constant(1999)))
	require.NoError(t, r.Register("year", constant(2024)))

	got, err := r.Invoke("year")
	require.NoError(t, err)
	assert.Equal(t, 2024, got)
	assert.Contains(t, buf.String(), "last registration wins")
	assert.Contains(t, buf.String(), "filter=year")
}

func TestStrictRejectsDuplicates(t *testing.T) {
	r := NewRegistry(WithStrict(true))
	require.NoError(t, r.Register("year", constant(1999)))

	err := r.Register("year", constant(2024))
	require.Error(t, err)
	assert.True(t, siteerrors.IsConfigurationError(err))

	got, _ := r.Invoke("year")
	assert.Equal(t, 1999, got, "strict mode must keep the first registration")
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	assert.True(t, siteerrors.IsConfigurationError(r.Register("", constant(1))))
	assert.True(t, siteerrors.IsConfigurationError(r.Register("nil", nil)))
}

func TestFreezeForbidsRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", constant(1)))
	r.Freeze()
	assert.True(t, r.Frozen())

	err := r.Register("b", constant(2))
	require.Error(t, err)
	assert.True(t, siteerrors.IsConfigurationError(err))

	_, err = r.Invoke("a")
	assert.NoError(t, err)
}

func TestConcurrentLookupsAfterFreeze(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 10; i++ {
		require.NoError(t, r.Register(fmt.Sprintf("f%d", i), constant(i)))
	}
	r.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := r.Invoke(fmt.Sprintf("f%d", i%10))
			assert.NoError(t, err)
			assert.Equal(t, i%10, got)
		}(i)
	}
	wg.Wait()
}

func TestFuncMapInTemplate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("shout", func(args ...any) (any, error) {
		return strings.ToUpper(toString(args[0])) + "!", nil
	}))

	tmpl, err := template.New("page").Funcs(r.FuncMap()).Parse(`<h1>{{ shout "hi" }}</h1>`)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, tmpl.Execute(&out, nil))
	assert.Equal(t, "<h1>HI!</h1>", out.String())
}

func TestFuncMapPropagatesFilterErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("boom", func(...any) (any, error) {
		return nil, fmt.Errorf("kaboom")
	}))

	tmpl, err := template.New("page").Funcs(r.FuncMap()).Parse(`{{ boom }}`)
	require.NoError(t, err)

	err = tmpl.Execute(&bytes.Buffer{}, nil)
	assert.ErrorContains(t, err, "kaboom")
}

func TestWithLoggerNilKeepsDefault(t *testing.T) {
	r := NewRegistry(WithLogger(nil))
	assert.NotPanics(t, func() {
		_ = r.Register("a", constant(1))
		_ = r.Register("a", constant(2))
		r.logger.Info(context.Background(), "still works")
	})
}
