package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/siteforge/internal/bundle"
	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/filters"
)

const sampleYAML = `
input: site
output: public
copy:
  - {source: site/css, destination: assets/css}
  - {source: site/favicon.ico, destination: favicon.ico, optional: true}
  - {source: "site/images/**.png", destination: assets/images}
bundles:
  - id: css
    output: assets/css/bundle.css
    sources: [site/css/reset.css, "site/css/components/*.css"]
    transforms: [csso]
    fallback: skip-unavailable
transforms:
  csso: {command: csso}
watch: [site/css]
post_transforms:
  - {applies_to: "**.html", rewrite: relative-stylesheets}
filters:
  strict: true
build:
  concurrency: 3
optional_static: [robots.txt]
`

func readYAML(t *testing.T, content string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(content)))
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.Input)
	assert.Equal(t, "_site", cfg.Output)
	assert.Equal(t, "_includes", cfg.Includes)
	assert.Equal(t, "_data", cfg.Data)
	assert.Equal(t, []string{"src/css", "src/js"}, cfg.Watch)
	assert.Equal(t, DefaultStaticFiles, cfg.OptionalStatic)
	assert.Greater(t, cfg.Build.Concurrency, 0)
	assert.Equal(t, 256, cfg.Filters.CacheSize)

	require.Len(t, cfg.Copy, 4)
	assert.Equal(t, CopyConfig{Source: "src/images", Destination: "assets/images", Optional: true}, cfg.Copy[1])

	require.Len(t, cfg.Bundles, 2)
	assert.Equal(t, "css", cfg.Bundles[0].ID)
	assert.Equal(t, []string{"csso"}, cfg.Bundles[0].Transforms)
	assert.Equal(t, "skip-unavailable", cfg.Bundles[0].Fallback)
	assert.Equal(t, []string{"terser"}, cfg.Bundles[1].Transforms)
	assert.Contains(t, cfg.Transforms, "csso")
	assert.Contains(t, cfg.Transforms, "terser")
}

func TestDefaultIsValid(t *testing.T) {
	assert.NotPanics(t, func() { _ = Default() })
}

func TestLoadFromYAML(t *testing.T) {
	cfg, err := LoadFrom(readYAML(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "site", cfg.Input)
	assert.Equal(t, "public", cfg.Output)
	assert.Len(t, cfg.Copy, 3)
	assert.True(t, cfg.Copy[1].Optional)
	assert.Equal(t, []string{"robots.txt"}, cfg.OptionalStatic)
	require.Len(t, cfg.Bundles, 1)
	assert.Equal(t, []string{"site/css/reset.css", "site/css/components/*.css"}, cfg.Bundles[0].Sources)
	assert.Equal(t, TransformConfig{Command: "csso"}, cfg.Transforms["csso"])
	assert.Equal(t, []string{"site/css"}, cfg.Watch)
	assert.Equal(t, []PostTransformConfig{{AppliesTo: "**.html", Rewrite: "relative-stylesheets"}}, cfg.PostTransforms)
	assert.True(t, cfg.Filters.Strict)
	assert.Equal(t, 3, cfg.Build.Concurrency)
}

func TestLoadFromFileWithEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".siteforge.yml")
	require.NoError(t, os.WriteFile(file, []byte(sampleYAML), 0o644))

	t.Setenv("SITEFORGE_OUTPUT", "dist")
	t.Setenv("SITEFORGE_BUILD_CONCURRENCY", "7")

	v := viper.New()
	v.SetConfigFile(file)
	v.SetEnvPrefix("SITEFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "dist", cfg.Output)
	assert.Equal(t, 7, cfg.Build.Concurrency)
	assert.Equal(t, "site", cfg.Input)
}

func TestLoadUsesGlobalViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("output", "out")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.Output)
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		code string
	}{
		{
			name: "absolute copy destination",
			yaml: "copy: [{source: src/a.png, destination: /a.png}]",
			code: siteerrors.ErrCodeInvalidRule,
		},
		{
			name: "duplicate bundle id",
			yaml: `
bundles:
  - {id: css, output: a.css, sources: [a.css]}
  - {id: css, output: b.css, sources: [b.css]}`,
			code: siteerrors.ErrCodeDuplicateBundle,
		},
		{
			name: "unknown transform",
			yaml: "bundles: [{id: js, output: a.js, sources: [a.js], transforms: [uglify]}]",
			code: siteerrors.ErrCodeUnknownTransform,
		},
		{
			name: "unknown rewrite",
			yaml: `post_transforms: [{applies_to: "**.html", rewrite: minify-html}]`,
			code: siteerrors.ErrCodeUnknownRewrite,
		},
		{
			name: "output equals input",
			yaml: "input: src\noutput: ./src",
			code: siteerrors.ErrCodeInvalidRule,
		},
		{
			name: "shell syntax in transform",
			yaml: "transforms: {csso: {command: 'csso; rm -rf /'}}",
			code: siteerrors.ErrCodeInvalidRule,
		},
		{
			name: "bad fallback",
			yaml: "bundles: [{id: js, output: a.js, sources: [a.js], fallback: retry}]",
			code: siteerrors.ErrCodeInvalidRule,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFrom(readYAML(t, tc.yaml))
			require.Error(t, err)
			assert.True(t, siteerrors.IsConfigurationError(err), "got %v", err)
			assert.ErrorIs(t, err, &siteerrors.SiteError{Type: siteerrors.ErrorTypeConfig, Code: tc.code})

			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestValidateConfigWithDetails(t *testing.T) {
	cfg := Default()
	cfg.Watch = nil
	cfg.Copy = append(cfg.Copy, CopyConfig{Source: "../secrets", Destination: "s"})
	cfg.OptionalStatic = append(cfg.OptionalStatic, "nested/icon.png")

	result := ValidateConfigWithDetails(cfg)
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
	assert.True(t, result.HasWarnings())
	assert.Contains(t, result.String(), "copy[4].source")
	assert.Contains(t, result.String(), "optional_static")
}

func TestCompileDefaultsAgainstProjectTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, f := range []string{
		"src/css/site.css",
		"src/images/logo.png",
		"src/favicon.ico",
		"src/site.webmanifest",
	} {
		require.NoError(t, afero.WriteFile(fs, f, []byte("x"), 0o644))
	}

	rs, err := Default().Compile(CompileOptions{
		FS:      fs,
		Filters: filters.Builtins(filters.BuiltinOptions{}),
	})
	require.NoError(t, err)

	var dests []string
	for _, r := range rs.CopyRules() {
		dests = append(dests, r.Destination)
	}
	assert.Equal(t, []string{"assets/css", "assets/images", "favicon.ico", "site.webmanifest"}, dests)
	assert.Len(t, rs.Omitted(), 2+len(DefaultStaticFiles)-2)

	// The js bundle has no sources in this tree and is optional.
	bundles := rs.Bundles()
	require.Len(t, bundles, 1)
	assert.Equal(t, "css", bundles[0].ID)
	assert.Equal(t, bundle.FallbackSkipUnavailable, bundles[0].Fallback)
	assert.Equal(t, []string{"csso"}, bundles[0].TransformNames())

	assert.Equal(t, []string{"src/css", "src/js"}, rs.WatchTargets())
	assert.NotEmpty(t, rs.Filters())
}

func TestCompileFromYAML(t *testing.T) {
	cfg, err := LoadFrom(readYAML(t, sampleYAML))
	require.NoError(t, err)

	rs, err := cfg.Compile(CompileOptions{FS: afero.NewMemMapFs()})
	require.NoError(t, err)

	// Required rules survive compilation; the resolver checks them at build time.
	assert.Len(t, rs.CopyRules(), 2)
	assert.Len(t, rs.Omitted(), 2)
	require.Len(t, rs.Bundles(), 1)
	assert.Len(t, rs.PostTransforms(), 1)
}

func TestTransformRegistry(t *testing.T) {
	cfg := Default()
	registry, err := cfg.TransformRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"csso", "identity", "terser"}, registry.Names())
}
