// Package pages renders the site's HTML templates with html/template, using
// the filter registry as the template function map and running the
// post-transform rules over each result before it is written.
package pages

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/filters"
	"github.com/conneroisu/siteforge/internal/fsutil"
	"github.com/conneroisu/siteforge/internal/logging"
	"github.com/conneroisu/siteforge/internal/posttransform"
)

// Page is one template to render.
type Page struct {
	// Source is the template path relative to the project root.
	Source string `json:"source" yaml:"source"`
	// Path is the template path relative to the input directory.
	Path string `json:"path" yaml:"path"`
	// Output is the rendered path relative to the output root.
	Output string `json:"output" yaml:"output"`
	// URL is the root-relative URL the page is served at.
	URL string `json:"url" yaml:"url"`
}

// Context is what a template sees as its dot.
type Context struct {
	Page      Page
	Data      map[string]any
	BuildTime time.Time
}

// Options configures a Renderer.
type Options struct {
	Input    string
	Output   string
	Includes string
	Data     string

	Filters        *filters.Registry
	PostTransforms []posttransform.Rule
	// Exclude reports project-relative sources that are not templates,
	// typically files already claimed by a copy rule.
	Exclude func(source string) bool
	Logger  logging.Logger
	Now     func() time.Time
}

// Renderer renders and writes pages.
type Renderer struct {
	fs   afero.Fs
	opts Options

	logger logging.Logger
}

// NewRenderer creates a renderer over the project filesystem.
func NewRenderer(fs afero.Fs, opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Filters == nil {
		opts.Filters = filters.NewRegistry()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{fs: fs, opts: opts, logger: logger.WithComponent("pages")}
}

// Pages lists every *.html template under the input directory, skipping the
// includes and data directories and anything Exclude rejects. The result is
// sorted by source path.
func (r *Renderer) Pages() ([]Page, error) {
	input := path.Clean(r.opts.Input)
	if _, err := r.fs.Stat(input); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, input)
	}

	files, err := fsutil.Files(r.fs, input)
	if err != nil {
		return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, input)
	}

	var pages []Page
	for _, src := range files {
		if path.Ext(src) != ".html" || r.skipped(src) {
			continue
		}
		rel := fsutil.Rel(input, src)
		pages = append(pages, Page{
			Source: src,
			Path:   rel,
			Output: rel,
			URL:    pageURL(rel),
		})
	}
	return pages, nil
}

func (r *Renderer) skipped(src string) bool {
	for _, dir := range []string{r.opts.Includes, r.opts.Data} {
		if dir == "" {
			continue
		}
		prefix := path.Join(r.opts.Input, dir) + "/"
		if strings.HasPrefix(src, prefix) {
			return true
		}
	}
	return r.opts.Exclude != nil && r.opts.Exclude(src)
}

func pageURL(rel string) string {
	if path.Base(rel) == "index.html" {
		dir := path.Dir(rel)
		if dir == "." {
			return "/"
		}
		return "/" + dir + "/"
	}
	return "/" + rel
}

// LoadData reads every YAML or JSON file in the data directory, keyed by
// file stem.
func (r *Renderer) LoadData() (map[string]any, error) {
	data := make(map[string]any)
	if r.opts.Data == "" {
		return data, nil
	}

	dir := path.Join(r.opts.Input, r.opts.Data)
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, dir)
	}

	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml" && ext != ".json") {
			continue
		}
		file := path.Join(dir, entry.Name())
		raw, err := afero.ReadFile(r.fs, file)
		if err != nil {
			return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, file)
		}
		var value any
		if err := yaml.Unmarshal(raw, &value); err != nil {
			return nil, siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule,
				fmt.Sprintf("cannot parse data file: %v", err)).WithPath(file)
		}
		data[strings.TrimSuffix(entry.Name(), ext)] = value
	}
	return data, nil
}

// Includes returns the shared templates keyed by their path relative to the
// includes directory.
func (r *Renderer) Includes() (map[string]string, error) {
	includes := make(map[string]string)
	if r.opts.Includes == "" {
		return includes, nil
	}

	dir := path.Join(r.opts.Input, r.opts.Includes)
	if _, err := r.fs.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return includes, nil
		}
		return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, dir)
	}

	files, err := fsutil.Files(r.fs, dir)
	if err != nil {
		return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, dir)
	}
	for _, f := range files {
		if path.Ext(f) != ".html" {
			continue
		}
		raw, err := afero.ReadFile(r.fs, f)
		if err != nil {
			return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, f)
		}
		includes[fsutil.Rel(dir, f)] = string(raw)
	}
	return includes, nil
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
