package pages

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"path"
	"regexp"
	"runtime"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/fsutil"
	"github.com/conneroisu/siteforge/internal/posttransform"
)

// html/template reports a function missing from the FuncMap at parse time.
var undefinedFunction = regexp.MustCompile(`function "([^"]+)" not defined`)

// Render renders one page and applies the post-transform rules. It does not
// write anything.
func (r *Renderer) Render(ctx context.Context, page Page, includes map[string]string, data map[string]any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := afero.ReadFile(r.fs, page.Source)
	if err != nil {
		return nil, siteerrors.WrapPage(siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, page.Source), page.Source)
	}

	tmpl := template.New(page.Path).Funcs(r.opts.Filters.FuncMap())
	for _, name := range sortedNames(includes) {
		if _, err := tmpl.New(name).Parse(includes[name]); err != nil {
			return nil, templateError(err, page.Source, path.Join(r.opts.Input, r.opts.Includes, name))
		}
	}
	if _, err := tmpl.Parse(string(raw)); err != nil {
		return nil, templateError(err, page.Source, page.Source)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, Context{Page: page, Data: data, BuildTime: r.opts.Now()})
	if err != nil {
		return nil, templateError(err, page.Source, page.Source)
	}

	return posttransform.Apply(r.opts.PostTransforms, page.Output, buf.Bytes()), nil
}

// templateError maps template failures to site errors that name the page.
// A filter missing from the registry becomes an unknown filter error.
func templateError(err error, page, file string) error {
	var se *siteerrors.SiteError
	if errors.As(err, &se) {
		return siteerrors.WrapPage(err, page)
	}

	if m := undefinedFunction.FindStringSubmatch(err.Error()); m != nil {
		return siteerrors.NewUnknownFilterError(m[1]).WithPage(page).WithPath(file)
	}

	return siteerrors.Wrap(err, siteerrors.ErrorTypeIO, siteerrors.ErrCodeRenderFailed, "template failed").
		WithPath(file).
		WithPage(page)
}

// RenderAll renders and writes every page, bounded by concurrency. The
// filter registry is frozen first; no filter may be registered once
// rendering has begun. OnWritten, when set, is called for each page written.
func (r *Renderer) RenderAll(ctx context.Context, pages []Page, concurrency int, onWritten func(Page)) error {
	r.opts.Filters.Freeze()

	includes, err := r.Includes()
	if err != nil {
		return err
	}
	data, err := r.LoadData()
	if err != nil {
		return err
	}

	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, page := range pages {
		page := page
		g.Go(func() error {
			content, err := r.Render(ctx, page, includes, data)
			if err != nil {
				return err
			}
			dst := path.Join(r.opts.Output, page.Output)
			if err := fsutil.WriteFileAtomic(r.fs, dst, content); err != nil {
				return siteerrors.WrapPage(siteerrors.WrapIO(err, siteerrors.ErrCodeWriteFailed, dst), page.Source)
			}
			r.logger.Debug(ctx, "Page written", "page", page.Source, "output", dst)
			if onWritten != nil {
				onWritten(page)
			}
			return nil
		})
	}

	return g.Wait()
}
