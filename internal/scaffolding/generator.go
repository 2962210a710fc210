// Package scaffolding writes a starter project that builds out of the box
// with the default rules.
package scaffolding

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"text/template"

	"github.com/spf13/afero"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/validation"
)

// Options describes the project to generate.
type Options struct {
	// Dir is the project root on the filesystem, "." for the root itself.
	Dir   string
	Title string
	// Input is the source directory inside Dir.
	Input string
	// Force overwrites files that already exist.
	Force bool
}

// TemplateContext is what starter templates are executed with. Templates use
// [[ ]] delimiters so page templates can keep their own {{ }} actions.
type TemplateContext struct {
	Title string
	Input string
}

// Generator writes starter projects.
type Generator struct {
	fs    afero.Fs
	files map[string]string
}

// NewGenerator creates a generator writing to fs with the builtin starter.
func NewGenerator(fs afero.Fs) *Generator {
	return &Generator{fs: fs, files: starterFiles()}
}

// Files returns the starter file names, relative to the project root, sorted.
// Names may contain [[ .Input ]].
func (g *Generator) Files() []string {
	names := make([]string, 0, len(g.files))
	for name := range g.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate writes every starter file and returns the written paths. Without
// Force it refuses to start when any target exists, so a partial starter is
// never left behind.
func (g *Generator) Generate(opts Options) ([]string, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Input == "" {
		opts.Input = "src"
	}
	if opts.Title == "" {
		opts.Title = "My Site"
	}
	if err := validation.ValidateRelativePath(opts.Input); err != nil {
		return nil, siteerrors.Wrap(err, siteerrors.ErrorTypeConfig, siteerrors.ErrCodeInvalidRule, "invalid input directory").
			WithPath(opts.Input)
	}

	ctx := TemplateContext{Title: opts.Title, Input: opts.Input}

	rendered := make(map[string][]byte, len(g.files))
	for _, name := range g.Files() {
		target, err := execute(name, ctx)
		if err != nil {
			return nil, err
		}
		content, err := execute(g.files[name], ctx)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", target, err)
		}
		rendered[path.Join(opts.Dir, string(target))] = content
	}

	targets := make([]string, 0, len(rendered))
	for target := range rendered {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	if !opts.Force {
		for _, target := range targets {
			exists, err := afero.Exists(g.fs, target)
			if err != nil {
				return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, target)
			}
			if exists {
				return nil, siteerrors.NewConfigError(siteerrors.ErrCodeCollision, "file already exists (use --force to overwrite)").
					WithPath(target)
			}
		}
	}

	for _, target := range targets {
		if err := g.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
			return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeWriteFailed, target)
		}
		if err := afero.WriteFile(g.fs, target, rendered[target], 0o644); err != nil {
			return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeWriteFailed, target)
		}
	}

	return targets, nil
}

func execute(text string, ctx TemplateContext) ([]byte, error) {
	tmpl, err := template.New("starter").Delims("[[", "]]").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}
