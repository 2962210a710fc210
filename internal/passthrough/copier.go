package passthrough

import (
	"context"
	"path"
	"runtime"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/fsutil"
)

// Copier performs resolved copies into an output root.
type Copier struct {
	fs          afero.Fs
	outputDir   string
	concurrency int

	// OnCopied is called after each successful copy. It may be called from
	// several goroutines at once.
	OnCopied func(Pair)
}

// NewCopier creates a copier writing under outputDir on fs. A concurrency
// below one uses the number of CPUs.
func NewCopier(fs afero.Fs, outputDir string, concurrency int) *Copier {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	return &Copier{fs: fs, outputDir: outputDir, concurrency: concurrency}
}

// Copy copies every pair byte for byte. Each file lands through a temp file
// and rename. The first error cancels the remaining copies.
func (c *Copier) Copy(ctx context.Context, pairs []Pair) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, p := range pairs {
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst := path.Join(c.outputDir, p.Destination)
			if err := fsutil.CopyFileAtomic(c.fs, p.Source, dst); err != nil {
				return siteerrors.WrapIO(err, siteerrors.ErrCodeWriteFailed, dst)
			}
			if c.OnCopied != nil {
				c.OnCopied(p)
			}
			return nil
		})
	}

	return g.Wait()
}
