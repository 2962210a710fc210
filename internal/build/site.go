package build

import (
	"context"
	"errors"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/siteforge/internal/bundle"
	"github.com/conneroisu/siteforge/internal/config"
	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/filters"
	"github.com/conneroisu/siteforge/internal/fsutil"
	"github.com/conneroisu/siteforge/internal/logging"
	"github.com/conneroisu/siteforge/internal/pages"
	"github.com/conneroisu/siteforge/internal/passthrough"
	"github.com/conneroisu/siteforge/internal/rules"
)

// Result summarizes a finished build.
type Result struct {
	Copied   []passthrough.Pair
	Bundles  []string
	Pages    []string
	Warnings []siteerrors.Warning
	Duration time.Duration
}

// Site builds one project. Builds on the same Site are serialized; separate
// processes writing the same output directory must be serialized by the
// caller.
type Site struct {
	fs       afero.Fs
	cfg      *config.Config
	rules    *rules.RuleSet
	filters  *filters.Registry
	pipeline *bundle.Pipeline
	hasher   *filters.AssetHasher
	metrics  *Metrics
	warnings *siteerrors.WarningCollector
	logger   logging.Logger
	mutex    sync.Mutex
}

// Option configures a Site.
type Option func(*siteOptions)

type siteOptions struct {
	logger     logging.Logger
	metrics    *Metrics
	now        func() time.Time
	filters    []filters.Entry
	transforms []bundle.Transform
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *siteOptions) { o.logger = logger }
}

// WithMetrics records build activity on m.
func WithMetrics(m *Metrics) Option {
	return func(o *siteOptions) { o.metrics = m }
}

// WithClock replaces time.Now for the cacheBust and year filters.
func WithClock(now func() time.Time) Option {
	return func(o *siteOptions) { o.now = now }
}

// WithFilters registers extra filters after the builtins.
func WithFilters(entries ...filters.Entry) Option {
	return func(o *siteOptions) { o.filters = append(o.filters, entries...) }
}

// WithTransforms makes in-process transforms available to bundles by name.
func WithTransforms(transforms ...bundle.Transform) Option {
	return func(o *siteOptions) { o.transforms = append(o.transforms, transforms...) }
}

// New loads the rule set for cfg against the project filesystem. All
// configuration errors surface here, before anything is written.
func New(fs afero.Fs, cfg *config.Config, opts ...Option) (*Site, error) {
	o := siteOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}

	hasher, err := filters.NewAssetHasher(fs, cfg.Output, cfg.Filters.CacheSize)
	if err != nil {
		return nil, err
	}

	entries := filters.Builtins(filters.BuiltinOptions{Now: o.now, Hasher: hasher})
	entries = append(entries, o.filters...)

	rs, err := cfg.Compile(config.CompileOptions{
		FS:         fs,
		Filters:    entries,
		Transforms: o.transforms,
		Logger:     o.logger,
	})
	if err != nil {
		return nil, err
	}

	registry, err := rs.NewFilterRegistry(
		filters.WithStrict(cfg.Filters.Strict),
		filters.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	warnings := siteerrors.NewWarningCollector()
	pipeline := bundle.NewPipeline(o.logger, warnings)
	metrics := o.metrics
	pipeline.OnFallback = func(ev bundle.FallbackEvent) {
		metrics.TransformFallbacks.WithLabelValues(ev.BundleID, ev.Transform).Inc()
	}
	pipeline.OnStage = func(bundleID, transform string, took time.Duration) {
		metrics.TransformDuration.WithLabelValues(bundleID, transform).Observe(took.Seconds())
	}

	return &Site{
		fs:       fs,
		cfg:      cfg,
		rules:    rs,
		filters:  registry,
		pipeline: pipeline,
		hasher:   hasher,
		metrics:  metrics,
		warnings: warnings,
		logger:   o.logger.WithComponent("build"),
	}, nil
}

// Rules returns the site's rule set.
func (s *Site) Rules() *rules.RuleSet {
	return s.rules
}

// Metrics returns the metrics the site records to.
func (s *Site) Metrics() *Metrics {
	return s.metrics
}

func (s *Site) renderer() *pages.Renderer {
	return pages.NewRenderer(s.fs, pages.Options{
		Input:          s.cfg.Input,
		Output:         s.cfg.Output,
		Includes:       s.cfg.Includes,
		Data:           s.cfg.Data,
		Filters:        s.filters,
		PostTransforms: s.rules.PostTransforms(),
		Logger:         s.logger,
	})
}

// Plan resolves everything the build will write and checks that no two
// sources claim one destination. It writes nothing.
func (s *Site) Plan() (*Plan, error) {
	pairs, err := passthrough.NewResolver(s.fs, s.logger).Resolve(s.rules.CopyRules())
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Copies:  pairs,
		Omitted: s.rules.Omitted(),
		Watch:   s.rules.WatchTargets(),
		Filters: s.filters.Names(),
	}

	for _, spec := range s.rules.Bundles() {
		files, err := ExpandSources(s.fs, spec.Sources)
		if err != nil {
			var se *siteerrors.SiteError
			if errors.As(err, &se) {
				se.WithContext("bundle", spec.ID)
			}
			return nil, err
		}
		plan.Bundles = append(plan.Bundles, BundlePlan{
			ID:         spec.ID,
			Output:     spec.Output,
			Sources:    files,
			Transforms: spec.TransformNames(),
			Fallback:   spec.Fallback.String(),
			spec:       spec,
		})
	}

	copied := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		copied[p.Source] = true
	}
	r := s.renderer()
	plan.Pages, err = pagesExcluding(r, copied)
	if err != nil {
		return nil, err
	}

	if err := plan.claim(); err != nil {
		return nil, err
	}
	return plan, nil
}

func pagesExcluding(r *pages.Renderer, copied map[string]bool) ([]pages.Page, error) {
	all, err := r.Pages()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if !copied[p.Source] {
			out = append(out, p)
		}
	}
	return out, nil
}

// Build performs a full build. Configuration errors, missing sources and
// destination collisions are reported before the output tree is touched.
func (s *Site) Build(ctx context.Context) (*Result, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	start := time.Now()
	s.metrics.BuildsTotal.Inc()
	s.warnings.Clear()

	result, err := s.build(ctx)

	took := time.Since(start)
	s.metrics.BuildDuration.Observe(took.Seconds())
	s.metrics.LastBuildEnd.SetToCurrentTime()

	if err != nil {
		s.metrics.BuildsFailed.WithLabelValues(errorType(err)).Inc()
		s.logger.Error(ctx, err, "Build failed", "duration", took)
		return nil, err
	}

	result.Duration = took
	result.Warnings = s.warnings.Warnings()
	s.logger.Info(ctx, "Build completed",
		"copied", len(result.Copied),
		"bundles", len(result.Bundles),
		"pages", len(result.Pages),
		"warnings", len(result.Warnings),
		"duration", took)
	return result, nil
}

func (s *Site) build(ctx context.Context) (*Result, error) {
	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}

	if s.cfg.Build.Clean {
		if err := s.fs.RemoveAll(s.cfg.Output); err != nil {
			return nil, siteerrors.WrapIO(err, siteerrors.ErrCodeWriteFailed, s.cfg.Output)
		}
	}

	result := &Result{Copied: plan.Copies}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Build.Concurrency + 1)

	copier := passthrough.NewCopier(s.fs, s.cfg.Output, s.cfg.Build.Concurrency)
	copier.OnCopied = func(passthrough.Pair) { s.metrics.FilesCopied.Inc() }
	g.Go(func() error {
		return copier.Copy(gctx, plan.Copies)
	})

	for _, b := range plan.Bundles {
		b := b
		g.Go(func() error {
			if err := s.writeBundle(gctx, b); err != nil {
				return err
			}
			mu.Lock()
			result.Bundles = append(result.Bundles, b.Output)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	err = s.renderer().RenderAll(ctx, plan.Pages, s.cfg.Build.Concurrency, func(p pages.Page) {
		s.metrics.PagesRendered.Inc()
		mu.Lock()
		result.Pages = append(result.Pages, p.Output)
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(result.Bundles)
	sort.Strings(result.Pages)
	return result, nil
}

func (s *Site) writeBundle(ctx context.Context, b BundlePlan) error {
	sources := make([][]byte, 0, len(b.Sources))
	for _, src := range b.Sources {
		content, err := afero.ReadFile(s.fs, src)
		if err != nil {
			return siteerrors.WrapIO(err, siteerrors.ErrCodeReadFailed, src)
		}
		sources = append(sources, content)
	}

	out, err := s.pipeline.BuildBundle(ctx, b.spec, sources)
	if err != nil {
		return err
	}

	dst := path.Join(s.cfg.Output, b.Output)
	if err := fsutil.WriteFileAtomic(s.fs, dst, out); err != nil {
		return siteerrors.WrapIO(err, siteerrors.ErrCodeWriteFailed, dst)
	}
	s.metrics.BundlesBuilt.WithLabelValues(b.ID).Inc()
	s.logger.Debug(ctx, "Bundle written", "bundle", b.ID, "output", dst, "bytes", len(out))
	return nil
}

func errorType(err error) string {
	var se *siteerrors.SiteError
	if errors.As(err, &se) {
		return string(se.Type)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "unknown"
}
