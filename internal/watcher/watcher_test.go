package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/siteforge/internal/logging"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.eventType.String())
		})
	}
}

func newTestWatcher(t *testing.T, root string, delay time.Duration) *FileWatcher {
	t.Helper()
	fw, err := NewFileWatcher(root, delay, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fw.Stop() })
	return fw
}

func TestAddRecursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "css", "vendor"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "css", "a.css"), []byte("a{}"), 0o644))

	fw := newTestWatcher(t, root, 10*time.Millisecond)

	require.NoError(t, fw.AddRecursive("src/css"))
	require.NoError(t, fw.AddRecursive("src/js"))

	assert.Equal(t, []string{
		filepath.Join(root, "src", "css"),
		filepath.Join(root, "src", "css", "vendor"),
		filepath.Join(root, "src", "js"),
	}, fw.WatchList())
}

func TestAddRecursiveMissingTargetIsSkipped(t *testing.T) {
	fw := newTestWatcher(t, t.TempDir(), 10*time.Millisecond)

	require.NoError(t, fw.AddRecursive("src/missing"))
	assert.Empty(t, fw.WatchList())
}

func TestAddRecursiveRejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	fw := newTestWatcher(t, filepath.Join(root, "project"), 10*time.Millisecond)

	err := fw.AddRecursive("../elsewhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestFileWatcherDeliversDebouncedBatch(t *testing.T) {
	root := t.TempDir()
	cssDir := filepath.Join(root, "src", "css")
	require.NoError(t, os.MkdirAll(cssDir, 0o755))

	fw := newTestWatcher(t, root, 50*time.Millisecond)
	fw.AddFilter(NoTempFilter)

	var (
		mu      sync.Mutex
		batches [][]ChangeEvent
	)
	fw.AddHandler(func(ctx context.Context, events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, events)
		return nil
	})

	require.NoError(t, fw.AddRecursive("src/css"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	target := filepath.Join(cssDir, "site.css")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("body{}"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(cssDir, ".site.css.tmp-123"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	paths := map[string]bool{}
	for _, batch := range batches {
		for _, ev := range batch {
			paths[ev.Path] = true
		}
	}
	assert.True(t, paths[target])
	assert.False(t, paths[filepath.Join(cssDir, ".site.css.tmp-123")])
}

func TestDebouncerDedupesAndSorts(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.start(ctx)

	d.events <- ChangeEvent{Type: EventTypeCreated, Path: "src/js/b.js"}
	d.events <- ChangeEvent{Type: EventTypeCreated, Path: "src/css/a.css"}
	d.events <- ChangeEvent{Type: EventTypeModified, Path: "src/js/b.js"}

	select {
	case events := <-d.output:
		require.Len(t, events, 2)
		assert.Equal(t, "src/css/a.css", events[0].Path)
		assert.Equal(t, "src/js/b.js", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type)
	case <-time.After(time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestNoOutputFilter(t *testing.T) {
	root := t.TempDir()
	filter := NoOutputFilter(filepath.Join(root, "_site"))

	assert.False(t, filter(filepath.Join(root, "_site")))
	assert.False(t, filter(filepath.Join(root, "_site", "assets", "css", "bundle.css")))
	assert.True(t, filter(filepath.Join(root, "_site_backup", "x.css")))
	assert.True(t, filter(filepath.Join(root, "src", "css", "a.css")))
}

func TestNoTempFilter(t *testing.T) {
	tests := map[string]bool{
		"src/css/site.css":          true,
		"src/css/.site.css.tmp-991": false,
		"src/js/app.js~":            false,
		"src/js/.app.js.swp":        false,
	}
	for path, want := range tests {
		assert.Equal(t, want, NoTempFilter(path), path)
	}
}

func TestNoGitFilter(t *testing.T) {
	assert.True(t, NoGitFilter("src/css/a.css"))
	assert.False(t, NoGitFilter(".git/HEAD"))
	assert.False(t, NoGitFilter("/work/site/.git/index"))
	assert.True(t, NoGitFilter("src/.gitkeep"))
}
