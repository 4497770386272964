package blog

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type countingInvalidator struct {
	n atomic.Int32
}

func (c *countingInvalidator) Invalidate() { c.n.Add(1) }

func TestWatcherInvalidatesOnMarkdownChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	inv := &countingInvalidator{}
	w, err := NewWatcher([]string{dir}, inv, zap.NewNop())
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "post.md"), []byte("x"), 0o644))
	}
	assert.Eventually(t, func() bool { return inv.n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWatcherIgnoresTempFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	inv := &countingInvalidator{}
	w, err := NewWatcher([]string{dir}, inv, zap.NewNop())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, inv.n.Load())

	cancel()
	require.NoError(t, w.Close())
}

func TestWatcherCloseWithoutStart(t *testing.T) {
	w, err := NewWatcher([]string{t.TempDir()}, &countingInvalidator{}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/c/posts/ko/a.md", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/c/data/categories.json", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/c/posts/ko/a.md", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/c/drafts/.tmp-42", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/c/drafts/img.png", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		if got := relevant(tt.ev); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}
