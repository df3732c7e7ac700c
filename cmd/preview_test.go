package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/lepinkainen/readtube/internal/preview"
	"github.com/lepinkainen/readtube/internal/search"
	"github.com/lepinkainen/readtube/internal/tui"
)

func TestPreviewCommandPrintsURL(t *testing.T) {
	resetCmdState(t)
	out := captureOutput(t)

	orig := takeSnapshot
	takeSnapshot = func(context.Context, preview.SnapshotOptions) error {
		t.Fatal("snapshot must not run without --snapshot")
		return nil
	}
	t.Cleanup(func() { takeSnapshot = orig })

	assert.NoError(t, runCLI(t, "preview", "abc 123"))
	assert.Equal(t, "https://books.google.com/books?id=abc+123&lpg=PP1&pg=PP1&output=embed\n", out.String())
}

func TestPreviewCommandSnapshot(t *testing.T) {
	env := resetCmdState(t)
	out := captureOutput(t)

	var got preview.SnapshotOptions
	orig := takeSnapshot
	takeSnapshot = func(_ context.Context, opts preview.SnapshotOptions) error {
		got = opts
		return nil
	}
	t.Cleanup(func() { takeSnapshot = orig })

	target := env.Path("shot.png")
	assert.NoError(t, runCLI(t, "preview", "abc", "--snapshot", target, "--width", "800", "--timeout", "5s"))

	assert.Equal(t, "https://books.google.com/books?id=abc&lpg=PP1&pg=PP1&output=embed", got.URL)
	assert.Equal(t, target, got.OutputPath)
	assert.Equal(t, 800, got.Width)
	assert.Equal(t, 1366, got.Height)
	assert.True(t, got.Headless)
	assert.Equal(t, 5*time.Second, got.Timeout)
	assert.Contains(t, out.String(), "Snapshot saved to "+target)
}

func TestPreviewCommandSnapshotFailure(t *testing.T) {
	env := resetCmdState(t)
	captureOutput(t)

	orig := takeSnapshot
	takeSnapshot = func(context.Context, preview.SnapshotOptions) error {
		return errors.New("chrome not found")
	}
	t.Cleanup(func() { takeSnapshot = orig })

	err := runCLI(t, "preview", "abc", "--snapshot", env.Path("shot.jpg"), "--headful")
	assert.EqualError(t, err, "chrome not found")
}

func TestBrowseCommandWiresControllers(t *testing.T) {
	env := resetCmdState(t)
	newCatalogServer(t)

	var deps tui.Deps
	orig := runBrowser
	runBrowser = func(_ context.Context, d tui.Deps) error {
		deps = d
		return nil
	}
	t.Cleanup(func() { runBrowser = orig })

	assert.NoError(t, runCLI(t, "browse", "-g", "poetry"))

	assert.NotZero(t, deps.Search)
	assert.NotZero(t, deps.Feed)
	assert.NotZero(t, deps.Bookmarks)
	assert.Equal(t, "Poetry", deps.Search.State().Genre)
	assert.Equal(t, search.StatusIdle, deps.Search.State().Status)
	assert.True(t, env.FileExists("readtube.log"))
}

func TestBrowseCommandPropagatesError(t *testing.T) {
	resetCmdState(t)

	orig := runBrowser
	runBrowser = func(context.Context, tui.Deps) error {
		return errors.New("no tty")
	}
	t.Cleanup(func() { runBrowser = orig })

	assert.EqualError(t, runCLI(t, "browse"), "no tty")
}
