package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/kong"
	"github.com/lepinkainen/readtube/internal/config"
	rterrors "github.com/lepinkainen/readtube/internal/errors"
	"github.com/lepinkainen/readtube/internal/testutil"
	"github.com/spf13/viper"
)

func resetCmdState(t *testing.T) *testutil.TestEnv {
	t.Helper()

	env := testutil.NewTestEnv(t)
	viper.Reset()
	t.Cleanup(viper.Reset)

	v := viper.GetViper()
	config.SetDefaults(v)
	v.Set("storage.dbfile", env.Path("readtube.db"))
	v.Set("cache.dbfile", env.Path("cache.db"))
	v.Set("logfile", env.Path("readtube.log"))
	v.Set("catalog.ratepersecond", 0)
	return env
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("readtube"),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)
	assert.NoError(t, err)

	kctx, err := parser.Parse(args)
	assert.NoError(t, err)
	return cli, kctx
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()

	cli, kctx := parseCLI(t, args...)
	applyGlobalFlags(viper.GetViper(), cli)
	kctx.BindTo(context.Background(), (*context.Context)(nil))
	return kctx.Run()
}

// catalogServer serves pages of numbered books. Every request is counted.
type catalogServer struct {
	hits   atomic.Int32
	status int
	items  func(q string, start, max int) []map[string]any

	mu      sync.Mutex
	queries []string
}

func (cs *catalogServer) Queries() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.queries...)
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()

	cs := &catalogServer{}
	server := testutil.NewIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		q := r.URL.Query().Get("q")
		cs.mu.Lock()
		cs.queries = append(cs.queries, q)
		cs.mu.Unlock()

		if cs.status != 0 {
			w.WriteHeader(cs.status)
			return
		}

		start, _ := strconv.Atoi(r.URL.Query().Get("startIndex"))
		maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))

		var items []map[string]any
		if cs.items != nil {
			items = cs.items(q, start, maxResults)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"totalItems": len(items), "items": items})
	}))

	viper.Set("catalog.baseurl", server.URL)
	return cs
}

func duneItem() map[string]any {
	return map[string]any{
		"id": "dune-1",
		"volumeInfo": map[string]any{
			"title":         "Dune",
			"authors":       []string{"Frank Herbert"},
			"categories":    []string{"Science Fiction"},
			"publishedDate": "1965",
			"averageRating": 4.4,
			"ratingsCount":  120,
		},
		"saleInfo": map[string]any{"saleability": "FREE"},
	}
}

func TestCLIParsesGlobalFlags(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t,
		"--api-key", "secret",
		"--db", "/custom/readtube.db",
		"--no-cache",
		"--debug",
		"search", "dune", "messiah", "-g", "fantasy", "-n", "3")

	assert.Equal(t, "secret", cli.APIKey)
	assert.Equal(t, "/custom/readtube.db", cli.DB)
	assert.True(t, cli.NoCache)
	assert.True(t, cli.Debug)
	assert.Equal(t, []string{"dune", "messiah"}, cli.Search.Query)
	assert.Equal(t, "fantasy", cli.Search.Genre)
	assert.Equal(t, 3, cli.Search.Limit)

	applyGlobalFlags(viper.GetViper(), cli)
	assert.Equal(t, "secret", viper.GetString("catalog.apikey"))
	assert.Equal(t, "/custom/readtube.db", viper.GetString("storage.dbfile"))
	assert.False(t, viper.GetBool("cache.enabled"))
}

func TestApplyGlobalFlagsKeepsConfigWhenUnset(t *testing.T) {
	resetCmdState(t)
	viper.Set("catalog.apikey", "from-config")

	applyGlobalFlags(viper.GetViper(), &CLI{})

	assert.Equal(t, "from-config", viper.GetString("catalog.apikey"))
	assert.True(t, viper.GetBool("cache.enabled"))
}

func TestInitConfigWithoutFileUsesDefaults(t *testing.T) {
	env := testutil.NewTestEnv(t)
	t.Chdir(env.RootDir())

	v := viper.New()
	assert.NoError(t, initConfig(v, ""))

	cfg, err := config.Load(v)
	assert.NoError(t, err)
	assert.Equal(t, "fiction", cfg.Feed.Subject)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.False(t, env.FileExists("config.yaml"), "config file must not be written")
}

func TestInitConfigReadsFileAndEnvironment(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFile("readtube.yaml", []byte("feed:\n  subject: poetry\n  pagesize: 10\n"))
	env.SetEnv("GOOGLE_BOOKS_API_KEY", "env-key")

	v := viper.New()
	assert.NoError(t, initConfig(v, env.Path("readtube.yaml")))

	cfg, err := config.Load(v)
	assert.NoError(t, err)
	assert.Equal(t, "poetry", cfg.Feed.Subject)
	assert.Equal(t, 10, cfg.Feed.PageSize)
	assert.Equal(t, "env-key", cfg.Catalog.APIKey)
}

func TestInitConfigMissingExplicitFile(t *testing.T) {
	env := testutil.NewTestEnv(t)

	err := initConfig(viper.New(), env.Path("missing.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestSearchCommandPrintsResultsAndRecordsHistory(t *testing.T) {
	resetCmdState(t)
	cs := newCatalogServer(t)
	cs.items = func(string, int, int) []map[string]any {
		return []map[string]any{duneItem()}
	}
	out := captureOutput(t)

	assert.NoError(t, runCLI(t, "search", "dune", "-g", "science fiction"))

	assert.Equal(t, []string{"dune subject:Science Fiction"}, cs.Queries())
	assert.Contains(t, out.String(), "1. Dune")
	assert.Contains(t, out.String(), "Frank Herbert | Science Fiction | 1965")
	assert.Contains(t, out.String(), "(4.4) - 120 ratings")
	assert.Contains(t, out.String(), "[free]")
	assert.Contains(t, out.String(), "id: dune-1")

	out.Reset()
	assert.NoError(t, runCLI(t, "history", "list"))
	assert.Equal(t, "dune\n", out.String())
}

func TestSearchCommandEmptyResults(t *testing.T) {
	resetCmdState(t)
	newCatalogServer(t)
	out := captureOutput(t)

	assert.NoError(t, runCLI(t, "search", "zzzz"))
	assert.Equal(t, "No books found.\n", out.String())
}

func TestSearchCommandUnknownGenre(t *testing.T) {
	resetCmdState(t)
	cs := newCatalogServer(t)

	err := runCLI(t, "search", "dune", "-g", "cookbooks")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown genre")
	assert.Equal(t, int32(0), cs.hits.Load())
}

func TestSearchCommandFailure(t *testing.T) {
	resetCmdState(t)
	cs := newCatalogServer(t)
	cs.status = http.StatusInternalServerError

	err := runCLI(t, "search", "dune")
	assert.Error(t, err)
	assert.True(t, rterrors.IsFetchFailed(err))
}

func TestSearchCommandUsesResponseCache(t *testing.T) {
	resetCmdState(t)
	cs := newCatalogServer(t)
	cs.items = func(string, int, int) []map[string]any {
		return []map[string]any{duneItem()}
	}
	captureOutput(t)

	assert.NoError(t, runCLI(t, "search", "dune"))
	assert.NoError(t, runCLI(t, "search", "dune"))
	assert.Equal(t, int32(1), cs.hits.Load())

	assert.NoError(t, runCLI(t, "--no-cache", "search", "dune"))
	assert.Equal(t, int32(2), cs.hits.Load())
}

func TestCacheInvalidateAndPrune(t *testing.T) {
	resetCmdState(t)
	cs := newCatalogServer(t)
	cs.items = func(string, int, int) []map[string]any {
		return []map[string]any{duneItem()}
	}
	out := captureOutput(t)

	assert.NoError(t, runCLI(t, "search", "dune"))

	out.Reset()
	assert.NoError(t, runCLI(t, "cache", "prune"))
	assert.Equal(t, "Removed 0 expired responses\n", out.String())

	out.Reset()
	assert.NoError(t, runCLI(t, "cache", "invalidate"))
	assert.Equal(t, "Removed 1 cached responses\n", out.String())

	assert.NoError(t, runCLI(t, "search", "dune"))
	assert.Equal(t, int32(2), cs.hits.Load())
}

func TestFeedCommandLoadsPages(t *testing.T) {
	resetCmdState(t)
	cs := newCatalogServer(t)
	cs.items = func(_ string, start, max int) []map[string]any {
		items := make([]map[string]any, 0, max)
		for i := range max {
			items = append(items, map[string]any{
				"id":         fmt.Sprintf("new-%d", start+i),
				"volumeInfo": map[string]any{"title": fmt.Sprintf("New Book %d", start+i)},
			})
		}
		return items
	}
	out := captureOutput(t)

	assert.NoError(t, runCLI(t, "feed", "--pages", "2", "--subject", "poetry"))

	assert.Equal(t, []string{"subject:poetry", "subject:poetry"}, cs.Queries())
	assert.Contains(t, out.String(), "40. New Book 39")
	assert.Contains(t, out.String(), "rerun with --pages 3")
}

func TestFeedCommandRejectsZeroPages(t *testing.T) {
	resetCmdState(t)

	err := runCLI(t, "feed", "--pages", "0")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "--pages must be at least 1")
}

func TestSavedCommands(t *testing.T) {
	resetCmdState(t)
	cs := newCatalogServer(t)
	cs.items = func(string, int, int) []map[string]any {
		return []map[string]any{duneItem()}
	}
	out := captureOutput(t)

	assert.NoError(t, runCLI(t, "saved", "list"))
	assert.Equal(t, "No saved books.\n", out.String())

	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "toggle", "dune-1", "--query", "dune"))
	assert.Equal(t, "Saved \"Dune\"\n", out.String())
	assert.Equal(t, []string{"dune"}, cs.Queries())

	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "progress", "dune-1", "40"))
	assert.Equal(t, "Progress for dune-1 set to 40%\n", out.String())

	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "list"))
	assert.Contains(t, out.String(), "1. Dune")
	assert.Contains(t, out.String(), "[free, saved, 40% read]")

	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "list", "--shelf"))
	assert.Contains(t, out.String(), "1. Dune")

	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "list", "--filter", "une"))
	assert.Contains(t, out.String(), "1. Dune")

	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "list", "--filter", "xyz"))
	assert.Equal(t, "No saved books.\n", out.String())

	// removing a saved book needs no catalog lookup
	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "toggle", "dune-1"))
	assert.Equal(t, "Removed \"Dune\"\n", out.String())
	assert.Equal(t, int32(1), cs.hits.Load())
}

func TestSavedProgressClampsAndRequiresSavedBook(t *testing.T) {
	resetCmdState(t)
	cs := newCatalogServer(t)
	cs.items = func(string, int, int) []map[string]any {
		return []map[string]any{duneItem()}
	}
	out := captureOutput(t)

	err := runCLI(t, "saved", "progress", "dune-1", "10")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not saved")

	assert.NoError(t, runCLI(t, "saved", "toggle", "dune-1"))
	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "progress", "dune-1", "250"))
	assert.Equal(t, "Progress for dune-1 set to 100%\n", out.String())
}

func TestSavedToggleUnknownBook(t *testing.T) {
	resetCmdState(t)
	newCatalogServer(t)

	err := runCLI(t, "saved", "toggle", "missing-id")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found in results")
}

func TestSavedExportWritesNotes(t *testing.T) {
	env := resetCmdState(t)
	cs := newCatalogServer(t)
	cs.items = func(string, int, int) []map[string]any {
		return []map[string]any{duneItem()}
	}
	out := captureOutput(t)

	assert.NoError(t, runCLI(t, "saved", "toggle", "dune-1"))

	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "export", "-o", env.Path("notes"), "--no-covers"))
	assert.Contains(t, out.String(), "Exported 1 notes")
	assert.True(t, env.FileExists("notes/Dune.md"))
	assert.Contains(t, env.ReadFileString("notes/Dune.md"), "title: Dune")

	out.Reset()
	assert.NoError(t, runCLI(t, "saved", "export", "-o", env.Path("notes"), "--no-covers"))
	assert.Contains(t, out.String(), "Exported 0 notes")
	assert.Contains(t, out.String(), "1 skipped")
}

func TestHistoryRemoveAndClear(t *testing.T) {
	resetCmdState(t)
	cs := newCatalogServer(t)
	cs.items = func(string, int, int) []map[string]any {
		return []map[string]any{duneItem()}
	}
	out := captureOutput(t)

	assert.NoError(t, runCLI(t, "search", "dune"))
	assert.NoError(t, runCLI(t, "search", "children", "of", "dune"))

	out.Reset()
	assert.NoError(t, runCLI(t, "history"))
	assert.Equal(t, "children of dune\ndune\n", out.String())

	assert.NoError(t, runCLI(t, "history", "remove", "dune"))
	out.Reset()
	assert.NoError(t, runCLI(t, "history", "list"))
	assert.Equal(t, "children of dune\n", out.String())

	assert.NoError(t, runCLI(t, "history", "clear"))
	out.Reset()
	assert.NoError(t, runCLI(t, "history", "list"))
	assert.Equal(t, "No recent searches.\n", out.String())
}
