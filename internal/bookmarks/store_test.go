package bookmarks

import (
	"errors"
	"testing"
	"time"

	"github.com/lepinkainen/readtube/internal/catalog"
	"github.com/lepinkainen/readtube/internal/datastore"
	"github.com/lepinkainen/readtube/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dune   = catalog.Book{ID: "dune", Title: "Dune", Author: "Frank Herbert"}
	emma   = catalog.Book{ID: "emma", Title: "Emma", Author: "Jane Austen"}
	hobbit = catalog.Book{ID: "hobbit", Title: "The Hobbit", Author: "J.R.R. Tolkien"}
)

func TestToggle_SaveAndRemove(t *testing.T) {
	s := Load(datastore.NewMemoryKV())

	saved, err := s.Toggle(dune)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, s.IsSaved("dune"))
	assert.Equal(t, 1, s.Len())

	saved, err = s.Toggle(dune)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.False(t, s.IsSaved("dune"))
	assert.Zero(t, s.Len())
}

func TestToggle_TwiceIsIdentity(t *testing.T) {
	kv := datastore.NewMemoryKV()
	s := Load(kv)
	_, err := s.Toggle(emma)
	require.NoError(t, err)
	_, err = s.Toggle(hobbit)
	require.NoError(t, err)

	before := s.List()
	for range 2 {
		_, err = s.Toggle(dune)
		require.NoError(t, err)
	}
	assert.Equal(t, before, s.List())

	raw, _, err := kv.Get(SavedBooksKey)
	require.NoError(t, err)
	assert.NotContains(t, raw, `"id":"dune"`)
}

func TestToggle_PreservesInsertionOrder(t *testing.T) {
	s := Load(datastore.NewMemoryKV())
	for _, b := range []catalog.Book{dune, emma, hobbit} {
		_, err := s.Toggle(b)
		require.NoError(t, err)
	}
	_, err := s.Toggle(emma)
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "dune", list[0].ID)
	assert.Equal(t, "hobbit", list[1].ID)
}

func TestToggle_RejectsEmptyID(t *testing.T) {
	s := Load(datastore.NewMemoryKV())
	_, err := s.Toggle(catalog.Book{Title: "No ID"})
	require.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestToggle_WriteFailureRollsBack(t *testing.T) {
	kv := datastore.NewMemoryKV()
	s := Load(kv)
	_, err := s.Toggle(dune)
	require.NoError(t, err)

	kv.FailWrites = errors.New("read-only")

	saved, err := s.Toggle(emma)
	require.Error(t, err)
	assert.False(t, saved)
	assert.False(t, s.IsSaved("emma"))

	saved, err = s.Toggle(dune)
	require.Error(t, err)
	assert.True(t, saved)
	assert.True(t, s.IsSaved("dune"))
}

func TestPersistsAcrossReload(t *testing.T) {
	env := testutil.NewTestEnv(t)
	kv, err := datastore.OpenSQLite(env.Path("readtube.db"))
	require.NoError(t, err)

	s := Load(kv)
	_, err = s.Toggle(dune)
	require.NoError(t, err)
	_, err = s.Toggle(hobbit)
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	kv, err = datastore.OpenSQLite(env.Path("readtube.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	reloaded := Load(kv)
	assert.Equal(t, []catalog.Book{dune, hobbit}, reloaded.List())
}

func TestLoad_MalformedIsEmpty(t *testing.T) {
	kv := datastore.NewMemoryKV()
	require.NoError(t, kv.Set(SavedBooksKey, "not json"))
	require.NoError(t, kv.Set(ProgressKey, "[1,2"))

	s := Load(kv)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Shelf())

	saved, err := s.Toggle(dune)
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestLoad_DropsDuplicateIDs(t *testing.T) {
	kv := datastore.NewMemoryKV()
	require.NoError(t, kv.Set(SavedBooksKey, `[{"id":"a","title":"First"},{"id":"a","title":"Second"},{"id":"b","title":"B"}]`))

	s := Load(kv)
	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "First", list[0].Title)
}

func TestListReturnsCopy(t *testing.T) {
	s := Load(datastore.NewMemoryKV())
	_, err := s.Toggle(dune)
	require.NoError(t, err)

	list := s.List()
	list[0].Title = "mutated"

	got, ok := s.Get("dune")
	require.True(t, ok)
	assert.Equal(t, "Dune", got.Title)
}

func TestProgressAndShelf(t *testing.T) {
	kv := datastore.NewMemoryKV()
	s := Load(kv)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	for _, b := range []catalog.Book{dune, emma, hobbit} {
		_, err := s.Toggle(b)
		require.NoError(t, err)
	}

	require.NoError(t, s.SetProgress("dune", 30))
	clock = clock.Add(time.Hour)
	require.NoError(t, s.SetProgress("hobbit", 250))
	clock = clock.Add(time.Hour)
	require.NoError(t, s.SetProgress("emma", 55))

	p, ok := s.ProgressFor("hobbit")
	require.True(t, ok)
	assert.Equal(t, 100, p.Percent, "clamped")

	shelf := s.Shelf()
	require.Len(t, shelf, 2, "finished books leave the shelf")
	assert.Equal(t, "emma", shelf[0].ID)
	assert.Equal(t, "dune", shelf[1].ID)

	reloaded := Load(kv)
	assert.Len(t, reloaded.Shelf(), 2)

	_, err := s.Toggle(emma)
	require.NoError(t, err)
	_, ok = s.ProgressFor("emma")
	assert.False(t, ok, "removing a bookmark drops its progress")
	assert.Len(t, s.Shelf(), 1)
}

func TestSetProgress_Errors(t *testing.T) {
	kv := datastore.NewMemoryKV()
	s := Load(kv)

	require.Error(t, s.SetProgress("missing", 10))

	_, err := s.Toggle(dune)
	require.NoError(t, err)
	require.NoError(t, s.SetProgress("dune", 10))

	kv.FailWrites = errors.New("read-only")
	require.Error(t, s.SetProgress("dune", 90))

	p, ok := s.ProgressFor("dune")
	require.True(t, ok)
	assert.Equal(t, 10, p.Percent)
}

func TestFilter(t *testing.T) {
	s := Load(datastore.NewMemoryKV())
	for _, b := range []catalog.Book{dune, emma, hobbit} {
		_, err := s.Toggle(b)
		require.NoError(t, err)
	}

	all := s.Filter("  ")
	require.Len(t, all, 3)
	assert.Equal(t, "dune", all[0].Book.ID)

	results := s.Filter("hob")
	require.Len(t, results, 1)
	assert.Equal(t, "hobbit", results[0].Book.ID)
	assert.NotEmpty(t, results[0].MatchedIndexes)

	assert.Empty(t, s.Filter("zzz"))
}
