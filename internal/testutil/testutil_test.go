package testutil

import (
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestEnv_Path(t *testing.T) {
	env := NewTestEnv(t)

	path := env.Path("subdir", "file.txt")
	assert.True(t, filepath.IsAbs(path))
	assert.Contains(t, path, "subdir")
	assert.Contains(t, path, "file.txt")
}

func TestTestEnv_WriteReadFile(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFile("nested/dir/test.txt", []byte("test content"))

	assert.True(t, env.FileExists("nested/dir/test.txt"))
	assert.Equal(t, "test content", env.ReadFileString("nested/dir/test.txt"))
	assert.False(t, env.FileExists("missing.txt"))
}

func TestTestEnv_NewViper(t *testing.T) {
	env := NewTestEnv(t)

	v := env.NewViper()
	assert.Equal(t, env.Path("readtube.db"), v.GetString("storage.dbfile"))
	assert.Equal(t, env.Path("cache.db"), v.GetString("cache.dbfile"))
	assert.Equal(t, "fiction", v.GetString("feed.subject"))
}

func TestNewIPv4Server(t *testing.T) {
	server := NewIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	assert.Contains(t, server.URL, "127.0.0.1")

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}
