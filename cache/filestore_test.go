package cache

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/openlaw/internal/auth"
)

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	links := auth.BlobLink{Secret: []byte("k"), BaseURL: "http://localhost:8080"}
	s, err := NewFileStore(dir, links)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "law_detail/a.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "law_detail/a.json", []byte(`{"v":1}`), "application/json"))
	require.NoError(t, s.Put(ctx, "law_detail/a.json", []byte(`{"v":2}`), "application/json"))

	ok, err = s.Exists(ctx, "law_detail/a.json")
	require.NoError(t, err)
	assert.True(t, ok)

	data, ct, err := s.Get(ctx, "law_detail/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))
	assert.Contains(t, ct, "application/json")

	entries, err := os.ReadDir(filepath.Join(dir, "law_detail"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	raw, err := s.SignedURL(ctx, "law_detail/a.json", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/blobs/law_detail/a.json", u.Path)
	path, err := links.Verify(u.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "law_detail/a.json", path)

	_, _, err = s.Get(ctx, "law_detail/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsEscapes(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), auth.BlobLink{Secret: []byte("k")})
	require.NoError(t, err)
	ctx := context.Background()

	for _, p := range []string{"../x.json", "a/../../x.json", "/etc/passwd", ""} {
		assert.Error(t, s.Put(ctx, p, []byte("x"), "text/plain"), p)
		_, err := s.Exists(ctx, p)
		assert.Error(t, err, p)
	}
}

func TestFileStoreRequiresSecretForLinks(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), auth.BlobLink{})
	require.NoError(t, err)
	_, err = s.SignedURL(context.Background(), "a.json", time.Hour)
	assert.Error(t, err)
}
