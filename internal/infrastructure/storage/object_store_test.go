package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildObjectKey(t *testing.T) {
	key := BuildObjectKey("/units/12/", "Living Room.JPG")
	assert.True(t, strings.HasPrefix(key, "units/12/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, BuildObjectKey("units/12", "Living Room.JPG"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("http://files.local")

	require.NoError(t, store.Put(ctx, "gallery/a.png", strings.NewReader("png"), 3, "image/png"))
	assert.True(t, store.Has("gallery/a.png"))

	url, err := store.URL(ctx, "gallery/a.png")
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/gallery/a.png", url)

	data, contentType, err := store.Get("gallery/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "image/png", contentType)

	require.NoError(t, store.Delete(ctx, "gallery/a.png"))
	_, err = store.URL(ctx, "gallery/a.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, _, err = store.Get("gallery/a.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
