package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"egglytics-backend/internal/storage"
)

func TestLocalStore_PutGetDelete(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080/")
	assert.NoError(t, err)

	assert.NoError(t, store.Put("uploads/egg.jpg", []byte("image bytes")))

	data, err := store.Get("uploads/egg.jpg")
	assert.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)

	exists, err := store.Exists("uploads/egg.jpg")
	assert.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, store.Delete("uploads/egg.jpg"))

	exists, err = store.Exists("uploads/egg.jpg")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStore_GetMissing(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080")
	assert.NoError(t, err)

	_, err = store.Get("uploads/missing.jpg")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestLocalStore_DeleteMissingIsNoop(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080")
	assert.NoError(t, err)

	assert.NoError(t, store.Delete("uploads/missing.jpg"))
}

func TestLocalStore_PublicURL(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080/")
	assert.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/media/uploads/egg.jpg", store.PublicURL("uploads/egg.jpg"))
}
