package service

import (
	"context"
	"edu_progress_backend/internal/config"
	"edu_progress_backend/internal/model"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportUploadsSnapshot(t *testing.T) {
	svc, registry, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateChapterProgress(ctx, "learner-1", "math", "chapter-1", model.ChapterUpdate{CurrentPage: intPtr(3)})
	require.NoError(t, err)

	storage, err := NewStorageService(&config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)

	exporter := NewExportService(registry, storage)
	res, err := exporter.Export(ctx, "learner-1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Key, "exports/learner-1/"))
	assert.True(t, strings.HasSuffix(res.Key, ".json"))
	assert.Equal(t, "/uploads/"+res.Key, res.URL)

	data, err := storage.Get(ctx, res.Key)
	require.NoError(t, err)
	assert.Equal(t, res.Size, len(data))
	assert.Contains(t, string(data), `"chapter-1"`)
	assert.Contains(t, string(data), `"currentPage":3`)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	storage, err := NewStorageService(&config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)

	_, err = storage.PutBytes(context.Background(), "../outside.json", []byte("{}"), "application/json")
	assert.Error(t, err)
}

func TestUnknownStorageType(t *testing.T) {
	_, err := NewStorageService(&config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}
