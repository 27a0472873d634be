package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func TestObjectName(t *testing.T) {
	now := time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC)
	a, err := ObjectName("modifications", "image/jpeg", now)
	require.NoError(t, err)
	b, err := ObjectName("modifications", "image/jpeg", now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "modifications/2024/07/"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.NotEqual(t, a, b)

	_, err = ObjectName("modifications", "text/html; charset=utf-8", now)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSniffImage(t *testing.T) {
	t.Run("png keeps every byte", func(t *testing.T) {
		content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte("x"), 1000)...)
		contentType, body, err := SniffImage(bytes.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, "image/png", contentType)

		got, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("gif", func(t *testing.T) {
		contentType, _, err := SniffImage(strings.NewReader("GIF89a tiny"))
		require.NoError(t, err)
		assert.Equal(t, "image/gif", contentType)
	})

	for name, content := range map[string]string{
		"html":  "<html><script>alert(1)</script></html>",
		"pdf":   "%PDF-1.4",
		"empty": "",
	} {
		t.Run(name+" is rejected", func(t *testing.T) {
			_, _, err := SniffImage(strings.NewReader(content))
			assert.ErrorIs(t, err, ErrUnsupportedType)
		})
	}
}

func TestDiskStore_SaveAndRemove(t *testing.T) {
	root := t.TempDir()
	store := &DiskStore{Root: root, URLPrefix: "/uploads"}

	stored, err := store.Save(context.Background(), "image/png", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored, "/uploads/modifications/"))
	assert.True(t, strings.HasSuffix(stored, ".png"))

	full := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(stored, "/uploads/")))
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Remove(context.Background(), stored))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	assert.NoError(t, store.Remove(context.Background(), stored))
	assert.Error(t, store.Remove(context.Background(), "/uploads/../etc/passwd"))

	_, err = store.Save(context.Background(), "text/html", 5, strings.NewReader("<html>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestMinioStore_URL(t *testing.T) {
	s := &MinioStore{bucket: "modifications", publicURL: "https://cdn.example.com"}
	assert.Equal(t, "https://cdn.example.com/modifications/modifications/2024/07/a%20b.png", s.URL("modifications/2024/07/a b.png"))
}

func TestPublicReadPolicy(t *testing.T) {
	policy := publicReadPolicy("modifications")
	assert.Contains(t, policy, `"arn:aws:s3:::modifications/*"`)
	assert.Contains(t, policy, `"s3:GetObject"`)
}
