package watch

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vincent-petithory/dataurl"
)

func pngBytes(t *testing.T, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, size, size))))
	return buf.Bytes()
}

func TestReadIcon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favicon.png")
	data := pngBytes(t, 16)
	require.NoError(t, os.WriteFile(path, data, 0644))

	icon, err := ReadIcon(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(icon, "data:image/png;base64,"), icon)

	decoded, err := dataurl.DecodeString(icon)
	require.NoError(t, err)
	assert.Equal(t, data, decoded.Data)
}

func TestReadIcon_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	_, err := ReadIcon(empty)
	assert.Error(t, err)

	text := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(text, []byte("not an image"), 0644))
	_, err = ReadIcon(text)
	assert.Error(t, err)

	_, err = ReadIcon(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadIcon_RejectsUndecodableIcons(t *testing.T) {
	dir := t.TempDir()
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16"><circle cx="8" cy="8" r="8"/></svg>`)

	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr string
	}{
		{name: "svg extension", file: "favicon.svg", data: svg, wantErr: "vector icons are not supported"},
		{name: "svg content", file: "favicon.png", data: svg, wantErr: "vector icons are not supported"},
		{name: "truncated png", file: "cut.png", data: pngBytes(t, 16)[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, tt.data, 0644))

			_, err := ReadIcon(path)
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFileWatcher_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "favicon.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 16), 0644))

	var (
		mu    sync.Mutex
		icons []string
	)
	fw, err := NewFileWatcher(path, func(icon string) {
		mu.Lock()
		icons = append(icons, icon)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	t.Cleanup(func() { _ = fw.Stop() })

	// Unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.png"), pngBytes(t, 8), 0644))

	updated := pngBytes(t, 32)
	require.NoError(t, os.WriteFile(path, updated, 0644))

	want := dataurl.New(updated, "image/png").String()
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(icons) > 0 && icons[len(icons)-1] == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favicon.png")
	fw, err := NewFileWatcher(path, func(string) {}, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	require.NoError(t, fw.Start())

	assert.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
}
