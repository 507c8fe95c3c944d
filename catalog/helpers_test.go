package catalog

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// writeFile creates root/rel with size bytes of content
func writeFile(t *testing.T, root, rel string, size int) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'x'}, size), 0644))
	return path
}

// writeZip creates root/rel holding one stored entry per size
func writeZip(t *testing.T, root, rel string, sizes ...int) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for i, size := range sizes {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   fmt.Sprintf("entry%d.obf", i),
			Method: zip.Deflate,
		})
		require.NoError(t, err)
		_, err = w.Write(bytes.Repeat([]byte{'y'}, size))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func testScanner(logs *bytes.Buffer) *Scanner {
	s := NewScanner()
	s.Logger = zerolog.New(zerolog.SyncWriter(logs))
	return s
}
