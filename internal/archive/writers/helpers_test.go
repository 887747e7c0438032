package writers

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"
	"testing"

	"github.com/bodgit/sevenzip"
	"github.com/infracollect/autozip/internal/archive"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// extracted is the content of an archive as seen by an independent reader.
type extracted struct {
	files map[string]string
	dirs  []string
}

// newTree creates files (path -> content) and empty dirs in a memory fs.
func newTree(t *testing.T, files map[string]string, dirs ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, fs.MkdirAll(path.Dir(name), 0755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
	for _, dir := range dirs {
		require.NoError(t, fs.MkdirAll(dir, 0755))
	}
	return fs
}

// writeArchive enumerates source and runs w into an in-memory file.
func writeArchive(t *testing.T, w archive.Writer, fs afero.Fs, source string) ([]byte, int, error) {
	t.Helper()
	src, err := archive.StatSource(fs, source)
	require.NoError(t, err)

	out, err := fs.Create("/archive.out")
	require.NoError(t, err)
	n, writeErr := w.Write(archive.Enumerate(fs, src), out)
	require.NoError(t, out.Close())

	data, err := afero.ReadFile(fs, "/archive.out")
	require.NoError(t, err)
	return data, n, writeErr
}

func readZip(t *testing.T, data []byte) extracted {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	found := extracted{files: make(map[string]string)}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			found.dirs = append(found.dirs, f.Name)
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		found.files[f.Name] = string(content)
	}
	return found
}

// readTar decompresses the data (gzip, zstd or lz4) and lists its members.
func readTar(t *testing.T, data []byte, compression CompressionType) extracted {
	t.Helper()
	var decompressed io.Reader
	switch compression {
	case CompressionGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer lo.Must0(gr.Close())
		decompressed = gr
	case CompressionZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer zr.Close()
		decompressed = zr
	case CompressionLz4:
		decompressed = lz4.NewReader(bytes.NewReader(data))
	default:
		t.Fatalf("unknown compression: %s", compression)
	}

	tr := tar.NewReader(decompressed)
	found := extracted{files: make(map[string]string)}
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if h.Typeflag == tar.TypeDir {
			found.dirs = append(found.dirs, h.Name)
			continue
		}
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		found.files[h.Name] = string(content)
	}
	return found
}

func readSevenZip(t *testing.T, data []byte) extracted {
	t.Helper()
	r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	found := extracted{files: make(map[string]string)}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			found.dirs = append(found.dirs, f.Name)
			continue
		}
		content, err := readSevenZipFile(f)
		require.NoError(t, err, "file %s", f.Name)
		found.files[f.Name] = string(content)
	}
	return found
}

func readSevenZipFile(f *sevenzip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
