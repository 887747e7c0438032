package archive_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bodgit/sevenzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/infracollect/autozip/internal/archive"
	"github.com/infracollect/autozip/internal/archive/writers"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.Local)

func newArchiver(t *testing.T, fs afero.Fs, opts ...archive.Option) *archive.Archiver {
	t.Helper()
	opts = append([]archive.Option{
		archive.WithLogger(zaptest.NewLogger(t)),
		archive.WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return archive.New(fs, writers.NewDefaultRegistry(), opts...)
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(name), 0755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
}

func listDir(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}

// extract reads an archive back with a reader that shares no code with the
// writers and returns the regular files it holds.
func extract(t *testing.T, fs afero.Fs, path string, format archive.Format) map[string]string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	found := make(map[string]string)
	switch format {
	case archive.FormatZip:
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)
		for _, f := range zr.File {
			rc, err := f.Open()
			require.NoError(t, err)
			content, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			found[f.Name] = string(content)
		}
	case archive.FormatGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		require.NoError(t, err)
		content, err := io.ReadAll(gr)
		require.NoError(t, err)
		require.NoError(t, gr.Close())
		found[gr.Name] = string(content)
	case archive.FormatTarGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		require.NoError(t, err)
		tr := tar.NewReader(gr)
		for {
			h, err := tr.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			if h.Typeflag == tar.TypeDir {
				continue
			}
			content, err := io.ReadAll(tr)
			require.NoError(t, err)
			found[h.Name] = string(content)
		}
	case archive.FormatSevenZip:
		r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)
		for _, f := range r.File {
			if f.FileInfo().IsDir() {
				continue
			}
			rc, err := f.Open()
			require.NoError(t, err)
			content, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			found[f.Name] = string(content)
		}
	default:
		t.Fatalf("no reader for format %s", format)
	}
	return found
}

func TestBuild_ZipSingleFileKeepsOriginal(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/work/report.txt": "hello"})

	result, err := newArchiver(t, fs).Build(t.Context(), archive.Request{
		Source:       "/work/report.txt",
		Format:       archive.FormatZip,
		KeepOriginal: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/work/report.txt.zip", result.OutputPath)
	assert.Equal(t, archive.FormatZip, result.Format)
	assert.Equal(t, 1, result.Entries)
	assert.Positive(t, result.Size)

	assert.Equal(t, map[string]string{"report.txt": "hello"}, extract(t, fs, result.OutputPath, archive.FormatZip))

	exists, err := afero.Exists(fs, "/work/report.txt")
	require.NoError(t, err)
	assert.True(t, exists, "original must be kept")
}

func TestBuild_TarGzDirectoryRemovesOriginal(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/work/data/a.txt": "alpha"})

	result, err := newArchiver(t, fs).Build(t.Context(), archive.Request{
		Source: "/work/data",
		Format: archive.FormatTarGzip,
	})
	require.NoError(t, err)

	assert.Equal(t, "/work/data.tar.gz", result.OutputPath)
	assert.Equal(t, map[string]string{"data/a.txt": "alpha"}, extract(t, fs, result.OutputPath, archive.FormatTarGzip))

	exists, err := afero.DirExists(fs, "/work/data")
	require.NoError(t, err)
	assert.False(t, exists, "original directory must be removed")
	assert.Equal(t, []string{"data.tar.gz"}, listDir(t, fs, "/work"))
}

func TestBuild_RoundTripFile(t *testing.T) {
	formats := []archive.Format{archive.FormatZip, archive.FormatGzip, archive.FormatTarGzip, archive.FormatSevenZip}
	content := strings.Repeat("the quick brown fox jumps over the lazy dog\n", 64)

	for _, format := range formats {
		t.Run(format.String(), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFiles(t, fs, map[string]string{"/work/notes.md": content})

			result, err := newArchiver(t, fs).Build(t.Context(), archive.Request{
				Source:       "/work/notes.md",
				Format:       format,
				KeepOriginal: true,
			})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"notes.md": content}, extract(t, fs, result.OutputPath, format))
		})
	}
}

func TestBuild_RoundTripDirectory(t *testing.T) {
	formats := []archive.Format{archive.FormatZip, archive.FormatTarGzip, archive.FormatSevenZip}
	files := map[string]string{
		"/work/project/README.md":          "# project",
		"/work/project/src/main.txt":       "main",
		"/work/project/src/nested/deep.md": strings.Repeat("deep ", 100),
	}
	want := map[string]string{
		"project/README.md":          "# project",
		"project/src/main.txt":       "main",
		"project/src/nested/deep.md": strings.Repeat("deep ", 100),
	}

	for _, format := range formats {
		t.Run(format.String(), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFiles(t, fs, files)

			result, err := newArchiver(t, fs).Build(t.Context(), archive.Request{
				Source:       "/work/project",
				Format:       format,
				KeepOriginal: true,
			})
			require.NoError(t, err)
			assert.Equal(t, want, extract(t, fs, result.OutputPath, format))
		})
	}
}

func TestBuild_GzipDirectoryRejected(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/work/data/a.txt": "alpha"})

	_, err := newArchiver(t, fs).Build(t.Context(), archive.Request{
		Source: "/work/data",
		Format: archive.FormatGzip,
	})
	require.ErrorIs(t, err, archive.ErrUnsupportedShape)
	assert.Equal(t, []string{"data"}, listDir(t, fs, "/work"), "no output may be created")
	assert.Equal(t, []string{"a.txt"}, listDir(t, fs, "/work/data"))
}

func TestBuild_UnsupportedFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/work/report.txt": "hello"})

	_, err := newArchiver(t, fs).Build(t.Context(), archive.Request{
		Source: "/work/report.txt",
		Format: archive.Format("rar"),
	})
	require.ErrorIs(t, err, archive.ErrUnsupportedFormat)

	var formatErr *archive.UnsupportedFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, archive.Format("rar"), formatErr.Format)
	assert.Contains(t, formatErr.Available, archive.FormatZip)
	assert.Contains(t, formatErr.Available, archive.FormatSevenZip)

	assert.Equal(t, []string{"report.txt"}, listDir(t, fs, "/work"))
}

func TestBuild_SourceNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work", 0755))

	_, err := newArchiver(t, fs).Build(t.Context(), archive.Request{
		Source: "/work/missing.txt",
		Format: archive.FormatZip,
	})
	require.ErrorIs(t, err, archive.ErrSourceNotFound)
	assert.Empty(t, listDir(t, fs, "/work"))
}

func TestBuild_TimestampedNamesAreDistinct(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/work/report.txt": "hello"})

	now := fixedNow
	a := newArchiver(t, fs, archive.WithClock(func() time.Time { return now }))
	req := archive.Request{
		Source:          "/work/report.txt",
		Format:          archive.FormatZip,
		KeepOriginal:    true,
		AppendTimestamp: true,
	}

	first, err := a.Build(t.Context(), req)
	require.NoError(t, err)
	now = now.Add(time.Second)
	second, err := a.Build(t.Context(), req)
	require.NoError(t, err)

	assert.Equal(t, "/work/report.txt_20261014093000.zip", first.OutputPath)
	assert.Equal(t, "/work/report.txt_20261014093001.zip", second.OutputPath)
	for _, path := range []string{first.OutputPath, second.OutputPath} {
		assert.Equal(t, map[string]string{"report.txt": "hello"}, extract(t, fs, path, archive.FormatZip))
	}
}

func TestBuild_SameSecondOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/work/report.txt": "first"})
	a := newArchiver(t, fs)
	req := archive.Request{Source: "/work/report.txt", Format: archive.FormatZip, KeepOriginal: true}

	_, err := a.Build(t.Context(), req)
	require.NoError(t, err)
	writeFiles(t, fs, map[string]string{"/work/report.txt": "second"})
	result, err := a.Build(t.Context(), req)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"report.txt": "second"}, extract(t, fs, result.OutputPath, archive.FormatZip))
	assert.ElementsMatch(t, []string{"report.txt", "report.txt.zip"}, listDir(t, fs, "/work"))
}

// failingWriter writes some bytes and then fails, like a full disk would.
type failingWriter struct{}

func (failingWriter) Extension() string { return ".zip" }
func (failingWriter) SingleFile() bool  { return false }

func (failingWriter) Write(entries iter.Seq2[archive.Entry, error], dst io.WriteSeeker) (int, error) {
	if _, err := dst.Write([]byte("PK\x03\x04partial")); err != nil {
		return 0, err
	}
	return 0, errors.New("no space left on device")
}

func TestBuild_WriteFailureKeepsOriginal(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/work/report.txt": "hello"})

	registry := archive.NewRegistry()
	registry.Register(archive.FormatZip, failingWriter{})
	a := archive.New(fs, registry, archive.WithLogger(zaptest.NewLogger(t)))

	_, err := a.Build(t.Context(), archive.Request{
		Source: "/work/report.txt",
		Format: archive.FormatZip,
	})
	require.ErrorIs(t, err, archive.ErrWrite)
	assert.Contains(t, err.Error(), "no space left on device")

	assert.Equal(t, []string{"report.txt"}, listDir(t, fs, "/work"), "neither output nor staging file may remain")
}

func TestBuild_SymlinkInTreeFails(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(dir, "b.txt")))

	fs := afero.NewOsFs()
	_, err := newArchiver(t, fs).Build(t.Context(), archive.Request{
		Source: dir,
		Format: archive.FormatTarGzip,
	})
	require.ErrorIs(t, err, archive.ErrWrite)
	require.ErrorIs(t, err, archive.ErrUnsupportedEntry)

	assert.Equal(t, []string{"data"}, listDir(t, fs, root))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, listDir(t, fs, dir))
}

// noRemoveFs refuses to delete anything.
type noRemoveFs struct {
	afero.Fs
}

func (noRemoveFs) Remove(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
}

func (noRemoveFs) RemoveAll(path string) error {
	return &os.PathError{Op: "removeall", Path: path, Err: os.ErrPermission}
}

func TestBuild_CleanupFailure(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{"/work/data/a.txt": "alpha"})
	fs := noRemoveFs{Fs: mem}

	result, err := newArchiver(t, fs).Build(t.Context(), archive.Request{
		Source: "/work/data",
		Format: archive.FormatSevenZip,
	})
	require.ErrorIs(t, err, archive.ErrCleanup)
	require.ErrorIs(t, err, os.ErrPermission)
	assert.NotErrorIs(t, err, archive.ErrWrite)

	assert.Equal(t, "/work/data.7z", result.OutputPath, "result stays valid")
	assert.Equal(t, map[string]string{"data/a.txt": "alpha"}, extract(t, mem, result.OutputPath, archive.FormatSevenZip))
	assert.ElementsMatch(t, []string{"data", "data.7z"}, listDir(t, mem, "/work"))
}

func TestBuild_CancelledBeforeStart(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/work/report.txt": "hello"})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newArchiver(t, fs).Build(ctx, archive.Request{
		Source: "/work/report.txt",
		Format: archive.FormatZip,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"report.txt"}, listDir(t, fs, "/work"))
}

func TestBuild_ConcurrentDistinctSources(t *testing.T) {
	fs := afero.NewMemMapFs()
	const n = 8
	for i := range n {
		writeFiles(t, fs, map[string]string{fmt.Sprintf("/work/src%d/file.txt", i): fmt.Sprintf("content %d", i)})
	}
	a := newArchiver(t, fs)

	var wg sync.WaitGroup
	results := make([]archive.Result, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = a.Build(context.Background(), archive.Request{
				Source: fmt.Sprintf("/work/src%d", i),
				Format: archive.FormatTarGzip,
			})
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t,
			map[string]string{fmt.Sprintf("src%d/file.txt", i): fmt.Sprintf("content %d", i)},
			extract(t, fs, results[i].OutputPath, archive.FormatTarGzip),
		)
	}
}
