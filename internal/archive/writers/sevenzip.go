package writers

import (
	"fmt"
	"hash/crc32"
	"io"
	"iter"

	"github.com/infracollect/autozip/internal/archive"
	"github.com/ulikunitz/xz/lzma"
)

const sevenZipDictCap = 8 << 20

// SevenZipWriter writes 7z archives with all file contents compressed as a
// single solid LZMA2 folder. Directories and empty files are stored as
// empty-stream records so the tree survives extraction unchanged.
type SevenZipWriter struct {
	dictCap int
}

func NewSevenZipWriter() *SevenZipWriter {
	return &SevenZipWriter{dictCap: sevenZipDictCap}
}

func (w *SevenZipWriter) Extension() string { return ".7z" }
func (w *SevenZipWriter) SingleFile() bool  { return false }

// Write reserves the start header, streams the packed data, appends the
// header and finally seeks back to fill in the start header.
func (w *SevenZipWriter) Write(entries iter.Seq2[archive.Entry, error], dst io.WriteSeeker) (int, error) {
	if _, err := dst.Write(make([]byte, sevenZipStartHeaderSize)); err != nil {
		return 0, fmt.Errorf("failed to reserve 7z start header: %w", err)
	}

	packed := &countingWriter{w: dst}
	var lz *lzma.Writer2
	var files []sevenZipFile

	for entry, err := range entries {
		if err != nil {
			return 0, err
		}

		f := sevenZipFile{
			name:    entry.Name,
			dir:     entry.IsDir(),
			modTime: entry.Info.ModTime(),
			mode:    entry.Info.Mode(),
		}

		if !f.dir {
			if lz == nil {
				cfg := lzma.Writer2Config{DictCap: w.dictCap}
				lz, err = cfg.NewWriter2(packed)
				if err != nil {
					return 0, fmt.Errorf("failed to create lzma2 writer: %w", err)
				}
			}

			hash := crc32.NewIEEE()
			n, err := copyEntry(io.MultiWriter(lz, hash), entry)
			if err != nil {
				return 0, err
			}
			f.size = uint64(n)
			f.crc = hash.Sum32()
		}

		files = append(files, f)
	}

	if lz != nil {
		if err := lz.Close(); err != nil {
			return 0, fmt.Errorf("failed to close lzma2 stream: %w", err)
		}
	}

	header := encodeSevenZipHeader(files, uint64(packed.n), lzma2DictProp(w.dictCap))
	if _, err := dst.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write 7z header: %w", err)
	}

	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to 7z start header: %w", err)
	}
	if _, err := dst.Write(encodeStartHeader(uint64(packed.n), header)); err != nil {
		return 0, fmt.Errorf("failed to write 7z start header: %w", err)
	}

	return len(files), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
