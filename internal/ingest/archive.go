// Package ingest builds the on-disk index from a gzipped tar corpus: it
// tokenizes lines into an in-memory batch, spills sorted runs under memory
// pressure and k-way merges the runs into the final block-packed index.
package ingest

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"iter"
	"os"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/xerrors"
)

const chunkSize = 64 * 1024

// Record is one newline-terminated corpus line together with the byte offset
// of its first byte in the uncompressed stream. Offsets accumulate across
// archive entries so they stay unique for the whole corpus.
// Line is only valid until the next iteration.
type Record struct {
	Offset int64
	Line   []byte
}

// Records streams every line of every regular file in the tar.gz archive.
// Empty entries are skipped. A trailing line without a newline is flushed at
// the end of its entry, so nothing is carried past the archive's last entry.
func Records(path string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(Record{}, xerrors.Errorf("open archive: %w", err))
			return
		}
		defer f.Close()

		gz, err := gzip.NewReader(f)
		if err != nil {
			yield(Record{}, xerrors.Errorf("gzip open: %w", err))
			return
		}
		defer gz.Close()

		var (
			tr       = tar.NewReader(gz)
			buf      = make([]byte, chunkSize)
			leftover []byte
			off      int64
		)
		for {
			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield(Record{}, xerrors.Errorf("archive entry: %w", err))
				return
			}
			if hdr.Typeflag != tar.TypeReg || hdr.Size == 0 {
				continue
			}

			for {
				n, err := tr.Read(buf)
				if n > 0 {
					chunk := buf[:n]
					p := 0
					for {
						i := bytes.IndexByte(chunk[p:], '\n')
						if i < 0 {
							break
						}
						end := p + i
						line := chunk[p:end]
						at := off + int64(p)
						if len(leftover) > 0 {
							at -= int64(len(leftover))
							line = append(leftover, line...)
							leftover = nil
						}
						if !yield(Record{Offset: at, Line: line}, nil) {
							return
						}
						p = end + 1
					}
					if p < len(chunk) {
						leftover = append(leftover, chunk[p:]...)
					}
					off += int64(n)
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					yield(Record{}, xerrors.Errorf("read archive entry %s: %w", hdr.Name, err))
					return
				}
			}

			// an entry may end without a trailing newline
			if len(leftover) > 0 {
				if !yield(Record{Offset: off - int64(len(leftover)), Line: leftover}, nil) {
					return
				}
				leftover = nil
			}
		}
	}
}
