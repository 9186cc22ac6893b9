package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/xerrors"

	"tarsearch/internal/codec"
	"tarsearch/internal/index"
)

// runPath names the n-th temporary run file.
func runPath(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("temp_index_%d.bin", n))
}

// writeRun spills the batch postings as run file n. Records are ordered by
// term string bytes, each one: varbyte(term_id), varbyte(posting_count),
// then posting_count pairs of varbyte(gap), varbyte(freq).
func writeRun(dir string, n int, b *batch) error {
	f, err := os.Create(runPath(dir, n))
	if err != nil {
		return xerrors.Errorf("create run %d: %w", n, err)
	}

	ids := maps.Keys(b.postings)
	slices.SortFunc(ids, func(x, y uint32) int {
		return strings.Compare(b.terms[x], b.terms[y])
	})

	w := bufio.NewWriter(f)
	var scratch []byte
	for _, id := range ids {
		postings := b.postings[id]
		scratch = codec.Put(scratch[:0], id)
		scratch = codec.Put(scratch, uint32(len(postings)))
		for _, p := range postings {
			scratch = codec.Put(scratch, p.Gap)
			scratch = codec.Put(scratch, p.Freq)
		}
		if _, err = w.Write(scratch); err != nil {
			f.Close()
			return xerrors.Errorf("write run %d: %w", n, err)
		}
	}
	if err = w.Flush(); err != nil {
		f.Close()
		return xerrors.Errorf("flush run %d: %w", n, err)
	}
	if err = f.Close(); err != nil {
		return xerrors.Errorf("close run %d: %w", n, err)
	}
	return nil
}

// runRecord is one decoded run file record plus its origin. Equal terms from
// different runs merge in run order to keep the gap chain intact.
type runRecord struct {
	term     string
	termID   uint32
	runID    int
	postings []index.Posting
}

// runReader decodes records of one run file sequentially.
type runReader struct {
	f     *os.File
	br    *bufio.Reader
	runID int
	terms []string
}

func openRun(dir string, n int, terms []string) (*runReader, error) {
	f, err := os.Open(runPath(dir, n))
	if err != nil {
		return nil, xerrors.Errorf("open run %d: %w", n, err)
	}
	return &runReader{
		f:     f,
		br:    bufio.NewReader(f),
		runID: n,
		terms: terms,
	}, nil
}

// next returns the following record or io.EOF after the last one.
func (r *runReader) next() (runRecord, error) {
	termID, err := codec.ReadUvarint(r.br)
	if errors.Is(err, io.EOF) {
		return runRecord{}, io.EOF
	}
	if err != nil {
		return runRecord{}, xerrors.Errorf("run %d: term id: %w", r.runID, err)
	}
	if int(termID) >= len(r.terms) {
		return runRecord{}, xerrors.Errorf("run %d: unknown term id %d", r.runID, termID)
	}
	count, err := codec.ReadUvarint(r.br)
	if err != nil {
		return runRecord{}, xerrors.Errorf("run %d: posting count: %w", r.runID, err)
	}
	postings := make([]index.Posting, count)
	for i := range postings {
		if postings[i].Gap, err = codec.ReadUvarint(r.br); err != nil {
			return runRecord{}, xerrors.Errorf("run %d: gap: %w", r.runID, err)
		}
		if postings[i].Freq, err = codec.ReadUvarint(r.br); err != nil {
			return runRecord{}, xerrors.Errorf("run %d: freq: %w", r.runID, err)
		}
	}
	return runRecord{term: r.terms[termID], termID: termID, runID: r.runID, postings: postings}, nil
}

func (r *runReader) close() error { return r.f.Close() }
