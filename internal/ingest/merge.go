package ingest

import (
	"cmp"
	"errors"
	"io"
	"os"
	"strings"

	go_iterators "github.com/lezhnev74/go-iterators"
	"golang.org/x/xerrors"

	"tarsearch/internal/index"
)

// mergeRuns k-way merges all run files into the final index, the block
// directory and the lexicon listing. Records drain from a selection tree
// ordered by (term string, run id); run order matters for equal terms because
// a term's gap chain continues across spills. Run files are deleted after a
// successful merge; any I/O error is fatal for the build.
func mergeRuns(dir string, runs int, terms []string) (totalPostings int, err error) {
	tree := go_iterators.NewSliceIterator([]runRecord{})
	for i := 0; i < runs; i++ {
		rr, err := openRun(dir, i, terms)
		if err != nil {
			tree.Close()
			return 0, err
		}
		it := go_iterators.NewCallbackIterator(
			func() (runRecord, error) {
				rec, err := rr.next()
				if errors.Is(err, io.EOF) {
					return runRecord{}, go_iterators.EmptyIterator
				}
				return rec, err
			},
			rr.close,
		)
		tree = go_iterators.NewSortedSelectingIterator(tree, it, func(a, b runRecord) int {
			if c := strings.Compare(a.term, b.term); c != 0 {
				return c
			}
			return cmp.Compare(a.runID, b.runID)
		})
	}
	defer tree.Close()

	indexFile, err := os.Create(index.IndexPath(dir))
	if err != nil {
		return 0, xerrors.Errorf("create index: %w", err)
	}
	defer indexFile.Close()
	blockFile, err := os.Create(index.BlockInfoPath(dir))
	if err != nil {
		return 0, xerrors.Errorf("create block info: %w", err)
	}
	defer blockFile.Close()
	lexiconFile, err := os.Create(index.LexiconPath(dir))
	if err != nil {
		return 0, xerrors.Errorf("create lexicon: %w", err)
	}
	defer lexiconFile.Close()

	var (
		pw  = index.NewPostingsWriter(indexFile, index.NewBlockInfoWriter(blockFile))
		lw  = index.NewLexiconWriter(lexiconFile)
		cur = index.LexiconEntry{}

		curTerm string
		open    bool
		lastDoc uint32
	)
	finalize := func() error {
		if !open {
			return nil
		}
		cur.BytesSize = pw.Offset() - cur.StartOffset
		return lw.Append(curTerm, cur)
	}

	for {
		rec, err := tree.Next()
		if errors.Is(err, go_iterators.EmptyIterator) {
			break
		}
		if err != nil {
			return 0, xerrors.Errorf("merge runs: %w", err)
		}

		if !open || rec.term != curTerm {
			if err = finalize(); err != nil {
				return 0, xerrors.Errorf("write lexicon: %w", err)
			}
			curTerm = rec.term
			cur = index.LexiconEntry{TermID: rec.termID, StartOffset: pw.Offset()}
			lastDoc = 0
			open = true
		}

		for _, p := range rec.postings {
			lastDoc += p.Gap
			if err = pw.Append(p, lastDoc); err != nil {
				return 0, xerrors.Errorf("write postings: %w", err)
			}
			cur.PostingCount++
			totalPostings++
		}
	}
	if err = finalize(); err != nil {
		return 0, xerrors.Errorf("write lexicon: %w", err)
	}

	if err = pw.Close(); err != nil {
		return 0, err
	}
	if err = lw.Flush(); err != nil {
		return 0, xerrors.Errorf("flush lexicon: %w", err)
	}
	if err = indexFile.Close(); err != nil {
		return 0, xerrors.Errorf("close index: %w", err)
	}
	if err = blockFile.Close(); err != nil {
		return 0, xerrors.Errorf("close block info: %w", err)
	}
	if err = lexiconFile.Close(); err != nil {
		return 0, xerrors.Errorf("close lexicon: %w", err)
	}

	removeRuns(dir, runs)
	return totalPostings, nil
}

func removeRuns(dir string, runs int) {
	for i := 0; i < runs; i++ {
		os.Remove(runPath(dir, i))
	}
}

// removeOutputs deletes any partial final files, used when a build fails.
func removeOutputs(dir string) {
	os.Remove(index.IndexPath(dir))
	os.Remove(index.BlockInfoPath(dir))
	os.Remove(index.LexiconPath(dir))
	os.Remove(index.DocInfoPath(dir))
}
