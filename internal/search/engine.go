package search

import (
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"tarsearch/internal/index"
	"tarsearch/internal/tokenizer"
)

// Engine is the query façade: it keeps the lexicon, the block directory and
// the document metadata in memory and opens cheap per-term cursors over the
// postings file for each query.
type Engine struct {
	lexicon   map[string]index.LexiconEntry
	dir       *index.BlockDirectory
	indexFile *os.File
	indexSize int64
	scorer    scorer
	logger    *zap.Logger
}

// Open loads the three index artifacts from storagePath. The loads are
// independent and run concurrently.
func Open(storagePath string, logger *zap.Logger) (*Engine, error) {
	e := &Engine{logger: logger}

	var g errgroup.Group
	g.Go(func() error {
		f, err := os.Open(index.LexiconPath(storagePath))
		if err != nil {
			return xerrors.Errorf("open lexicon: %w", err)
		}
		defer f.Close()
		e.lexicon, err = index.ReadLexicon(f)
		return err
	})
	g.Go(func() error {
		f, err := os.Open(index.BlockInfoPath(storagePath))
		if err != nil {
			return xerrors.Errorf("open block info: %w", err)
		}
		defer f.Close()
		e.dir, err = index.ReadBlockDirectory(f)
		return err
	})
	g.Go(func() error {
		f, err := os.Open(index.DocInfoPath(storagePath))
		if err != nil {
			return xerrors.Errorf("open doc info: %w", err)
		}
		defer f.Close()
		docs, err := index.ReadDocInfo(f)
		if err != nil {
			return err
		}
		var totalLen int
		for _, d := range docs {
			totalLen += d.TermCount
		}
		e.scorer.docs = docs
		e.scorer.totalDocs = len(docs)
		if len(docs) > 0 {
			e.scorer.avgDocLen = float64(totalLen) / float64(len(docs))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var totalPostings int
	for _, entry := range e.lexicon {
		totalPostings += entry.PostingCount
	}
	e.dir.SetTotalPostings(totalPostings)

	f, err := os.Open(index.IndexPath(storagePath))
	if err != nil {
		return nil, xerrors.Errorf("open index: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("stat index: %w", err)
	}
	e.indexFile = f
	e.indexSize = stat.Size()

	return e, nil
}

func (e *Engine) Close() error { return e.indexFile.Close() }

// TotalDocs returns the number of documents in the collection.
func (e *Engine) TotalDocs() int { return e.scorer.totalDocs }

// Query tokenizes the input with the indexing rules, drops unknown terms and
// returns up to 10 results ordered by descending BM25 score. A lexicon entry
// pointing outside the index is reported and skipped, the query goes on.
func (e *Engine) Query(query string, conjunctive bool) []Result {
	var cursors []*termCursor
	for _, term := range tokenizer.Tokenize([]byte(query)) {
		entry, ok := e.lexicon[string(term)]
		if !ok {
			continue
		}
		if entry.StartOffset < 0 || entry.StartOffset+entry.BytesSize > e.indexSize {
			e.logger.Error("lexicon entry outside the index",
				zap.String("term", string(term)),
				zap.Int64("start", entry.StartOffset),
				zap.Int64("size", entry.BytesSize),
			)
			continue
		}
		cursors = append(cursors, &termCursor{
			cursor: index.NewCursor(e.indexFile, entry.StartOffset, entry.BytesSize, e.dir),
			idf:    e.scorer.idf(entry.PostingCount),
		})
	}
	if len(cursors) == 0 {
		return nil
	}

	var results []Result
	if conjunctive {
		results = e.scorer.conjunctive(cursors)
	} else {
		results = e.scorer.disjunctive(cursors)
	}
	for _, tc := range cursors {
		if err := tc.cursor.Err(); err != nil {
			e.logger.Error("cursor failed", zap.Error(err))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if len(results) > 10 {
		results = results[:10]
	}
	return results
}
