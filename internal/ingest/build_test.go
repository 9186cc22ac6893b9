package ingest

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tarsearch/internal/index"
)

// loadIndex opens the build outputs and returns per-term decoded postings.
func loadIndex(t *testing.T, dir string) (map[string][]index.Posting, map[string]index.LexiconEntry, []index.DocInfo) {
	t.Helper()

	lexFile, err := os.Open(index.LexiconPath(dir))
	require.NoError(t, err)
	defer lexFile.Close()
	lexicon, err := index.ReadLexicon(lexFile)
	require.NoError(t, err)

	blockFile, err := os.Open(index.BlockInfoPath(dir))
	require.NoError(t, err)
	defer blockFile.Close()
	blockDir, err := index.ReadBlockDirectory(blockFile)
	require.NoError(t, err)

	total := 0
	for _, e := range lexicon {
		total += e.PostingCount
	}
	blockDir.SetTotalPostings(total)

	docFile, err := os.Open(index.DocInfoPath(dir))
	require.NoError(t, err)
	defer docFile.Close()
	docs, err := index.ReadDocInfo(docFile)
	require.NoError(t, err)

	idxFile, err := os.Open(index.IndexPath(dir))
	require.NoError(t, err)
	defer idxFile.Close()

	postings := make(map[string][]index.Posting)
	for term, e := range lexicon {
		c := index.NewCursor(idxFile, e.StartOffset, e.BytesSize, blockDir)
		var (
			list    []index.Posting
			lastDoc uint32
		)
		for {
			doc, freq, ok := c.Next()
			if !ok {
				break
			}
			list = append(list, index.Posting{Gap: doc - lastDoc, Freq: freq})
			lastDoc = doc
		}
		require.NoError(t, c.Err())
		require.Len(t, list, e.PostingCount)
		postings[term] = list
	}

	return postings, lexicon, docs
}

func build(t *testing.T, archive, dir string, limit int64) {
	t.Helper()
	b := Builder{Storage: dir, MemoryLimit: limit, Logger: zap.NewNop()}
	require.NoError(t, b.Build(archive))
}

func TestBuildRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archive := makeArchive(t, dir, [][2]string{
		{"docs.txt", "0 the quick brown fox\n1 the lazy dog\n2 quick brown dog\n"},
	})
	build(t, archive, dir, 0) // default 800 MiB cap

	postings, lexicon, docs := loadIndex(t, dir)

	require.ElementsMatch(t,
		[]string{"brown", "dog", "fox", "lazy", "quick", "the"},
		keys(lexicon),
	)
	require.Equal(t, []index.Posting{{Gap: 0, Freq: 1}, {Gap: 1, Freq: 1}}, postings["the"])
	require.Equal(t, []index.Posting{{Gap: 0, Freq: 1}, {Gap: 2, Freq: 1}}, postings["quick"])
	require.Equal(t, []index.Posting{{Gap: 1, Freq: 1}, {Gap: 1, Freq: 1}}, postings["dog"])
	require.Equal(t, []index.Posting{{Gap: 0, Freq: 1}, {Gap: 2, Freq: 1}}, postings["brown"])
	require.Equal(t, []index.Posting{{Gap: 0, Freq: 1}}, postings["fox"])
	require.Equal(t, []index.Posting{{Gap: 1, Freq: 1}}, postings["lazy"])

	require.Len(t, docs, 3)
	require.Equal(t, 4, docs[0].TermCount)
	require.Equal(t, 3, docs[1].TermCount)
	require.Equal(t, 3, docs[2].TermCount)

	// temp runs are gone
	matches, err := filepath.Glob(filepath.Join(dir, "temp_index_*.bin"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestBuildSkipsBadLines(t *testing.T) {
	dir := t.TempDir()
	archive := makeArchive(t, dir, [][2]string{
		{"docs.txt", "0 alpha\nnoise without id\n5 beta\n3 out of order\n6 gamma\n"},
	})
	build(t, archive, dir, 0)

	postings, _, docs := loadIndex(t, dir)
	require.Contains(t, postings, "alpha")
	require.Contains(t, postings, "beta")
	require.Contains(t, postings, "gamma")
	require.NotContains(t, postings, "order")

	// positional table padded over the holes
	require.Len(t, docs, 7)
	require.Equal(t, index.DocInfo{}, docs[1])
	require.Equal(t, 1, docs[5].TermCount)
}

func TestBuildAggregatesDuplicateDocIDs(t *testing.T) {
	dir := t.TempDir()
	archive := makeArchive(t, dir, [][2]string{
		{"docs.txt", "0 alpha beta\n0 alpha\n1 beta\n"},
	})
	build(t, archive, dir, 0)

	postings, _, docs := loadIndex(t, dir)
	require.Equal(t, []index.Posting{{Gap: 0, Freq: 2}}, postings["alpha"])
	require.Equal(t, []index.Posting{{Gap: 0, Freq: 1}, {Gap: 1, Freq: 1}}, postings["beta"])
	require.Len(t, docs, 2)
	require.Equal(t, 3, docs[0].TermCount)
}

// TestBuildSpillInvariance forces many run spills and expects outputs
// bit-identical to a single-spill build.
func TestBuildSpillInvariance(t *testing.T) {
	words := []string{
		"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta",
		"iota", "kappa", "lambda", "mu", "nu", "xi", "omicron", "pi",
	}
	rnd := rand.New(rand.NewSource(42))
	var sb strings.Builder
	for doc := 0; doc < 5000; doc++ {
		fmt.Fprintf(&sb, "%d", doc)
		for i := 0; i < 3+rnd.Intn(6); i++ {
			sb.WriteByte(' ')
			sb.WriteString(words[rnd.Intn(len(words))])
		}
		sb.WriteByte('\n')
	}
	corpus := sb.String()

	smallDir := t.TempDir()
	bigDir := t.TempDir()
	build(t, makeArchive(t, smallDir, [][2]string{{"c.txt", corpus}}), smallDir, 16*1024)
	build(t, makeArchive(t, bigDir, [][2]string{{"c.txt", corpus}}), bigDir, 1<<30)

	// the small cap must actually have spilled more than once: outputs must
	// still be bit-identical
	for _, name := range []string{
		index.IndexFilename, index.LexiconFilename,
		index.BlockInfoFilename, index.DocInfoFilename,
	} {
		small, err := os.ReadFile(filepath.Join(smallDir, name))
		require.NoError(t, err)
		big, err := os.ReadFile(filepath.Join(bigDir, name))
		require.NoError(t, err)
		require.Equal(t, big, small, name)
	}
}

func keys(m map[string]index.LexiconEntry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
