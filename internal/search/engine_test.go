package search

import (
	"archive/tar"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tarsearch/internal/ingest"
)

// buildCorpus packs the lines into a tar.gz, builds an index in a temp dir
// and opens an engine over it.
func buildCorpus(t *testing.T, lines []string) *Engine {
	t.Helper()

	dir := t.TempDir()
	content := strings.Join(lines, "\n") + "\n"

	path := filepath.Join(dir, "corpus.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "docs.txt",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(content)),
	}))
	_, err = tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	b := ingest.Builder{Storage: dir, Logger: zap.NewNop()}
	require.NoError(t, b.Build(path))

	engine, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestQueryModes(t *testing.T) {
	engine := buildCorpus(t, []string{
		"0 the quick brown fox",
		"1 the lazy dog",
		"2 quick brown dog",
		"3 unrelated words only",
	})

	conj := engine.Query("quick brown", true)
	disj := engine.Query("quick brown", false)

	// conjunctive results are a subset of disjunctive with equal scores
	disjScores := make(map[uint32]float64)
	for _, r := range disj {
		disjScores[r.DocID] = r.Score
	}
	require.NotEmpty(t, conj)
	for _, r := range conj {
		score, ok := disjScores[r.DocID]
		require.True(t, ok, "doc %d missing from disjunctive results", r.DocID)
		require.InDelta(t, score, r.Score, 1e-12)
	}

	// conjunctive matches exactly the docs holding both terms
	var conjDocs []uint32
	for _, r := range conj {
		conjDocs = append(conjDocs, r.DocID)
	}
	require.ElementsMatch(t, []uint32{0, 2}, conjDocs)

	// disjunctive additionally covers the partial match
	require.Contains(t, disjScores, uint32(1))
	require.NotContains(t, disjScores, uint32(3))
}

func TestQueryOrderingAndTrim(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, fmt.Sprintf("%d common filler%d", i, i))
	}
	engine := buildCorpus(t, lines)

	results := engine.Query("common", false)
	require.Len(t, results, 10)
	for i := 1; i < len(results); i++ {
		require.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestQueryRanksHighFreqDocFirst(t *testing.T) {
	var lines []string
	for i := 0; i < 100; i++ {
		if i == 57 {
			lines = append(lines, fmt.Sprintf("%d needle needle needle needle needle", i))
			continue
		}
		lines = append(lines, fmt.Sprintf("%d needle filler%d pad%d other%d extra%d", i, i, i, i, i))
	}
	engine := buildCorpus(t, lines)

	results := engine.Query("needle", false)
	require.NotEmpty(t, results)
	require.Equal(t, uint32(57), results[0].DocID)
	for _, r := range results {
		require.GreaterOrEqual(t, r.Score, 0.0)
	}
}

func TestQueryUnknownTerms(t *testing.T) {
	engine := buildCorpus(t, []string{"0 alpha beta", "1 beta gamma"})

	require.Empty(t, engine.Query("missing", false))
	require.Empty(t, engine.Query("", true))

	// unknown terms are silently dropped from the cursor set
	results := engine.Query("alpha missing", false)
	require.Len(t, results, 1)
	require.Equal(t, uint32(0), results[0].DocID)
}

func TestTotalDocs(t *testing.T) {
	engine := buildCorpus(t, []string{"0 a", "1 b", "2 c"})
	require.Equal(t, 3, engine.TotalDocs())
}
