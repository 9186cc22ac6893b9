package index

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// LexiconEntry locates one term's postings within the index stream.
type LexiconEntry struct {
	TermID       uint32
	PostingCount int
	StartOffset  int64
	BytesSize    int64
}

// LexiconWriter emits the lexicon as text lines in the order terms leave the
// merger: <term> <term_id> <posting_count> <start_offset> <bytes_size>.
type LexiconWriter struct {
	w *bufio.Writer
}

func NewLexiconWriter(w io.Writer) *LexiconWriter {
	return &LexiconWriter{w: bufio.NewWriter(w)}
}

func (lw *LexiconWriter) Append(term string, e LexiconEntry) error {
	_, err := fmt.Fprintf(lw.w, "%s %d %d %d %d\n", term, e.TermID, e.PostingCount, e.StartOffset, e.BytesSize)
	return err
}

func (lw *LexiconWriter) Flush() error { return lw.w.Flush() }

// ReadLexicon loads the whole lexicon into a map keyed by term.
func ReadLexicon(r io.Reader) (map[string]LexiconEntry, error) {
	lexicon := make(map[string]LexiconEntry)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) != 5 {
			return nil, xerrors.Errorf("lexicon line %d: want 5 fields, got %d", line, len(fields))
		}
		termID, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, xerrors.Errorf("lexicon line %d: term id: %w", line, err)
		}
		count, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, xerrors.Errorf("lexicon line %d: posting count: %w", line, err)
		}
		start, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, xerrors.Errorf("lexicon line %d: start offset: %w", line, err)
		}
		size, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, xerrors.Errorf("lexicon line %d: bytes size: %w", line, err)
		}
		lexicon[fields[0]] = LexiconEntry{
			TermID:       uint32(termID),
			PostingCount: count,
			StartOffset:  start,
			BytesSize:    size,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("read lexicon: %w", err)
	}
	return lexicon, nil
}
