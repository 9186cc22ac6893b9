package index

import (
	"bufio"
	"io"

	"golang.org/x/xerrors"

	"tarsearch/internal/codec"
)

// PostingsWriter assembles the block-packed postings stream. Postings arrive
// in merge order; every PostingsPerBlock of them seal a block: the gap buffer
// is written, then the frequency buffer, and a directory record is appended.
// Block boundaries are independent of term boundaries.
type PostingsWriter struct {
	out     *bufio.Writer
	dir     *BlockInfoWriter
	gaps    []byte
	freqs   []byte
	n       int
	lastDoc uint32
	flushed int64
}

func NewPostingsWriter(out io.Writer, dir *BlockInfoWriter) *PostingsWriter {
	return &PostingsWriter{
		out: bufio.NewWriter(out),
		dir: dir,
	}
}

// Append adds one posting. doc is the absolute doc id the gap accumulates to,
// recorded in the directory when the block seals.
func (pw *PostingsWriter) Append(p Posting, doc uint32) error {
	pw.gaps = codec.Put(pw.gaps, p.Gap)
	pw.freqs = codec.Put(pw.freqs, p.Freq)
	pw.lastDoc = doc
	pw.n++
	if pw.n == PostingsPerBlock {
		return pw.seal()
	}
	return nil
}

// Offset is the current position in the postings stream: sealed blocks plus
// the bytes pending in the open block. Lexicon offsets are recorded in these
// terms.
func (pw *PostingsWriter) Offset() int64 {
	return pw.flushed + int64(len(pw.gaps)+len(pw.freqs))
}

// Close seals a trailing partial block and flushes the stream.
func (pw *PostingsWriter) Close() error {
	if pw.n > 0 {
		if err := pw.seal(); err != nil {
			return err
		}
	}
	if err := pw.out.Flush(); err != nil {
		return xerrors.Errorf("flush postings: %w", err)
	}
	return pw.dir.Flush()
}

func (pw *PostingsWriter) seal() error {
	if _, err := pw.out.Write(pw.gaps); err != nil {
		return xerrors.Errorf("write gaps: %w", err)
	}
	if _, err := pw.out.Write(pw.freqs); err != nil {
		return xerrors.Errorf("write freqs: %w", err)
	}
	size := int64(len(pw.gaps) + len(pw.freqs))
	if err := pw.dir.Append(BlockMeta{LastDocID: int32(pw.lastDoc), Bytes: size}); err != nil {
		return xerrors.Errorf("write block meta: %w", err)
	}
	pw.flushed += size
	pw.gaps = pw.gaps[:0]
	pw.freqs = pw.freqs[:0]
	pw.n = 0
	return nil
}
