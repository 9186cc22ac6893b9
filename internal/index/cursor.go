package index

import (
	"io"

	"golang.org/x/xerrors"

	"tarsearch/internal/codec"
)

// Cursor iterates one term's postings in the block-packed stream. It buffers
// one block at a time and never seeks backward. Cursors are cheap to build;
// one cursor serves one query at a time.
//
// The term's first posting starts exactly at start within the stream, where a
// posting's position is the sum of the encoded gap+freq sizes of all postings
// before it. The cursor decodes the containing block, skips preceding
// postings by their encoded sizes and then yields postings until size bytes
// are consumed.
type Cursor struct {
	r     io.ReaderAt
	dir   *BlockDirectory
	start int64
	size  int64

	remaining int64
	block     int // next block to decode
	loaded    bool
	done      bool
	err       error

	buf   []byte
	gaps  []uint32
	freqs []uint32
	sizes []int64 // encoded gap+freq bytes per posting
	pos   int     // next posting within the decoded block
	doc   uint32  // accumulated absolute doc id
}

// NewCursor opens a cursor over [start, start+size) of the postings stream.
func NewCursor(r io.ReaderAt, start, size int64, dir *BlockDirectory) *Cursor {
	return &Cursor{
		r:         r,
		dir:       dir,
		start:     start,
		size:      size,
		remaining: size,
		block:     -1,
	}
}

// Size returns the byte span of the term's postings.
func (c *Cursor) Size() int64 { return c.size }

// Next advances by one posting. It reports false once the term's byte range
// is exhausted or a format error occurred; see Err.
func (c *Cursor) Next() (docID uint32, freq uint32, ok bool) {
	if c.done || c.err != nil {
		return 0, 0, false
	}
	if c.remaining <= 0 {
		c.done = true
		return 0, 0, false
	}
	if !c.loaded {
		if !c.load() {
			return 0, 0, false
		}
	}
	if c.pos == len(c.gaps) {
		c.block++
		if !c.load() {
			return 0, 0, false
		}
	}

	c.doc += c.gaps[c.pos]
	freq = c.freqs[c.pos]
	c.remaining -= c.sizes[c.pos]
	c.pos++
	if c.remaining < 0 {
		c.err = xerrors.New("cursor: posting crosses the term byte range")
		return 0, 0, false
	}
	return c.doc, freq, true
}

// Err reports a format error hit while decoding, if any.
func (c *Cursor) Err() error { return c.err }

// load decodes the next block holding this term's postings and, on the first
// block, skips postings that belong to preceding terms.
func (c *Cursor) load() bool {
	first := !c.loaded
	if first {
		c.block = c.dir.Locate(c.start)
	}
	if c.block < 0 || c.block >= c.dir.Blocks() {
		c.err = xerrors.New("cursor: term byte range outside the block directory")
		return false
	}

	size := c.dir.Size(c.block)
	if int64(cap(c.buf)) < size {
		c.buf = make([]byte, size)
	}
	c.buf = c.buf[:size]
	if _, err := c.r.ReadAt(c.buf, c.dir.Start(c.block)); err != nil {
		c.err = xerrors.Errorf("cursor: read block %d: %w", c.block, err)
		return false
	}
	if err := c.decodeBlock(); err != nil {
		c.err = err
		return false
	}
	c.loaded = true

	if first {
		skip := c.start - c.dir.Start(c.block)
		for c.pos < len(c.sizes) && skip > 0 {
			skip -= c.sizes[c.pos]
			c.pos++
		}
		if skip != 0 {
			c.err = xerrors.New("cursor: start offset is not aligned to a posting")
			return false
		}
	}
	return true
}

// decodeBlock splits the buffered block into gaps, freqs and per-posting
// encoded sizes. The block must contain exactly the directory's cardinality.
func (c *Cursor) decodeBlock() error {
	n := c.dir.PostingsIn(c.block)
	c.gaps = c.gaps[:0]
	c.freqs = c.freqs[:0]
	c.pos = 0

	p := 0
	sizes := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		v, l, err := codec.Uvarint(c.buf[p:])
		if err != nil {
			return xerrors.Errorf("cursor: block %d gap %d: %w", c.block, i, err)
		}
		c.gaps = append(c.gaps, v)
		sizes = append(sizes, int64(l))
		p += l
	}
	for i := 0; i < n; i++ {
		v, l, err := codec.Uvarint(c.buf[p:])
		if err != nil {
			return xerrors.Errorf("cursor: block %d freq %d: %w", c.block, i, err)
		}
		c.freqs = append(c.freqs, v)
		sizes[i] += int64(l)
		p += l
	}
	if p != len(c.buf) {
		return xerrors.Errorf("cursor: block %d decoded %d of %d bytes", c.block, p, len(c.buf))
	}
	c.sizes = sizes
	return nil
}
