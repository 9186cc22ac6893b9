package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/xerrors"
)

// BlockMeta is one block directory record: the absolute doc id of the last
// posting in the block and the block's byte size. Records are packed
// little-endian, 12 bytes each.
type BlockMeta struct {
	LastDocID int32
	Bytes     int64
}

// BlockInfoWriter appends directory records as blocks are sealed.
type BlockInfoWriter struct {
	w *bufio.Writer
}

func NewBlockInfoWriter(w io.Writer) *BlockInfoWriter {
	return &BlockInfoWriter{w: bufio.NewWriter(w)}
}

func (bw *BlockInfoWriter) Append(m BlockMeta) error {
	return binary.Write(bw.w, binary.LittleEndian, m)
}

func (bw *BlockInfoWriter) Flush() error { return bw.w.Flush() }

// BlockDirectory is the loaded directory: per-block sizes plus the derived
// cumulative start offsets within the index stream. The total posting count
// (known to the caller from the lexicon) determines how many postings the
// final, possibly partial, block holds.
type BlockDirectory struct {
	metas         []BlockMeta
	starts        []int64
	totalPostings int
}

// ReadBlockDirectory loads all directory records and computes block offsets.
func ReadBlockDirectory(r io.Reader) (*BlockDirectory, error) {
	d := &BlockDirectory{}
	br := bufio.NewReader(r)
	var offset int64
	for {
		var m BlockMeta
		err := binary.Read(br, binary.LittleEndian, &m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("read block directory: %w", err)
		}
		d.metas = append(d.metas, m)
		d.starts = append(d.starts, offset)
		offset += m.Bytes
	}
	return d, nil
}

// SetTotalPostings fixes the index-wide posting count so the cardinality of
// the last block can be derived.
func (d *BlockDirectory) SetTotalPostings(n int) { d.totalPostings = n }

func (d *BlockDirectory) Blocks() int { return len(d.metas) }

// Start returns the byte offset of block i within the index stream.
func (d *BlockDirectory) Start(i int) int64 { return d.starts[i] }

func (d *BlockDirectory) Size(i int) int64 { return d.metas[i].Bytes }

func (d *BlockDirectory) LastDocID(i int) uint32 { return uint32(d.metas[i].LastDocID) }

// PostingsIn returns how many postings block i holds: a full block except
// possibly the last one of the index.
func (d *BlockDirectory) PostingsIn(i int) int {
	if i < len(d.metas)-1 {
		return PostingsPerBlock
	}
	tail := d.totalPostings % PostingsPerBlock
	if tail == 0 && d.totalPostings > 0 {
		tail = PostingsPerBlock
	}
	return tail
}

// Locate returns the index of the first block whose cumulative end exceeds
// the given stream offset, or -1 when the offset lies past the stream.
func (d *BlockDirectory) Locate(offset int64) int {
	for i := range d.metas {
		if d.starts[i]+d.metas[i].Bytes > offset {
			return i
		}
	}
	return -1
}
