// Package index defines the on-disk format shared by the builder and the
// query engine: the block-packed postings stream, the text lexicon, the
// binary block directory and the document metadata table.
package index

import "path/filepath"

// Output filenames, relative to the storage path.
const (
	IndexFilename     = "final_sorted_index.bin"
	LexiconFilename   = "final_sorted_lexicon.txt"
	BlockInfoFilename = "final_sorted_block_info.bin"
	DocInfoFilename   = "document_info.txt"
)

// PostingsPerBlock is the fixed cardinality of an index block. Within a block
// all gap encodings are laid out first, then all frequency encodings, so a
// reader that only needs doc ids can skip the frequency half.
const PostingsPerBlock = 128

// Posting is one term occurrence: the doc-id gap to the previous posting of
// the same term (the first gap is the absolute doc id) and the term frequency
// within that document.
type Posting struct {
	Gap  uint32
	Freq uint32
}

func IndexPath(dir string) string     { return filepath.Join(dir, IndexFilename) }
func LexiconPath(dir string) string   { return filepath.Join(dir, LexiconFilename) }
func BlockInfoPath(dir string) string { return filepath.Join(dir, BlockInfoFilename) }
func DocInfoPath(dir string) string   { return filepath.Join(dir, DocInfoFilename) }
