package ingest

import (
	"tarsearch/internal/index"
)

// Rough per-insertion byte costs for the memory estimate. Tracking container
// overhead exactly is not worth it, a small overshoot is tolerated.
const (
	postingCost = 8
	termCost    = 64
)

// termInfo is the lexicon's view of one term during the build. It persists
// across run spills: lastDocID keeps the gap chain intact from run to run.
type termInfo struct {
	id        uint32
	postings  int
	lastDocID uint32
}

// batch accumulates postings until the byte estimate exceeds the limit.
// The lexicon and the reverse term map are never spilled, only the postings.
type batch struct {
	lexicon  map[string]*termInfo
	terms    []string // term id -> term string
	postings map[uint32][]index.Posting
	memory   int64
	limit    int64
}

func newBatch(limit int64) *batch {
	return &batch{
		lexicon:  make(map[string]*termInfo),
		terms:    nil,
		postings: make(map[uint32][]index.Posting),
		limit:    limit,
	}
}

// addDocument commits one document: terms in first-occurrence order with
// their in-document counts. The whole document lands in the current batch so
// a spill can only overshoot the limit by one document's worth.
func (b *batch) addDocument(docID uint32, termOrder []string, counts map[string]int) {
	for _, term := range termOrder {
		info, ok := b.lexicon[term]
		if !ok {
			info = &termInfo{id: uint32(len(b.terms))}
			b.lexicon[term] = info
			b.terms = append(b.terms, term)
			b.memory += int64(len(term)) + termCost
		}
		if _, present := b.postings[info.id]; !present {
			b.memory += int64(len(term)) + termCost
		}
		b.postings[info.id] = append(b.postings[info.id], index.Posting{
			Gap:  docID - info.lastDocID,
			Freq: uint32(counts[term]),
		})
		info.lastDocID = docID
		info.postings++
		b.memory += postingCost
	}
}

// over reports whether the estimate crossed the limit and a spill is due.
func (b *batch) over() bool { return b.memory > b.limit }

// clearPostings drops the spilled postings but keeps the lexicon. The
// estimate restarts from the retained lexicon share.
func (b *batch) clearPostings() {
	b.postings = make(map[uint32][]index.Posting)
	var retained int64
	for term := range b.lexicon {
		retained += int64(len(term)) + termCost
	}
	b.memory = retained
}

func (b *batch) empty() bool { return len(b.postings) == 0 }
