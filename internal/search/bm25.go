// Package search answers ranked keyword queries against the on-disk index:
// it opens one inverted-list cursor per query term and scores documents with
// BM25, conjunctively (all terms) or disjunctively (any term).
package search

import (
	"container/heap"
	"math"

	"tarsearch/internal/index"
)

// BM25 parameters.
const (
	k1 = 1.2
	b  = 0.75
)

// Result is one ranked document.
type Result struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
}

// termCursor is one query term's list with its precomputed IDF and current
// position.
type termCursor struct {
	cursor *index.Cursor
	idf    float64
	doc    uint32
	freq   uint32
	alive  bool
}

func (tc *termCursor) advance() {
	tc.doc, tc.freq, tc.alive = tc.cursor.Next()
}

// scorer holds the collection statistics BM25 needs.
type scorer struct {
	totalDocs int
	avgDocLen float64
	docs      []index.DocInfo
}

// idf follows log((N - df + 0.5) / (df + 0.5) + 1) with df taken from the
// lexicon's posting count.
func (s scorer) idf(df int) float64 {
	n := float64(s.totalDocs)
	return math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

func (s scorer) tf(freq uint32, docID uint32) float64 {
	docLen := 0
	if int(docID) < len(s.docs) {
		docLen = s.docs[docID].TermCount
	}
	f := float64(freq)
	return f * (k1 + 1) / (f + k1*(1-b+b*float64(docLen)/s.avgDocLen))
}

// conjunctive emits only documents present in every list: all cursors
// advance in lock-step towards a shared candidate doc id.
func (s scorer) conjunctive(cursors []*termCursor) []Result {
	for _, tc := range cursors {
		tc.advance()
		if !tc.alive {
			return nil
		}
	}

	var (
		results []Result
		current uint32
	)
	for {
		allEqual := true
		maxDoc := current
		for _, tc := range cursors {
			for tc.alive && tc.doc < current {
				tc.advance()
			}
			if !tc.alive {
				return results
			}
			if tc.doc > maxDoc {
				maxDoc = tc.doc
			}
			if tc.doc != current {
				allEqual = false
			}
		}

		if allEqual {
			var score float64
			for _, tc := range cursors {
				score += tc.idf * s.tf(tc.freq, current)
			}
			results = append(results, Result{DocID: current, Score: score})
			current++
		} else {
			current = maxDoc
		}

		if current >= uint32(s.totalDocs) {
			return results
		}
	}
}

// docHeap orders cursor indexes by their current doc id.
type docHeap struct {
	cursors []*termCursor
	order   []int
}

func (h docHeap) Len() int { return len(h.order) }
func (h docHeap) Less(i, j int) bool {
	return h.cursors[h.order[i]].doc < h.cursors[h.order[j]].doc
}
func (h docHeap) Swap(i, j int)      { h.order[i], h.order[j] = h.order[j], h.order[i] }
func (h *docHeap) Push(x any)        { h.order = append(h.order, x.(int)) }
func (h *docHeap) Pop() any {
	last := len(h.order) - 1
	v := h.order[last]
	h.order = h.order[:last]
	return v
}

// disjunctive emits one result per distinct doc id present in any list,
// draining cursors doc-at-a-time through a min-heap.
func (s scorer) disjunctive(cursors []*termCursor) []Result {
	h := &docHeap{cursors: cursors}
	for i, tc := range cursors {
		tc.advance()
		if tc.alive {
			h.order = append(h.order, i)
		}
	}
	heap.Init(h)

	var results []Result
	for h.Len() > 0 {
		doc := cursors[h.order[0]].doc

		var score float64
		for h.Len() > 0 && cursors[h.order[0]].doc == doc {
			i := heap.Pop(h).(int)
			tc := cursors[i]
			score += tc.idf * s.tf(tc.freq, doc)
			tc.advance()
			if tc.alive {
				heap.Push(h, i)
			}
		}
		results = append(results, Result{DocID: doc, Score: score})
	}
	return results
}
