package ingest

import (
	"bytes"
	"os"
	"strconv"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"tarsearch/internal/index"
	"tarsearch/internal/tokenizer"
)

// DefaultMemoryLimit caps the in-memory postings estimate before a run spill.
const DefaultMemoryLimit = 800 * 1024 * 1024

// Builder turns one tar.gz corpus into the final index files under Storage.
type Builder struct {
	Storage     string
	MemoryLimit int64
	Logger      *zap.Logger
}

// document aggregates consecutive input lines sharing one doc id, so a
// term's doc ids stay strictly increasing when postings are committed.
type document struct {
	id        uint32
	offset    int64
	termCount int
	order     []string
	counts    map[string]int
	started   bool
}

func (d *document) start(id uint32, offset int64) {
	d.id = id
	d.offset = offset
	d.termCount = 0
	d.order = d.order[:0]
	d.counts = make(map[string]int)
	d.started = true
}

func (d *document) add(terms [][]byte) {
	d.termCount += len(terms)
	for _, t := range terms {
		term := string(t)
		if _, seen := d.counts[term]; !seen {
			d.order = append(d.order, term)
		}
		d.counts[term]++
	}
}

// Build runs the whole pipeline: scan the archive into batches, spill runs
// under memory pressure, then merge the runs into the final index. Partial
// outputs and temp files are removed on failure.
func (b *Builder) Build(archive string) (err error) {
	limit := b.MemoryLimit
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}

	docFile, err := createFile(index.DocInfoPath(b.Storage))
	if err != nil {
		return err
	}
	defer docFile.Close()
	docWriter := index.NewDocInfoWriter(docFile)

	var (
		bt        = newBatch(limit)
		runs      int
		doc       document
		lastDocID uint32
		accepted  int
		skipped   int
	)
	defer func() {
		if err != nil {
			removeRuns(b.Storage, runs)
			removeOutputs(b.Storage)
		}
	}()

	commit := func() error {
		if !doc.started {
			return nil
		}
		bt.addDocument(doc.id, doc.order, doc.counts)
		padded, err := docWriter.Append(doc.id, index.DocInfo{TermCount: doc.termCount, Offset: doc.offset})
		if err != nil {
			return xerrors.Errorf("write doc info: %w", err)
		}
		if padded > 0 {
			b.Logger.Warn("doc id sequence has holes", zap.Uint32("doc", doc.id), zap.Int("padded", padded))
		}
		accepted++
		doc.started = false

		if bt.over() {
			if err := writeRun(b.Storage, runs, bt); err != nil {
				return err
			}
			runs++
			bt.clearPostings()
			b.Logger.Info("spilled run", zap.Int("run", runs), zap.String("rss", rss()))
		}
		return nil
	}

	for rec, err := range Records(archive) {
		if err != nil {
			return err
		}
		id, text, ok := splitDocID(rec.Line)
		if !ok {
			skipped++
			b.Logger.Warn("line has no leading doc id", zap.Int64("offset", rec.Offset))
			continue
		}
		if doc.started && id == doc.id {
			doc.add(tokenizer.Tokenize(text))
			continue
		}
		if id < lastDocID {
			skipped++
			b.Logger.Warn("doc id out of order", zap.Uint32("doc", id), zap.Int64("offset", rec.Offset))
			continue
		}
		if err := commit(); err != nil {
			return err
		}
		terms := tokenizer.Tokenize(text)
		if len(terms) == 0 {
			skipped++
			b.Logger.Warn("line has no terms", zap.Uint32("doc", id), zap.Int64("offset", rec.Offset))
			continue
		}
		lastDocID = id
		doc.start(id, rec.Offset)
		doc.add(terms)
	}
	if err := commit(); err != nil {
		return err
	}

	if !bt.empty() || runs == 0 {
		if err := writeRun(b.Storage, runs, bt); err != nil {
			return err
		}
		runs++
	}

	total, err := mergeRuns(b.Storage, runs, bt.terms)
	if err != nil {
		return err
	}

	if err := docWriter.Flush(); err != nil {
		return xerrors.Errorf("flush doc info: %w", err)
	}
	if err := docFile.Close(); err != nil {
		return xerrors.Errorf("close doc info: %w", err)
	}

	b.Logger.Info("build done",
		zap.Int("documents", accepted),
		zap.Int("skipped_lines", skipped),
		zap.Int("terms", len(bt.terms)),
		zap.Int("postings", total),
		zap.Int("runs", runs),
	)
	return nil
}

// splitDocID parses the leading decimal doc id of a line and returns the
// remaining text.
func splitDocID(line []byte) (uint32, []byte, bool) {
	idPart := line
	rest := []byte(nil)
	if sp := bytes.IndexByte(line, ' '); sp >= 0 {
		idPart = line[:sp]
		rest = line[sp+1:]
	}
	id, err := strconv.ParseUint(string(idPart), 10, 32)
	if err != nil {
		return 0, nil, false
	}
	return uint32(id), rest, true
}

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, xerrors.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

// rss reports the resident memory of this process, best effort.
func rss() string {
	p, err := procfs.Self()
	if err != nil {
		return "n/a"
	}
	stat, err := p.Stat()
	if err != nil {
		return "n/a"
	}
	return strconv.Itoa(stat.ResidentMemory()/1024/1024) + "Mb"
}
