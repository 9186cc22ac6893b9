package index

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// DocInfo is one document metadata record: the number of terms in the
// document and the byte offset of its line in the uncompressed source.
type DocInfo struct {
	TermCount int
	Offset    int64
}

// DocInfoWriter emits the metadata table densely in ascending doc id order.
// The table is positional: line i describes doc id i, so holes in the
// observed id sequence are padded with zero records. Padded holes are
// reported through the returned count, the input is assumed dense.
type DocInfoWriter struct {
	w      *bufio.Writer
	nextID uint32
}

func NewDocInfoWriter(w io.Writer) *DocInfoWriter {
	return &DocInfoWriter{w: bufio.NewWriter(w)}
}

// Append writes the record for docID, padding any hole since the previously
// written id. It returns the number of padded records.
func (dw *DocInfoWriter) Append(docID uint32, info DocInfo) (padded int, err error) {
	for ; dw.nextID < docID; dw.nextID++ {
		if _, err = fmt.Fprintln(dw.w, "0 0"); err != nil {
			return padded, err
		}
		padded++
	}
	if _, err = fmt.Fprintf(dw.w, "%d %d\n", info.TermCount, info.Offset); err != nil {
		return padded, err
	}
	dw.nextID = docID + 1
	return padded, nil
}

func (dw *DocInfoWriter) Flush() error { return dw.w.Flush() }

// ReadDocInfo loads the metadata table. The slice is indexed by doc id.
func ReadDocInfo(r io.Reader) ([]DocInfo, error) {
	var docs []DocInfo
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			return nil, xerrors.Errorf("doc info line %d: want 2 fields, got %d", line, len(fields))
		}
		count, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, xerrors.Errorf("doc info line %d: term count: %w", line, err)
		}
		offset, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, xerrors.Errorf("doc info line %d: offset: %w", line, err)
		}
		docs = append(docs, DocInfo{TermCount: count, Offset: offset})
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("read doc info: %w", err)
	}
	return docs, nil
}
