// Package tokenizer splits document lines into index terms.
package tokenizer

// Tokenize splits the input into terms: maximal runs of ASCII letters and
// digits, letters lowercased. Every other byte (whitespace, punctuation,
// multi-byte sequences) acts as a separator. Occurrence order is preserved
// and duplicates are retained, the caller counts them.
func Tokenize(input []byte) [][]byte {
	var (
		terms [][]byte
		cur   []byte
	)
	for _, c := range input {
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			cur = append(cur, c)
		case c >= 'A' && c <= 'Z':
			cur = append(cur, c+'a'-'A')
		default:
			if len(cur) > 0 {
				terms = append(terms, cur)
				cur = nil
			}
		}
	}
	if len(cur) > 0 {
		terms = append(terms, cur)
	}
	return terms
}
