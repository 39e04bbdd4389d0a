package ingest

import (
	"fmt"
	"regexp"

	"github.com/datakita/pdpserve/internal/domain"
)

// Clause marker inside an article body: "(1) ", "(2) " and so on.
var clauseRe = regexp.MustCompile(`\(\d+\)\s`)

// split breaks an over-long article into part passages. Clause
// boundaries are preferred; a clause that alone exceeds the limit falls
// back to a fixed window with overlap. Part ids extend the article id:
// pasal_12, pasal_12_p2, pasal_12_p3.
func (p *Parser) split(pass domain.Passage) []domain.Passage {
	if p.MaxPassageLen <= 0 || len(pass.Text) <= p.MaxPassageLen {
		return []domain.Passage{pass}
	}

	chunks := packClauses(splitClauses(pass.Text), p.MaxPassageLen)

	out := make([]domain.Passage, 0, len(chunks))
	for i, text := range chunks {
		part := pass
		part.Text = text
		if i > 0 {
			part.ID = fmt.Sprintf("%s_p%d", pass.ID, i+1)
		}
		out = append(out, part)
	}
	return out
}

// splitClauses cuts article text on "(n)" clause markers, keeping each
// marker with its clause. Text before the first marker is its own piece.
func splitClauses(text string) []string {
	marks := clauseRe.FindAllStringIndex(text, -1)
	if len(marks) == 0 {
		return []string{text}
	}

	var pieces []string
	if marks[0][0] > 0 {
		pieces = append(pieces, text[:marks[0][0]])
	}
	for i, m := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		pieces = append(pieces, text[m[0]:end])
	}
	return pieces
}

// packClauses greedily packs clauses into chunks of at most maxLen.
// A single clause over the limit is window-split with one eighth of
// maxLen carried over as overlap.
func packClauses(clauses []string, maxLen int) []string {
	var chunks []string
	var cur string

	flush := func() {
		if cur != "" {
			chunks = append(chunks, cur)
			cur = ""
		}
	}

	for _, clause := range clauses {
		if len(clause) > maxLen {
			flush()
			chunks = append(chunks, window(clause, maxLen, maxLen/8)...)
			continue
		}
		if len(cur)+len(clause) > maxLen {
			flush()
		}
		cur += clause
	}
	flush()
	return chunks
}

// window slices text into maxLen pieces, each starting overlap bytes
// before the end of the previous piece.
func window(text string, maxLen, overlap int) []string {
	var out []string
	step := maxLen - overlap
	for start := 0; start < len(text); start += step {
		end := start + maxLen
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		out = append(out, text[start:end])
	}
	return out
}
