package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/datakita/pdpserve/internal/domain"
)

var (
	// Chapter header: "BAB IV" on one line, an upper-case title on the next.
	babRe = regexp.MustCompile(`BAB\s+([IVXLCDM]+)[ \t]*\n[ \t]*([A-Z][A-Z ,]+[A-Z])`)

	// Article header: "Pasal 12" on its own line. Content runs until the
	// next article or chapter header.
	pasalRe = regexp.MustCompile(`Pasal\s+(\d+)[ \t]*\n`)

	// Pasal 1 body, bounded by the Pasal 2 header.
	pasal1Re = regexp.MustCompile(`(?s)Pasal\s+1[ \t]*\n(.*?)\nPasal\s+2\b`)

	// Numbered definition entry inside Pasal 1: "7. Pengendali Data Pribadi adalah ...".
	definitionRe = regexp.MustCompile(`(\d+)\.\s+([A-Za-z][A-Za-z ]*?)\s+adalah\s+`)

	pageMarkerRe = regexp.MustCompile(`--- Halaman \d+ ---`)
	spaceRe      = regexp.MustCompile(`\s+`)
	strayRe      = regexp.MustCompile(`[^\p{L}\p{N}\s.,;:\-()"'!?/%]`)
)

// Parser turns extracted statute text into retrieval passages. Articles
// (Pasal) become one passage each, split further only when a single
// article exceeds MaxPassageLen. Pasal 1's numbered definitions become
// dedicated definition passages.
type Parser struct {
	// MinPassageLen drops fragments too short to be a real article body.
	MinPassageLen int
	// MaxPassageLen caps a single passage; longer articles are split on
	// clause boundaries, see chunk.go.
	MaxPassageLen int
}

// DefaultParser matches the sizing used for UU PDP ingestion.
func DefaultParser() *Parser {
	return &Parser{MinPassageLen: 50, MaxPassageLen: 2000}
}

// Parse extracts all passages from statute text. It fails with
// ErrMalformedSource when no article markers are present at all.
func (p *Parser) Parse(text string) ([]domain.Passage, error) {
	babs := babRe.FindAllStringSubmatchIndex(text, -1)
	if len(babs) == 0 {
		return nil, fmt.Errorf("%w: no BAB markers in source text", domain.ErrMalformedSource)
	}

	var passages []domain.Passage
	for i, bab := range babs {
		roman := text[bab[2]:bab[3]]
		title := strings.TrimSpace(text[bab[4]:bab[5]])

		segStart := bab[1]
		segEnd := len(text)
		if i+1 < len(babs) {
			segEnd = babs[i+1][0]
		}
		segment := text[segStart:segEnd]

		passages = append(passages, p.parseBab(segment, segStart, roman, title)...)
	}

	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: no Pasal markers in source text", domain.ErrMalformedSource)
	}

	defs := p.parseDefinitions(text)
	return append(passages, defs...), nil
}

func (p *Parser) parseBab(segment string, base int, roman, title string) []domain.Passage {
	headers := pasalRe.FindAllStringSubmatchIndex(segment, -1)

	var out []domain.Passage
	for i, h := range headers {
		num, err := strconv.Atoi(segment[h[2]:h[3]])
		if err != nil {
			continue
		}

		end := len(segment)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		content := CleanText(segment[h[1]:end])
		if len(content) < p.MinPassageLen {
			continue
		}

		pass := domain.Passage{
			ID:           fmt.Sprintf("pasal_%d", num),
			Kind:         domain.KindPasal,
			Bab:          roman,
			BabTitle:     title,
			Pasal:        num,
			Topics:       tagTopics(roman, content),
			Text:         content,
			SourceOffset: base + h[0],
		}
		out = append(out, p.split(pass)...)
	}
	return out
}

// parseDefinitions splits Pasal 1's numbered term definitions into
// standalone passages carrying the defined term as istilah metadata.
func (p *Parser) parseDefinitions(text string) []domain.Passage {
	m := pasal1Re.FindStringSubmatchIndex(text)
	if m == nil {
		return nil
	}
	body := text[m[2]:m[3]]

	entries := definitionRe.FindAllStringSubmatchIndex(body, -1)
	var out []domain.Passage
	for i, e := range entries {
		num := body[e[2]:e[3]]
		term := strings.TrimSpace(body[e[4]:e[5]])

		end := len(body)
		if i+1 < len(entries) {
			end = entries[i+1][0]
		}
		def := CleanText(body[e[1]:end])
		if def == "" {
			continue
		}

		out = append(out, domain.Passage{
			ID:           "definisi_" + num,
			Kind:         domain.KindDefinisi,
			Bab:          "I",
			BabTitle:     "KETENTUAN UMUM",
			Pasal:        1,
			Istilah:      term,
			Topics:       []domain.Topic{domain.TopicDefinitions},
			Text:         term + " adalah " + def,
			SourceOffset: m[2] + e[0],
		})
	}
	return out
}

// CleanText collapses whitespace and strips page markers and stray
// glyphs left over from PDF extraction.
func CleanText(text string) string {
	text = pageMarkerRe.ReplaceAllString(text, "")
	text = strayRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Chapter-level topic assignment follows the statute's structure:
// BAB IV enumerates data-subject rights, BAB VIII controller and
// processor obligations, BAB X prohibitions with administrative
// sanctions, BAB XIV criminal provisions. Keyword tags catch articles
// outside their home chapter.
func tagTopics(roman, content string) []domain.Topic {
	set := map[domain.Topic]bool{}
	switch roman {
	case "I":
		set[domain.TopicDefinitions] = true
	case "IV":
		set[domain.TopicRights] = true
	case "VIII":
		set[domain.TopicObligations] = true
	case "X", "XIV":
		set[domain.TopicSanctions] = true
	}

	lower := strings.ToLower(content)
	if strings.Contains(lower, "berhak") {
		set[domain.TopicRights] = true
	}
	if strings.Contains(lower, "wajib") {
		set[domain.TopicObligations] = true
	}
	if strings.Contains(lower, "sanksi") || strings.Contains(lower, "pidana") ||
		strings.Contains(lower, "denda") {
		set[domain.TopicSanctions] = true
	}

	out := make([]domain.Topic, 0, len(set))
	for _, t := range []domain.Topic{
		domain.TopicDefinitions, domain.TopicRights,
		domain.TopicObligations, domain.TopicSanctions,
	} {
		if set[t] {
			out = append(out, t)
		}
	}
	return out
}
