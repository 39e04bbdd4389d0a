package domain

import "fmt"

// PassageKind distinguishes the two passage types in the corpus.
type PassageKind string

const (
	// KindPasal is an article (Pasal) passage.
	KindPasal PassageKind = "pasal"
	// KindDefinisi is a definition entry extracted from Pasal 1.
	KindDefinisi PassageKind = "definisi"
)

// Topic is a thematic tag attached to passages at ingestion time.
type Topic string

const (
	TopicDefinitions Topic = "definitions"
	TopicRights      Topic = "rights"
	TopicObligations Topic = "obligations"
	TopicSanctions   Topic = "sanctions"
)

// Passage is the unit of retrieval: an addressable chunk of the statute.
// Passages are created during ingestion and immutable afterwards; a full
// re-ingestion replaces the corpus version as a whole.
type Passage struct {
	// ID is unique within a corpus version. Deterministic, derived from
	// the article number (and part index for split articles), so
	// re-ingestion of identical input yields identical ids.
	ID string

	Kind PassageKind

	// Bab is the roman-numeral chapter the passage belongs to.
	Bab string
	// BabTitle is the chapter heading.
	BabTitle string
	// Pasal is the article number; 0 for passages without one.
	Pasal int

	// Istilah is the defined term, set only on definition passages.
	Istilah string

	Topics []Topic

	// Text is the passage body. Never empty for a valid passage.
	Text string

	// SourceOffset is the rune offset of the passage in the extracted
	// source text.
	SourceOffset int
}

// Reference renders the citation string used in answers, e.g.
// "BAB IV - HAK SUBJEK DATA PRIBADI, Pasal 8".
func (p Passage) Reference() string {
	switch {
	case p.Kind == KindDefinisi:
		return fmt.Sprintf("Pasal 1 (definisi: %s)", p.Istilah)
	case p.Bab != "" && p.BabTitle != "":
		return fmt.Sprintf("BAB %s - %s, Pasal %d", p.Bab, p.BabTitle, p.Pasal)
	case p.Pasal > 0:
		return fmt.Sprintf("Pasal %d", p.Pasal)
	default:
		return p.ID
	}
}

// HasTopic reports whether the passage carries the given topic tag.
func (p Passage) HasTopic(t Topic) bool {
	for _, have := range p.Topics {
		if have == t {
			return true
		}
	}
	return false
}

// Validate checks the passage invariants.
func (p Passage) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("passage id is required")
	}
	if p.Text == "" {
		return fmt.Errorf("passage %s: text is empty", p.ID)
	}
	switch p.Kind {
	case KindPasal, KindDefinisi:
	default:
		return fmt.Errorf("passage %s: unknown kind %q", p.ID, p.Kind)
	}
	return nil
}
