package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/datakita/pdpserve/internal/domain"
)

// KnowledgeBase is the JSON interchange format between the extract and
// ingest steps, so a parsed corpus can be inspected and re-ingested
// without re-reading the PDF.
type KnowledgeBase struct {
	Metadata KnowledgeMetadata  `json:"metadata"`
	Pasal    []passageRecord    `json:"pasal"`
	Definisi []definitionRecord `json:"definisi"`
}

type KnowledgeMetadata struct {
	Source        string `json:"source"`
	TotalPasal    int    `json:"total_pasal"`
	TotalDefinisi int    `json:"total_definisi"`
}

type passageRecord struct {
	ID            string   `json:"id"`
	Bab           string   `json:"bab"`
	BabTitle      string   `json:"bab_title"`
	Pasal         int      `json:"pasal"`
	Content       string   `json:"content"`
	FullReference string   `json:"full_reference"`
	Topics        []string `json:"topics,omitempty"`
	SourceOffset  int      `json:"source_offset,omitempty"`
}

type definitionRecord struct {
	ID           string `json:"id"`
	Istilah      string `json:"istilah"`
	Definisi     string `json:"definisi"`
	Sumber       string `json:"sumber"`
	SourceOffset int    `json:"source_offset,omitempty"`
}

// NewKnowledgeBase packs parsed passages into the interchange format.
func NewKnowledgeBase(source string, passages []domain.Passage) *KnowledgeBase {
	kb := &KnowledgeBase{Metadata: KnowledgeMetadata{Source: source}}
	for _, p := range passages {
		switch p.Kind {
		case domain.KindDefinisi:
			kb.Definisi = append(kb.Definisi, definitionRecord{
				ID:           p.ID,
				Istilah:      p.Istilah,
				Definisi:     p.Text,
				Sumber:       "Pasal 1 " + source,
				SourceOffset: p.SourceOffset,
			})
		default:
			topics := make([]string, len(p.Topics))
			for i, t := range p.Topics {
				topics[i] = string(t)
			}
			kb.Pasal = append(kb.Pasal, passageRecord{
				ID:            p.ID,
				Bab:           p.Bab,
				BabTitle:      p.BabTitle,
				Pasal:         p.Pasal,
				Content:       p.Text,
				FullReference: p.Reference(),
				Topics:        topics,
				SourceOffset:  p.SourceOffset,
			})
		}
	}
	kb.Metadata.TotalPasal = len(kb.Pasal)
	kb.Metadata.TotalDefinisi = len(kb.Definisi)
	return kb
}

// Passages converts the knowledge base back into domain passages.
func (kb *KnowledgeBase) Passages() []domain.Passage {
	out := make([]domain.Passage, 0, len(kb.Pasal)+len(kb.Definisi))
	for _, r := range kb.Pasal {
		topics := make([]domain.Topic, len(r.Topics))
		for i, t := range r.Topics {
			topics[i] = domain.Topic(t)
		}
		out = append(out, domain.Passage{
			ID:           r.ID,
			Kind:         domain.KindPasal,
			Bab:          r.Bab,
			BabTitle:     r.BabTitle,
			Pasal:        r.Pasal,
			Topics:       topics,
			Text:         r.Content,
			SourceOffset: r.SourceOffset,
		})
	}
	for _, r := range kb.Definisi {
		out = append(out, domain.Passage{
			ID:           r.ID,
			Kind:         domain.KindDefinisi,
			Bab:          "I",
			BabTitle:     "KETENTUAN UMUM",
			Pasal:        1,
			Istilah:      r.Istilah,
			Topics:       []domain.Topic{domain.TopicDefinitions},
			Text:         r.Definisi,
			SourceOffset: r.SourceOffset,
		})
	}
	return out
}

// WriteFile saves the knowledge base as indented JSON.
func (kb *KnowledgeBase) WriteFile(path string) error {
	data, err := json.MarshalIndent(kb, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal knowledge base: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write knowledge base: %w", err)
	}
	return nil
}

// LoadKnowledgeBase reads a knowledge base saved by WriteFile. A file
// with no passages at all fails with ErrMalformedSource.
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	var kb KnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("%w: parse knowledge base: %w", domain.ErrMalformedSource, err)
	}
	if len(kb.Pasal) == 0 && len(kb.Definisi) == 0 {
		return nil, fmt.Errorf("%w: knowledge base %s is empty", domain.ErrMalformedSource, path)
	}
	return &kb, nil
}
