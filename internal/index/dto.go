package index

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/datakita/pdpserve/internal/db"
	"github.com/datakita/pdpserve/internal/domain"
)

// Hash field names. Double-underscore fields are internal to the index;
// the rest are filterable metadata.
const (
	fieldContent = "__content"
	fieldVector  = "vector"
	fieldKind    = "kind"
	fieldBab     = "bab"
	fieldBabTtl  = "bab_title"
	fieldPasal   = "pasal"
	fieldIstilah = "istilah"
	fieldTopic   = "topic"
	fieldVersion = "version"
	fieldOffset  = "offset"
)

// returnFields are fetched on every query.
var returnFields = []string{
	fieldContent, fieldKind, fieldBab, fieldBabTtl,
	fieldPasal, fieldIstilah, fieldTopic, fieldOffset,
}

// buildHashFields flattens a passage and its vector into HSET fields.
func buildHashFields(p domain.Passage, vector []float32, version string) map[string]string {
	m := map[string]string{
		fieldContent: p.Text,
		fieldVector:  vectorToBytes(vector),
		fieldKind:    string(p.Kind),
		fieldVersion: version,
		fieldOffset:  strconv.Itoa(p.SourceOffset),
	}
	if p.Bab != "" {
		m[fieldBab] = p.Bab
	}
	if p.BabTitle != "" {
		m[fieldBabTtl] = p.BabTitle
	}
	if p.Pasal > 0 {
		m[fieldPasal] = strconv.Itoa(p.Pasal)
	}
	if p.Istilah != "" {
		m[fieldIstilah] = p.Istilah
	}
	if len(p.Topics) > 0 {
		topics := make([]string, len(p.Topics))
		for i, t := range p.Topics {
			topics[i] = string(t)
		}
		m[fieldTopic] = strings.Join(topics, ",")
	}
	return m
}

// parseHashFields reconstructs a passage from flat hash fields.
func parseHashFields(id string, fields map[string]string) domain.Passage {
	p := domain.Passage{
		ID:       id,
		Kind:     domain.PassageKind(fields[fieldKind]),
		Bab:      fields[fieldBab],
		BabTitle: fields[fieldBabTtl],
		Istilah:  fields[fieldIstilah],
		Text:     fields[fieldContent],
	}
	if v, err := strconv.Atoi(fields[fieldPasal]); err == nil {
		p.Pasal = v
	}
	if v, err := strconv.Atoi(fields[fieldOffset]); err == nil {
		p.SourceOffset = v
	}
	if raw := fields[fieldTopic]; raw != "" {
		for _, t := range strings.Split(raw, ",") {
			p.Topics = append(p.Topics, domain.Topic(t))
		}
	}
	return p
}

// filterTerms translates a domain filter into index-level predicates.
func filterTerms(f domain.Filter) []db.FilterTerm {
	var terms []db.FilterTerm
	if f.Kind != "" {
		terms = append(terms, db.FilterTerm{Field: fieldKind, Tag: string(f.Kind)})
	}
	if f.Bab != "" {
		terms = append(terms, db.FilterTerm{Field: fieldBab, Tag: f.Bab})
	}
	if f.Pasal > 0 {
		n := float64(f.Pasal)
		terms = append(terms, db.FilterTerm{Field: fieldPasal, Num: &n})
	}
	if f.Topic != "" {
		terms = append(terms, db.FilterTerm{Field: fieldTopic, Tag: string(f.Topic)})
	}
	return terms
}

// vectorToBytes serializes []float32 into 4-byte little-endian words.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
