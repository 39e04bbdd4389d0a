package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/datakita/pdpserve/internal/domain"
)

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type mockIndex struct {
	hits   []domain.Hit
	lastK  int
	lastF  domain.Filter
	called bool
}

func (m *mockIndex) Query(_ context.Context, _ []float32, k int, f domain.Filter) ([]domain.Hit, error) {
	m.called = true
	m.lastK = k
	m.lastF = f
	return m.hits, nil
}

func hit(id string, score float64) domain.Hit {
	return domain.Hit{
		Passage: domain.Passage{ID: id, Kind: domain.KindPasal, Text: "teks"},
		Score:   score,
	}
}

func TestRetrieveRanksAndFilters(t *testing.T) {
	idx := &mockIndex{hits: []domain.Hit{
		hit("pasal_3", 0.9), hit("pasal_7", 0.8), hit("pasal_9", 0.1),
	}}
	svc := New(&mockEmbedder{}, idx, 5, 0.3, nil)

	hits, err := svc.Retrieve(context.Background(), domain.Query{
		Text:   "hak akses data",
		Tool:   domain.ToolTanyaPDP,
		Filter: domain.Filter{Bab: "IV"},
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if idx.lastK != 5 {
		t.Errorf("k = %d, want default 5", idx.lastK)
	}
	if idx.lastF.Bab != "IV" {
		t.Errorf("filter bab = %q", idx.lastF.Bab)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2 (threshold drops pasal_9)", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores increase at %d", i)
		}
	}
}

func TestRetrieveUsesQueryTopK(t *testing.T) {
	idx := &mockIndex{}
	svc := New(&mockEmbedder{}, idx, 5, 0, nil)

	_, err := svc.Retrieve(context.Background(), domain.Query{Text: "x", TopK: 8})
	if err != nil {
		t.Fatal(err)
	}
	if idx.lastK != 8 {
		t.Errorf("k = %d, want 8", idx.lastK)
	}
}

func TestRetrieveEmptyBelowThreshold(t *testing.T) {
	idx := &mockIndex{hits: []domain.Hit{hit("pasal_1", 0.05), hit("pasal_2", 0.02)}}
	svc := New(&mockEmbedder{}, idx, 5, 0.5, nil)

	hits, err := svc.Retrieve(context.Background(), domain.Query{Text: "tidak relevan"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %d, want 0", len(hits))
	}
}

func TestRetrievePropagatesEmbeddingFailure(t *testing.T) {
	svc := New(&mockEmbedder{err: domain.ErrEmbeddingUnavailable}, &mockIndex{}, 5, 0, nil)

	_, err := svc.Retrieve(context.Background(), domain.Query{Text: "x"})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("error = %v, want ErrEmbeddingUnavailable", err)
	}
}
