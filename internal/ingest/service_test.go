package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/datakita/pdpserve/internal/domain"
)

type mockIndex struct {
	ensured  bool
	upserts  [][]domain.Passage
	versions []string
	purged   string
	removed  int
}

func (m *mockIndex) EnsureIndex(_ context.Context) error {
	m.ensured = true
	return nil
}

func (m *mockIndex) Upsert(_ context.Context, passages []domain.Passage, vectors [][]float32, version string) error {
	if len(passages) != len(vectors) {
		return errors.New("count mismatch")
	}
	m.upserts = append(m.upserts, passages)
	m.versions = append(m.versions, version)
	return nil
}

func (m *mockIndex) PurgeExcept(_ context.Context, keep string) (int, error) {
	m.purged = keep
	return m.removed, nil
}

func (m *mockIndex) Count(_ context.Context) (int, error) {
	n := 0
	for _, b := range m.upserts {
		n += len(b)
	}
	return n, nil
}

type mockEmbedder struct {
	calls int
	err   error
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.EmbeddingResult, len(texts))
	for i := range texts {
		out[i] = domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}
	}
	return out, nil
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := m.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return res[0], nil
}

func corpus(n int) []domain.Passage {
	out := make([]domain.Passage, n)
	for i := range out {
		out[i] = testPasal(i + 1)
	}
	return out
}

func testPasal(n int) domain.Passage {
	return domain.Passage{
		ID:    fmt.Sprintf("pasal_%d", n),
		Kind:  domain.KindPasal,
		Bab:   "IV",
		Pasal: n,
		Text:  "Subjek Data Pribadi berhak atas informasi mengenai pemrosesan.",
	}
}

func TestRunBatchesAndPurges(t *testing.T) {
	idx := &mockIndex{removed: 2}
	emb := &mockEmbedder{}
	svc := NewService(idx, emb, nil).WithBatchSize(10)

	passages := corpus(25)
	report, err := svc.Run(context.Background(), passages)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !idx.ensured {
		t.Error("index was not ensured before upsert")
	}
	if emb.calls != 3 {
		t.Errorf("embedding batches = %d, want 3", emb.calls)
	}
	if len(idx.upserts) != 3 || len(idx.upserts[2]) != 5 {
		t.Errorf("upsert batches = %d (last %d), want 3 (last 5)", len(idx.upserts), len(idx.upserts[len(idx.upserts)-1]))
	}
	if idx.purged != report.Version {
		t.Errorf("purged version %q, report version %q", idx.purged, report.Version)
	}
	if report.Removed != 2 || report.Passages != 25 || report.IndexSize != 25 {
		t.Errorf("report = %+v", report)
	}
	if report.RunID == "" {
		t.Error("report has no run id")
	}
}

func TestRunVersionIsDeterministic(t *testing.T) {
	a := CorpusVersion(corpus(5))
	b := CorpusVersion(corpus(5))
	if a != b {
		t.Errorf("same corpus produced versions %q and %q", a, b)
	}

	changed := corpus(5)
	changed[0].Text += " tambahan"
	if CorpusVersion(changed) == a {
		t.Error("changed corpus produced identical version")
	}
}

func TestRunRejectsEmptyCorpus(t *testing.T) {
	svc := NewService(&mockIndex{}, &mockEmbedder{}, nil)
	_, err := svc.Run(context.Background(), nil)
	if !errors.Is(err, domain.ErrMalformedSource) {
		t.Fatalf("Run() error = %v, want ErrMalformedSource", err)
	}
}

func TestRunPropagatesEmbeddingFailure(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrEmbeddingUnavailable}
	svc := NewService(&mockIndex{}, emb, nil)
	_, err := svc.Run(context.Background(), corpus(3))
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("Run() error = %v, want ErrEmbeddingUnavailable", err)
	}
}
