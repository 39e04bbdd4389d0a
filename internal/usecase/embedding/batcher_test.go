package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/datakita/pdpserve/internal/domain"
	"github.com/datakita/pdpserve/internal/retry"
)

type flakyEmbedder struct {
	calls    int
	failures int
	batches  [][]string
}

func (f *flakyEmbedder) EmbedDocuments(_ context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("429 too many requests")
	}
	f.batches = append(f.batches, texts)
	out := make([]domain.EmbeddingResult, len(texts))
	for i, text := range texts {
		out[i] = domain.EmbeddingResult{Embedding: []float32{float32(len(text))}}
	}
	return out, nil
}

func (f *flakyEmbedder) EmbedQuery(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return res[0], nil
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestEmbedDocumentsPreservesOrderAcrossBatches(t *testing.T) {
	inner := &flakyEmbedder{}
	b := NewBatcher(inner, 2, fastPolicy(3), nil)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	results, err := b.EmbedDocuments(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}

	if len(results) != len(texts) {
		t.Fatalf("results = %d, want %d", len(results), len(texts))
	}
	for i, text := range texts {
		if results[i].Embedding[0] != float32(len(text)) {
			t.Errorf("results[%d] does not correspond to texts[%d]", i, i)
		}
	}
	if len(inner.batches) != 3 {
		t.Errorf("batches = %d, want 3", len(inner.batches))
	}
}

func TestEmbedQuerySucceedsOnThirdAttempt(t *testing.T) {
	inner := &flakyEmbedder{failures: 2}
	b := NewBatcher(inner, 10, fastPolicy(3), nil)

	_, err := b.EmbedQuery(context.Background(), "hak subjek data")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("attempts = %d, want exactly 3", inner.calls)
	}
}

func TestEmbedDocumentsExhaustsRetries(t *testing.T) {
	inner := &flakyEmbedder{failures: 10}
	b := NewBatcher(inner, 10, fastPolicy(3), nil)

	_, err := b.EmbedDocuments(context.Background(), []string{"x"})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("error = %v, want ErrEmbeddingUnavailable", err)
	}
	if inner.calls != 3 {
		t.Errorf("attempts = %d, want 3", inner.calls)
	}
}

type countMismatchEmbedder struct{}

func (countMismatchEmbedder) EmbedDocuments(_ context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	return make([]domain.EmbeddingResult, len(texts)-1), nil
}

func (countMismatchEmbedder) EmbedQuery(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("not used")
}

func TestEmbedDocumentsRejectsCountMismatch(t *testing.T) {
	b := NewBatcher(countMismatchEmbedder{}, 10, fastPolicy(1), nil)
	_, err := b.EmbedDocuments(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("error = %v, want ErrEmbeddingUnavailable", err)
	}
}
