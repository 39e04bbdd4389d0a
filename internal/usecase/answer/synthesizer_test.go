package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/datakita/pdpserve/internal/domain"
	"github.com/datakita/pdpserve/internal/retry"
)

type mockGenerator struct {
	calls    int
	failures int
	system   string
	prompt   string
}

func (m *mockGenerator) Generate(_ context.Context, system, prompt string) (domain.GenerationResult, error) {
	m.calls++
	if m.calls <= m.failures {
		return domain.GenerationResult{}, errors.New("503 service unavailable")
	}
	m.system = system
	m.prompt = prompt
	return domain.GenerationResult{Text: "Berdasarkan [pasal_8], subjek data berhak menghapus datanya.", TotalTokens: 42}, nil
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func testHits() []domain.Hit {
	return []domain.Hit{
		{
			Passage: domain.Passage{
				ID: "pasal_8", Kind: domain.KindPasal,
				Bab: "IV", BabTitle: "HAK SUBJEK DATA PRIBADI", Pasal: 8,
				Text: "Subjek Data Pribadi berhak menghapus Data Pribadi tentang dirinya.",
			},
			Score: 0.9,
		},
		{
			Passage: domain.Passage{
				ID: "pasal_9", Kind: domain.KindPasal,
				Bab: "IV", BabTitle: "HAK SUBJEK DATA PRIBADI", Pasal: 9,
				Text: "Subjek Data Pribadi berhak menarik kembali persetujuan.",
			},
			Score: 0.8,
		},
	}
}

func TestSynthesizeGroundsAndCites(t *testing.T) {
	gen := &mockGenerator{}
	s := New(gen, fastPolicy(3), nil)

	q := domain.Query{Text: "Apakah saya bisa menghapus data saya?", Tool: domain.ToolTanyaPDP}
	ans, err := s.Synthesize(context.Background(), q, "", testHits())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if !ans.Grounded {
		t.Error("answer not marked grounded")
	}
	if len(ans.Citations) != 2 || ans.Citations[0] != "pasal_8" || ans.Citations[1] != "pasal_9" {
		t.Errorf("citations = %v", ans.Citations)
	}
	if !strings.Contains(gen.prompt, "[pasal_8] BAB IV - HAK SUBJEK DATA PRIBADI, Pasal 8") {
		t.Errorf("prompt misses passage block:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, q.Text) {
		t.Error("prompt misses the question")
	}
	if !strings.Contains(gen.system, "HANYA berdasarkan kutipan") {
		t.Errorf("system instruction = %q", gen.system)
	}
}

func TestSynthesizeEmptyRetrievalSkipsGenerator(t *testing.T) {
	gen := &mockGenerator{}
	s := New(gen, fastPolicy(3), nil)

	ans, err := s.Synthesize(context.Background(), domain.Query{Text: "x"}, "", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times on empty retrieval", gen.calls)
	}
	if ans.Text != NoMatchText || ans.Grounded || len(ans.Citations) != 0 {
		t.Errorf("answer = %+v", ans)
	}
}

func TestSynthesizeRetriesTransientFailures(t *testing.T) {
	gen := &mockGenerator{failures: 2}
	s := New(gen, fastPolicy(3), nil)

	_, err := s.Synthesize(context.Background(), domain.Query{Text: "x"}, "", testHits())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if gen.calls != 3 {
		t.Errorf("attempts = %d, want 3", gen.calls)
	}
}

func TestSynthesizeExhaustedRetriesFail(t *testing.T) {
	gen := &mockGenerator{failures: 10}
	s := New(gen, fastPolicy(2), nil)

	_, err := s.Synthesize(context.Background(), domain.Query{Text: "x"}, "", testHits())
	if !errors.Is(err, domain.ErrSynthesisUnavailable) {
		t.Fatalf("error = %v, want ErrSynthesisUnavailable", err)
	}
}

func TestBuildPromptIncludesEmphasis(t *testing.T) {
	q := domain.Query{Text: "hak saya apa saja", Tool: domain.ToolHakSubjekData}
	prompt := buildPrompt(q, "Sebutkan hak-hak secara berurutan.", testHits())
	if !strings.Contains(prompt, "Sebutkan hak-hak secara berurutan.") {
		t.Error("prompt misses emphasis")
	}
	if !strings.HasSuffix(prompt, "Pertanyaan: hak saya apa saja") {
		t.Errorf("prompt tail = %q", prompt[len(prompt)-60:])
	}
}
