package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datakita/pdpserve/internal/domain"
	"github.com/datakita/pdpserve/internal/retry"
)

// NoMatchText is the fixed answer for an empty retrieval. The
// generative API is never called in that case.
const NoMatchText = "Maaf, saya tidak menemukan informasi yang relevan dalam UU PDP untuk pertanyaan Anda."

const systemInstruction = "Anda adalah asisten hukum untuk UU No. 27 Tahun 2022 tentang " +
	"Perlindungan Data Pribadi (UU PDP). Jawab HANYA berdasarkan kutipan pasal yang " +
	"diberikan. Jangan menambahkan informasi di luar kutipan. Sebut id pasal " +
	"(misalnya [pasal_8]) untuk setiap pernyataan. Jika kutipan tidak menjawab " +
	"pertanyaan, katakan bahwa informasinya tidak ditemukan dalam UU PDP."

// maxContextChars caps the total passage text placed in a prompt.
const maxContextChars = 16000

// Synthesizer turns retrieved passages into a grounded answer via the
// generative API, with bounded retry on transient failures.
type Synthesizer struct {
	generator domain.Generator
	policy    retry.Policy
	logger    *zap.Logger
}

// New creates a synthesizer.
func New(generator domain.Generator, policy retry.Policy, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{generator: generator, policy: policy, logger: logger}
}

// Synthesize produces an answer from the query and its retrieval. An
// empty retrieval short-circuits to the fixed no-match answer without
// calling the generative API. API failure after bounded retries fails
// with ErrSynthesisUnavailable.
func (s *Synthesizer) Synthesize(ctx context.Context, q domain.Query, emphasis string, hits []domain.Hit) (domain.Answer, error) {
	if len(hits) == 0 {
		return domain.Answer{Text: NoMatchText, Grounded: false}, nil
	}

	prompt := buildPrompt(q, emphasis, hits)

	var result domain.GenerationResult
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = s.generator.Generate(ctx, systemInstruction, prompt)
		return innerErr
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: %w", domain.ErrSynthesisUnavailable, err)
	}

	citations := make([]string, len(hits))
	for i, hit := range hits {
		citations[i] = hit.Passage.ID
	}

	s.logger.Debug("answer synthesized",
		zap.String("tool", string(q.Tool)),
		zap.Int("passages", len(hits)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return domain.Answer{
		Text:      result.Text,
		Citations: citations,
		Grounded:  true,
	}, nil
}

// buildPrompt assembles the grounded prompt: cited passage blocks, the
// tool's emphasis, and the user question.
func buildPrompt(q domain.Query, emphasis string, hits []domain.Hit) string {
	var sb strings.Builder
	sb.WriteString("Kutipan UU PDP:\n\n")

	total := 0
	for _, hit := range hits {
		block := fmt.Sprintf("[%s] %s\n%s", hit.Passage.ID, hit.Passage.Reference(), hit.Passage.Text)
		if total+len(block) > maxContextChars {
			remaining := maxContextChars - total
			if remaining > 100 {
				sb.WriteString(block[:remaining])
				sb.WriteString("...")
				sb.WriteString("\n\n---\n\n")
			}
			break
		}
		sb.WriteString(block)
		sb.WriteString("\n\n---\n\n")
		total += len(block)
	}

	if emphasis != "" {
		sb.WriteString(emphasis)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Pertanyaan: ")
	sb.WriteString(q.Text)
	return sb.String()
}
