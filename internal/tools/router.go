package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/datakita/pdpserve/internal/domain"
	"github.com/datakita/pdpserve/internal/metrics"
)

// Retriever is the read path consumed by the router.
type Retriever interface {
	Retrieve(ctx context.Context, q domain.Query) ([]domain.Hit, error)
}

// Synthesizer turns a retrieval into a grounded answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, q domain.Query, emphasis string, hits []domain.Hit) (domain.Answer, error)
}

// Args carries the optional per-tool inputs.
type Args struct {
	Pertanyaan  string
	Keyword     string
	Bab         string
	Pasal       int
	JumlahHasil int
	Istilah     string
	JenisSanksi string
}

// Router dispatches the six named tools to retrieval and synthesis
// with tool-specific filters and prompt emphases. Each invocation runs
// under the configured deadline; overruns fail with ErrRequestTimeout.
type Router struct {
	retriever Retriever
	synth     Synthesizer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRouter creates the tool router.
func NewRouter(retriever Retriever, synth Synthesizer, timeout time.Duration, logger *zap.Logger) *Router {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		retriever: retriever,
		synth:     synth,
		timeout:   timeout,
		logger:    logger,
	}
}

// Dispatch routes a named tool invocation. Unregistered names fail
// with ErrUnknownTool.
func (r *Router) Dispatch(ctx context.Context, name string, args Args) (domain.Answer, error) {
	tool, err := domain.ParseTool(name)
	if err != nil {
		return domain.Answer{}, err
	}

	switch tool {
	case domain.ToolTanyaPDP:
		return r.TanyaPDP(ctx, args.Pertanyaan)
	case domain.ToolCariPasal:
		return r.CariPasal(ctx, args.Keyword, args.Bab, args.Pasal, args.JumlahHasil)
	case domain.ToolDefinisiIstilah:
		return r.DefinisiIstilah(ctx, args.Istilah)
	case domain.ToolHakSubjekData:
		return r.HakSubjekData(ctx)
	case domain.ToolKewajibanPengendali:
		return r.KewajibanPengendali(ctx)
	case domain.ToolSanksiPelanggaran:
		return r.SanksiPelanggaran(ctx, args.JenisSanksi)
	default:
		return domain.Answer{}, fmt.Errorf("%w: %q", domain.ErrUnknownTool, name)
	}
}

// TanyaPDP answers a general question about the statute.
func (r *Router) TanyaPDP(ctx context.Context, pertanyaan string) (domain.Answer, error) {
	q := domain.Query{Text: pertanyaan, Tool: domain.ToolTanyaPDP}
	return r.run(ctx, q, emphasisTanyaPDP, nil)
}

// CariPasal locates articles by keyword, optionally narrowed to a
// chapter or an exact article number. The result count is clamped to
// 1..10 with a default of 5.
func (r *Router) CariPasal(ctx context.Context, keyword, bab string, pasal, jumlahHasil int) (domain.Answer, error) {
	if jumlahHasil <= 0 {
		jumlahHasil = 5
	}
	jumlahHasil = min(max(1, jumlahHasil), 10)

	q := domain.Query{
		Text: keyword,
		Tool: domain.ToolCariPasal,
		Filter: domain.Filter{
			Kind:  domain.KindPasal,
			Bab:   bab,
			Pasal: pasal,
		},
		TopK: jumlahHasil,
	}
	return r.run(ctx, q, emphasisCariPasal, nil)
}

// DefinisiIstilah looks a term up in the Pasal 1 definition entries
// first, then falls back to BAB I articles for terms defined in prose.
func (r *Router) DefinisiIstilah(ctx context.Context, istilah string) (domain.Answer, error) {
	q := domain.Query{
		Text:   istilah,
		Tool:   domain.ToolDefinisiIstilah,
		Filter: domain.Filter{Kind: domain.KindDefinisi},
		TopK:   2,
	}
	fallback := domain.Query{
		Text:   "definisi " + istilah + " adalah",
		Tool:   domain.ToolDefinisiIstilah,
		Filter: domain.Filter{Kind: domain.KindPasal, Bab: "I"},
		TopK:   3,
	}
	return r.runDual(ctx, q, fallback, 3, emphasisDefinisi)
}

// HakSubjekData enumerates data-subject rights, anchored to BAB IV.
func (r *Router) HakSubjekData(ctx context.Context) (domain.Answer, error) {
	q := domain.Query{
		Text:   "hak subjek data pribadi mendapatkan informasi akses menolak meminta hapus",
		Tool:   domain.ToolHakSubjekData,
		Filter: domain.Filter{Topic: domain.TopicRights, Bab: "IV"},
		TopK:   8,
	}
	return r.run(ctx, q, emphasisHak, func(q domain.Query) domain.Query {
		q.Filter.Bab = ""
		return q
	})
}

// KewajibanPengendali enumerates controller and processor duties,
// anchored to BAB VIII.
func (r *Router) KewajibanPengendali(ctx context.Context) (domain.Answer, error) {
	q := domain.Query{
		Text:   "kewajiban pengendali prosesor data pribadi wajib harus menjaga keamanan",
		Tool:   domain.ToolKewajibanPengendali,
		Filter: domain.Filter{Topic: domain.TopicObligations, Bab: "VIII"},
		TopK:   8,
	}
	return r.run(ctx, q, emphasisKewajiban, func(q domain.Query) domain.Query {
		q.Filter.Bab = ""
		return q
	})
}

// SanksiPelanggaran enumerates penalties. jenis narrows to
// administrative (BAB X) or criminal (BAB XIV) sanctions.
func (r *Router) SanksiPelanggaran(ctx context.Context, jenis string) (domain.Answer, error) {
	var text, bab string
	switch jenis {
	case "administratif":
		text = "sanksi administratif peringatan tertulis penghentian denda"
		bab = "X"
	case "pidana":
		text = "sanksi pidana penjara denda tahun"
		bab = "XIV"
	default:
		text = "sanksi pelanggaran pidana administratif denda penjara"
	}

	q := domain.Query{
		Text:   text,
		Tool:   domain.ToolSanksiPelanggaran,
		Filter: domain.Filter{Topic: domain.TopicSanctions, Bab: bab},
		TopK:   8,
	}
	return r.run(ctx, q, emphasisSanksi, func(q domain.Query) domain.Query {
		q.Filter.Bab = ""
		return q
	})
}

// run executes the retrieval-then-synthesis pipeline for one query.
// When relax is non-nil and the filtered retrieval comes back empty,
// the query is retried once with the relaxed filter before giving up.
func (r *Router) run(ctx context.Context, q domain.Query, emphasis string, relax func(domain.Query) domain.Query) (domain.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	answer, err := r.pipeline(ctx, q, emphasis, relax)
	r.observe(q.Tool, start, err)
	if err != nil {
		return domain.Answer{}, r.mapErr(q.Tool, err)
	}
	return answer, nil
}

func (r *Router) pipeline(ctx context.Context, q domain.Query, emphasis string, relax func(domain.Query) domain.Query) (domain.Answer, error) {
	hits, err := r.retriever.Retrieve(ctx, q)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(hits) == 0 && relax != nil {
		relaxed := relax(q)
		hits, err = r.retriever.Retrieve(ctx, relaxed)
		if err != nil {
			return domain.Answer{}, err
		}
	}

	metrics.RetrievalHits.WithLabelValues(string(q.Tool)).Observe(float64(len(hits)))
	return r.synth.Synthesize(ctx, q, emphasis, hits)
}

// runDual merges two retrievals (definition entries first), capped at
// limit, then synthesizes once.
func (r *Router) runDual(ctx context.Context, primary, secondary domain.Query, limit int, emphasis string) (domain.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	answer, err := r.dualPipeline(ctx, primary, secondary, limit, emphasis)
	r.observe(primary.Tool, start, err)
	if err != nil {
		return domain.Answer{}, r.mapErr(primary.Tool, err)
	}
	return answer, nil
}

func (r *Router) dualPipeline(ctx context.Context, primary, secondary domain.Query, limit int, emphasis string) (domain.Answer, error) {
	defHits, err := r.retriever.Retrieve(ctx, primary)
	if err != nil {
		return domain.Answer{}, err
	}
	pasalHits, err := r.retriever.Retrieve(ctx, secondary)
	if err != nil {
		return domain.Answer{}, err
	}

	seen := make(map[string]bool, len(defHits))
	merged := make([]domain.Hit, 0, limit)
	for _, hit := range append(defHits, pasalHits...) {
		if seen[hit.Passage.ID] {
			continue
		}
		seen[hit.Passage.ID] = true
		merged = append(merged, hit)
		if len(merged) == limit {
			break
		}
	}

	metrics.RetrievalHits.WithLabelValues(string(primary.Tool)).Observe(float64(len(merged)))
	return r.synth.Synthesize(ctx, primary, emphasis, merged)
}

// mapErr converts a deadline overrun into the stable timeout error;
// everything else propagates with its own error kind.
func (r *Router) mapErr(tool domain.Tool, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s exceeded %s", domain.ErrRequestTimeout, tool, r.timeout)
	}
	return err
}

func (r *Router) observe(tool domain.Tool, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		r.logger.Warn("tool invocation failed",
			zap.String("tool", string(tool)),
			zap.Error(err),
		)
	}
	metrics.ToolCallsTotal.WithLabelValues(string(tool), status).Inc()
	metrics.ToolCallDuration.WithLabelValues(string(tool)).Observe(time.Since(start).Seconds())
}
