package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/datakita/pdpserve/internal/domain"
)

const sampleStatute = `UNDANG-UNDANG REPUBLIK INDONESIA
NOMOR 27 TAHUN 2022
TENTANG PERLINDUNGAN DATA PRIBADI

BAB I
KETENTUAN UMUM

Pasal 1
Dalam Undang-Undang ini yang dimaksud dengan:
1. Data Pribadi adalah data tentang orang perseorangan yang teridentifikasi atau dapat diidentifikasi secara tersendiri atau dikombinasi dengan informasi lainnya.
2. Subjek Data Pribadi adalah orang perseorangan yang pada dirinya melekat Data Pribadi.
3. Pengendali Data Pribadi adalah setiap orang, badan publik, dan organisasi internasional yang bertindak menentukan tujuan dan melakukan kendali pemrosesan Data Pribadi.

Pasal 2
(1) Undang-Undang ini berlaku untuk Setiap Orang, Badan Publik, dan Organisasi Internasional yang melakukan perbuatan hukum sebagaimana diatur dalam Undang-Undang ini.
(2) Ketentuan sebagaimana dimaksud pada ayat (1) berlaku di wilayah hukum Negara Kesatuan Republik Indonesia.

BAB IV
HAK SUBJEK DATA PRIBADI

Pasal 8
Subjek Data Pribadi berhak mengakhiri pemrosesan, menghapus, atau memusnahkan Data Pribadi tentang dirinya sesuai dengan ketentuan peraturan perundang-undangan.

BAB VIII
KEWAJIBAN PENGENDALI DATA PRIBADI

Pasal 20
(1) Pengendali Data Pribadi wajib memiliki dasar pemrosesan Data Pribadi.
(2) Dasar pemrosesan Data Pribadi sebagaimana dimaksud pada ayat (1) meliputi persetujuan yang sah secara eksplisit dari Subjek Data Pribadi.
`

func TestParseExtractsPasalWithBabContext(t *testing.T) {
	passages, err := DefaultParser().Parse(sampleStatute)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	byID := make(map[string]domain.Passage, len(passages))
	for _, p := range passages {
		byID[p.ID] = p
	}

	p8, ok := byID["pasal_8"]
	if !ok {
		t.Fatal("pasal_8 missing")
	}
	if p8.Bab != "IV" || p8.BabTitle != "HAK SUBJEK DATA PRIBADI" {
		t.Errorf("pasal_8 bab = %q / %q", p8.Bab, p8.BabTitle)
	}
	if !strings.Contains(p8.Text, "berhak") {
		t.Errorf("pasal_8 text = %q", p8.Text)
	}
	if got := p8.Reference(); got != "BAB IV - HAK SUBJEK DATA PRIBADI, Pasal 8" {
		t.Errorf("Reference() = %q", got)
	}

	p20, ok := byID["pasal_20"]
	if !ok {
		t.Fatal("pasal_20 missing")
	}
	if !p20.HasTopic(domain.TopicObligations) {
		t.Errorf("pasal_20 topics = %v, want obligations", p20.Topics)
	}
}

func TestParseTagsTopicsByChapterAndKeyword(t *testing.T) {
	passages, err := DefaultParser().Parse(sampleStatute)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for _, p := range passages {
		switch p.ID {
		case "pasal_8":
			if !p.HasTopic(domain.TopicRights) {
				t.Errorf("pasal_8 topics = %v, want rights", p.Topics)
			}
		case "pasal_20":
			if !p.HasTopic(domain.TopicObligations) {
				t.Errorf("pasal_20 topics = %v, want obligations", p.Topics)
			}
		}
	}
}

func TestParseExtractsDefinitions(t *testing.T) {
	passages, err := DefaultParser().Parse(sampleStatute)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var defs []domain.Passage
	for _, p := range passages {
		if p.Kind == domain.KindDefinisi {
			defs = append(defs, p)
		}
	}
	if len(defs) != 3 {
		t.Fatalf("definitions = %d, want 3", len(defs))
	}

	first := defs[0]
	if first.ID != "definisi_1" || first.Istilah != "Data Pribadi" {
		t.Errorf("first definition = %q / %q", first.ID, first.Istilah)
	}
	if !first.HasTopic(domain.TopicDefinitions) {
		t.Errorf("definition topics = %v", first.Topics)
	}
	if !strings.Contains(first.Text, "Data Pribadi adalah") {
		t.Errorf("definition text = %q", first.Text)
	}
}

func TestParseFailsWithoutArticleMarkers(t *testing.T) {
	_, err := DefaultParser().Parse("Dokumen ini bukan undang-undang dan tidak memiliki struktur pasal.")
	if !errors.Is(err, domain.ErrMalformedSource) {
		t.Fatalf("Parse() error = %v, want ErrMalformedSource", err)
	}
}

func TestParseSkipsShortFragments(t *testing.T) {
	text := "BAB I\nKETENTUAN UMUM\n\nPasal 1\nPendek.\n"
	_, err := DefaultParser().Parse(text)
	if !errors.Is(err, domain.ErrMalformedSource) {
		t.Fatalf("Parse() error = %v, want ErrMalformedSource", err)
	}
}

func TestCleanText(t *testing.T) {
	in := "Data  Pribadi\n--- Halaman 3 ---\nadalah   data…  tentang\torang."
	got := CleanText(in)
	want := "Data Pribadi adalah data tentang orang."
	if got != want {
		t.Errorf("CleanText() = %q, want %q", got, want)
	}
}

func TestSplitPrefersClauseBoundaries(t *testing.T) {
	p := &Parser{MinPassageLen: 10, MaxPassageLen: 120}

	clause := func(n int) string {
		return "(" + string(rune('0'+n)) + ") " + strings.Repeat("kata ", 15)
	}
	pass := domain.Passage{
		ID:   "pasal_99",
		Kind: domain.KindPasal,
		Text: clause(1) + clause(2) + clause(3),
	}

	parts := p.split(pass)
	if len(parts) < 2 {
		t.Fatalf("split produced %d parts, want at least 2", len(parts))
	}
	if parts[0].ID != "pasal_99" || parts[1].ID != "pasal_99_p2" {
		t.Errorf("part ids = %q, %q", parts[0].ID, parts[1].ID)
	}
	for i, part := range parts {
		if len(part.Text) > p.MaxPassageLen {
			t.Errorf("part %d length %d exceeds max %d", i, len(part.Text), p.MaxPassageLen)
		}
	}
	// clause markers survive as chunk openers after the first chunk
	if !strings.HasPrefix(parts[1].Text, "(") {
		t.Errorf("part 2 does not start on a clause boundary: %q", parts[1].Text[:10])
	}
}

func TestWindowOverlaps(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30)
	chunks := window(text, 100, 12)
	if len(chunks) < 3 {
		t.Fatalf("chunks = %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-12:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not overlap previous tail", i)
		}
	}
}
