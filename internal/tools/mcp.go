package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/datakita/pdpserve/internal/domain"
)

type tanyaPDPInput struct {
	Pertanyaan string `json:"pertanyaan" jsonschema:"required,Pertanyaan tentang UU PDP dalam Bahasa Indonesia"`
}

type cariPasalInput struct {
	Keyword     string `json:"keyword" jsonschema:"required,Kata kunci atau topik yang dicari"`
	Bab         string `json:"bab,omitempty" jsonschema:"Filter berdasarkan BAB (contoh: I, II, IV)"`
	Pasal       int    `json:"pasal,omitempty" jsonschema:"Filter berdasarkan nomor pasal"`
	JumlahHasil int    `json:"jumlah_hasil,omitempty" jsonschema:"Jumlah pasal yang dikembalikan (default 5, maksimum 10)"`
}

type definisiIstilahInput struct {
	Istilah string `json:"istilah" jsonschema:"required,Istilah yang ingin dicari definisinya"`
}

type hakSubjekDataInput struct{}

type kewajibanPengendaliInput struct{}

type sanksiPelanggaranInput struct {
	JenisSanksi string `json:"jenis_sanksi,omitempty" jsonschema:"Jenis sanksi: administratif atau pidana (kosong untuk semua)"`
}

type answerOutput struct {
	Jawaban   string   `json:"jawaban" jsonschema:"Jawaban berdasarkan isi UU PDP"`
	Referensi []string `json:"referensi,omitempty" jsonschema:"Id pasal yang dikutip"`
}

// RegisterMCP attaches the six tools to an MCP server.
func RegisterMCP(srv *mcp.Server, router *Router) {
	mcp.AddTool(srv, &mcp.Tool{
		Name: "tanya_pdp",
		Description: "Menjawab pertanyaan umum tentang UU Perlindungan Data Pribadi " +
			"(UU No. 27 Tahun 2022): ketentuan umum, hak subjek data, kewajiban " +
			"pengendali, sanksi, transfer data, dan topik lainnya.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in tanyaPDPInput) (*mcp.CallToolResult, answerOutput, error) {
		return toResult(router.TanyaPDP(ctx, in.Pertanyaan))
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name: "cari_pasal",
		Description: "Mencari pasal dalam UU PDP berdasarkan keyword atau topik, " +
			"dengan filter opsional BAB atau nomor pasal.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in cariPasalInput) (*mcp.CallToolResult, answerOutput, error) {
		return toResult(router.CariPasal(ctx, in.Keyword, in.Bab, in.Pasal, in.JumlahHasil))
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name: "definisi_istilah",
		Description: "Mencari definisi istilah hukum dalam UU PDP, misalnya Data " +
			"Pribadi, Subjek Data Pribadi, Pengendali Data Pribadi, atau Persetujuan.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in definisiIstilahInput) (*mcp.CallToolResult, answerOutput, error) {
		return toResult(router.DefinisiIstilah(ctx, in.Istilah))
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "hak_subjek_data",
		Description: "Menjelaskan hak-hak subjek data pribadi menurut UU No. 27 Tahun 2022.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ hakSubjekDataInput) (*mcp.CallToolResult, answerOutput, error) {
		return toResult(router.HakSubjekData(ctx))
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kewajiban_pengendali",
		Description: "Menjelaskan kewajiban pengendali dan prosesor data pribadi menurut UU PDP.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ kewajibanPengendaliInput) (*mcp.CallToolResult, answerOutput, error) {
		return toResult(router.KewajibanPengendali(ctx))
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name: "sanksi_pelanggaran",
		Description: "Menjelaskan sanksi pelanggaran UU PDP, administratif maupun " +
			"pidana.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in sanksiPelanggaranInput) (*mcp.CallToolResult, answerOutput, error) {
		return toResult(router.SanksiPelanggaran(ctx, in.JenisSanksi))
	})
}

// toResult maps a tool answer onto the MCP wire shape. Errors are
// returned as-is; the SDK renders them as tool failures.
func toResult(answer domain.Answer, err error) (*mcp.CallToolResult, answerOutput, error) {
	if err != nil {
		return nil, answerOutput{}, err
	}
	out := answerOutput{Jawaban: answer.Text, Referensi: answer.Citations}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: answer.Text}},
	}, out, nil
}
