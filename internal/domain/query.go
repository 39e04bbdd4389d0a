package domain

import "fmt"

// Tool is one of the named tools exposed by the service.
type Tool string

const (
	ToolTanyaPDP            Tool = "tanya_pdp"
	ToolCariPasal           Tool = "cari_pasal"
	ToolDefinisiIstilah     Tool = "definisi_istilah"
	ToolHakSubjekData       Tool = "hak_subjek_data"
	ToolKewajibanPengendali Tool = "kewajiban_pengendali"
	ToolSanksiPelanggaran   Tool = "sanksi_pelanggaran"
)

// Tools lists every registered tool, in registration order.
func Tools() []Tool {
	return []Tool{
		ToolTanyaPDP,
		ToolCariPasal,
		ToolDefinisiIstilah,
		ToolHakSubjekData,
		ToolKewajibanPengendali,
		ToolSanksiPelanggaran,
	}
}

// ParseTool maps a tool name to its Tool value.
// Unregistered names fail with ErrUnknownTool.
func ParseTool(name string) (Tool, error) {
	for _, t := range Tools() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// Filter narrows retrieval with server-side metadata constraints.
// Zero values mean "no constraint".
type Filter struct {
	// Kind restricts to pasal or definisi passages.
	Kind PassageKind
	// Bab restricts to a roman-numeral chapter.
	Bab string
	// Pasal restricts to an exact article number.
	Pasal int
	// Topic restricts to passages carrying the topic tag.
	Topic Topic
}

// IsEmpty reports whether the filter has no constraints.
func (f Filter) IsEmpty() bool {
	return f.Kind == "" && f.Bab == "" && f.Pasal == 0 && f.Topic == ""
}

// Query is a single retrieval request, constructed per tool invocation
// and discarded after the response.
type Query struct {
	// Text is the natural-language query to embed.
	Text string
	// Tool is the invoking tool.
	Tool Tool
	// Filter holds the tool-specific metadata constraints.
	Filter Filter
	// TopK caps the number of returned passages; 0 uses the configured default.
	TopK int
}
