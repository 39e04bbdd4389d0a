package redis

import (
	"strings"
	"testing"

	"github.com/datakita/pdpserve/internal/db"
)

func TestBuildFilter(t *testing.T) {
	pasal := 99.0
	tests := []struct {
		name  string
		terms []db.FilterTerm
		want  string
	}{
		{"empty", nil, ""},
		{"single tag", []db.FilterTerm{{Field: "kind", Tag: "pasal"}}, "@kind:{pasal}"},
		{"numeric equality", []db.FilterTerm{{Field: "pasal", Num: &pasal}}, "@pasal:[99 99]"},
		{
			"combined",
			[]db.FilterTerm{{Field: "kind", Tag: "pasal"}, {Field: "bab", Tag: "IV"}},
			"@kind:{pasal} @bab:{IV}",
		},
		{
			"tag escaping",
			[]db.FilterTerm{{Field: "istilah", Tag: "Data Pribadi"}},
			`@istilah:{Data\ Pribadi}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildFilter(tt.terms); got != tt.want {
				t.Errorf("buildFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildCreateArgs(t *testing.T) {
	def, err := db.NewIndex("pdp:passages:idx").
		Prefix("pdp:passages:").
		Tag("kind").
		Tag("bab").
		TagWithSeparator("topic", ",").
		Numeric("pasal").
		VectorHNSW("vector", 768, db.DistanceCosine, 32, 400).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("buildCreateArgs() error = %v", err)
	}
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"pdp:passages:idx ON HASH PREFIX 1 pdp:passages:",
		"kind TAG",
		"topic TAG SEPARATOR ,",
		"pasal NUMERIC",
		"vector VECTOR HNSW",
		"DIM 768",
		"DISTANCE_METRIC COSINE",
		"M 32",
		"EF_CONSTRUCTION 400",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("create args missing %q in %q", want, joined)
		}
	}
}

func TestVectorToBytesRoundTripLength(t *testing.T) {
	v := []float32{0.1, -0.5, 1.0}
	b := vectorToBytes(v)
	if len(b) != len(v)*4 {
		t.Errorf("len = %d, want %d", len(b), len(v)*4)
	}
}
