//nolint:testpackage // Testing internal helpers requires same package access
package cluster

import (
	"reflect"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{
			name:  "diacritics folded and stopwords dropped",
			title: "Eleições 2026: o debate sobre a economia",
			want:  []string{"eleicoes", "2026", "debate", "economia"},
		},
		{
			name:  "source suffix stripped",
			title: "Big merger announced - Example News",
			want:  []string{"big", "merger", "announced"},
		},
		{
			name:  "punctuation and short tokens removed",
			title: "AI & ML: a 2-day summit!",
			want:  []string{"day", "summit"},
		},
		{
			name:  "empty title",
			title: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTitle(tt.title)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTitle(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle_Deterministic(t *testing.T) {
	title := "Governo anuncia pacote econômico após reunião"

	first := NormalizeTitle(title)
	second := NormalizeTitle(title)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalization not stable: %v vs %v", first, second)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a := NormalizeTitle("Palantir fecha contrato com governo federal")
	b := NormalizeTitle("Governo federal assina contrato com Palantir")

	ab := Similarity(a, b)
	ba := Similarity(b, a)

	if ab != ba {
		t.Errorf("similarity not symmetric: %f vs %f", ab, ba)
	}
	if ab <= 0 {
		t.Error("overlapping titles should score above zero")
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	same := NormalizeTitle("Exactly the same headline today")
	if got := Similarity(same, same); got != 1.0 {
		t.Errorf("identical token sets = %f, want 1.0", got)
	}

	a := NormalizeTitle("Stock markets rally worldwide")
	b := NormalizeTitle("Chuvas causam alagamentos")
	if got := Similarity(a, b); got != 0 {
		t.Errorf("disjoint token sets = %f, want 0", got)
	}

	if got := Similarity(nil, a); got != 0 {
		t.Errorf("empty input = %f, want 0", got)
	}
}

func TestTitleSimilarity_EquivalentSpellings(t *testing.T) {
	score := TitleSimilarity(
		"Eleições municipais: datas confirmadas",
		"Eleicoes municipais datas confirmadas - Portal X",
	)

	if score != 1.0 {
		t.Errorf("TitleSimilarity = %f, want 1.0", score)
	}
}
