package matching

import "testing"

func TestProcess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: "  Tacu-Tacu!! ", want: "tacu tacu"},
		{input: "Ají de Gallina", want: "aji de gallina"},
		{input: "CAUSA LIMEÑA", want: "causa limena"},
		{input: "2 ceviches, y", want: "2 ceviches y"},
		{input: "...", want: ""},
		{input: "", want: ""},
	}
	for _, tt := range tests {
		if got := Process(tt.input); got != tt.want {
			t.Errorf("Process(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{a: "ceviche", b: "ceviche", want: 100},
		{a: "ceviches y", b: "ceviche", want: 82},
		{a: "abc", b: "xyz", want: 0},
		{a: "", b: "ceviche", want: 0},
		{a: "ceviche", b: "", want: 0},
	}
	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); got != tt.want {
			t.Errorf("Ratio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTokenSetRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		query, choice string
		want          int
	}{
		{name: "identical", query: "Miraflores", choice: "Miraflores", want: 100},
		{name: "word order", query: "saltado lomo", choice: "Lomo Saltado", want: 100},
		{name: "duplicate words", query: "lomo lomo saltado", choice: "Lomo Saltado", want: 100},
		{name: "subset", query: "causa limeña", choice: "Causa", want: 100},
		{name: "plural with filler", query: "ceviches y", choice: "Ceviche", want: 82},
		{name: "accents ignored", query: "aji de gallina", choice: "Ají de Gallina", want: 100},
		{name: "no overlap", query: "xyzxyz", choice: "Miraflores", want: 0},
		{name: "empty query", query: "", choice: "Ceviche", want: 0},
		{name: "punctuation only", query: ".,!", choice: "Ceviche", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenSetRatio(tt.query, tt.choice); got != tt.want {
				t.Errorf("TokenSetRatio(%q, %q) = %d, want %d", tt.query, tt.choice, got, tt.want)
			}
		})
	}
}

func TestPartialRatio(t *testing.T) {
	t.Parallel()

	if got := PartialRatio("lomo", "Lomo Saltado"); got != 100 {
		t.Errorf("PartialRatio(lomo, Lomo Saltado) = %d, want 100", got)
	}
	if got := PartialRatio("Lomo Saltado", "lomo"); got != 100 {
		t.Errorf("PartialRatio is not symmetric for substrings: %d", got)
	}
	if got := PartialRatio("", "lomo"); got != 0 {
		t.Errorf("PartialRatio with empty query = %d, want 0", got)
	}
}

func TestBestMatch(t *testing.T) {
	t.Parallel()

	choices := []string{"Ceviche", "Causa", "Lomo Saltado"}

	m, ok := BestMatch("lomo saltado", choices, TokenSetRatio)
	if !ok || m.Choice != "Lomo Saltado" || m.Index != 2 || m.Score != 100 {
		t.Fatalf("unexpected match %+v ok=%v", m, ok)
	}

	// 同分時保留第一個
	constant := func(string, string) int { return 70 }
	m, ok = BestMatch("anything", choices, constant)
	if !ok || m.Choice != "Ceviche" || m.Index != 0 {
		t.Fatalf("tie should keep the first choice, got %+v", m)
	}

	if _, ok := BestMatch("ceviche", nil, TokenSetRatio); ok {
		t.Fatal("expected no match on empty choices")
	}
}

func TestMatchAccepted(t *testing.T) {
	t.Parallel()

	if (Match{Score: 65}).Accepted(65) {
		t.Error("score equal to threshold must be rejected")
	}
	if !(Match{Score: 66}).Accepted(65) {
		t.Error("score above threshold must be accepted")
	}
}

func TestScorerByName(t *testing.T) {
	t.Parallel()

	if ScorerByName("token_set") == nil || ScorerByName("") == nil || ScorerByName("partial_ratio") == nil {
		t.Fatal("known scorers must resolve")
	}
	if ScorerByName("wratio") != nil {
		t.Fatal("unknown scorer must be nil")
	}
}
