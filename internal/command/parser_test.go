package command

import "testing"

func TestParseMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"delegate 10 SEAM to Seamless Protocol", "10"},
		{"DELEGATE 1 seam TO seamless protocol", "1"},
		{"  delegate 250 SEAM to Seamless Protocol  ", "250"},
		{"delegate 007 SEAM to Seamless Protocol", "007"},
		{"delegate   42   SEAM   to   Seamless   Protocol", "42"},
		{"delegate 123456789012345678901234567890 SEAM to Seamless Protocol", "123456789012345678901234567890"},
	}

	for _, tt := range tests {
		got, ok := Parse(tt.input)
		if !ok {
			t.Errorf("Parse(%q) reported no match", tt.input)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"hello",
		"delegate SEAM to Seamless Protocol",
		"delegate 1.5 SEAM to Seamless Protocol",
		"delegate -3 SEAM to Seamless Protocol",
		"delegate 0 SEAM to Seamless Protocol",
		"delegate 000 SEAM to Seamless Protocol",
		"delegate 10 ARB to Seamless Protocol",
		"delegate 10 SEAM to Aave",
		"please delegate 10 SEAM to Seamless Protocol",
		"delegate 10 SEAM to Seamless Protocol now",
		"delegate 10 SEAM to SeamlessProtocol",
	}

	for _, input := range inputs {
		if got, ok := Parse(input); ok {
			t.Errorf("Parse(%q) = %q, want no match", input, got)
		}
	}
}

func TestParseDelegationFillsFixedNames(t *testing.T) {
	t.Parallel()

	d, ok := ParseDelegation("delegate 5 SEAM to Seamless Protocol")
	if !ok {
		t.Fatal("expected match")
	}
	if d.Amount != "5" || d.TokenSymbol != "SEAM" || d.TargetProtocol != "Seamless Protocol" {
		t.Fatalf("unexpected delegation: %+v", d)
	}

	if _, ok := ParseDelegation("hello"); ok {
		t.Fatal("expected no match for hello")
	}
}
