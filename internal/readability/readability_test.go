package readability

import "testing"

func TestScoreDeterministic(t *testing.T) {
	s := "Hello, world! This is a readable string."
	a := Score(s)
	b := Score(s)
	if a != b {
		t.Fatalf("Score not deterministic: %d != %d", a, b)
	}
}

func TestScoreEmptyString(t *testing.T) {
	if got := Score(""); got != 0 {
		t.Errorf("Score(\"\") = %d, want 0", got)
	}
}

func TestScoreOverLengthLimit(t *testing.T) {
	long := make([]byte, MaxStringCharLimit+1)
	for i := range long {
		long[i] = 'e'
	}
	if got := Score(string(long)); got != 0 {
		t.Errorf("Score(over limit) = %d, want 0", got)
	}
}

func TestReadableStringPassesGating(t *testing.T) {
	s := "Hello, world!"
	score := Score(s)
	if score <= DefaultCutoff {
		t.Errorf("Score(%q) = %d, want > %d", s, score, DefaultCutoff)
	}
}

func TestDegenerateRepeatedCharFailsGating(t *testing.T) {
	// 'e' is the single highest-weighted character in EMERGENT, but a
	// one-character frequency vector has low cosine similarity to the full
	// weight vector, and one distinct character adds little diversity.
	s := "eeeeeeeeeeee"
	score := Score(s)
	if score > DefaultCutoff {
		t.Errorf("Score(%q) = %d, want <= %d", s, score, DefaultCutoff)
	}
}

func TestPasses(t *testing.T) {
	if !Passes("Hello, world!", DefaultCutoff) {
		t.Error("expected Hello, world! to pass gating")
	}
	if Passes("eeeeeeeeeeee", DefaultCutoff) {
		t.Error("expected repeated e's to fail gating")
	}
}
