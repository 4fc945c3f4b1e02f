package ioutil

import "testing"

func TestTokenizeSplitsOnWhitespace(t *testing.T) {
	tok := NewTokenizer()
	got := tok.Tokenize([]byte("vector 3 mod sig TV"))
	want := []string{"vector", "3", "mod", "sig", "TV"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenizeHonoursQuotesAndEscapes(t *testing.T) {
	tok := NewTokenizer()
	got := tok.Tokenize([]byte(`attr name "hello \"world\""`))
	want := []string{"attr", "name", `hello "world"`}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenizeEmptyAndComment(t *testing.T) {
	tok := NewTokenizer()
	if got := tok.Tokenize([]byte("   ")); len(got) != 0 {
		t.Errorf("blank line should tokenize to zero tokens, got %v", got)
	}
	got := tok.Tokenize([]byte("# a comment"))
	if !IsComment(got) {
		t.Errorf("expected %v to be recognised as a comment", got)
	}
}

func TestScalarParsers(t *testing.T) {
	if v, ok := ParseInt("42"); !ok || v != 42 {
		t.Errorf("ParseInt(42) = %v, %v", v, ok)
	}
	if _, ok := ParseInt("4.2"); ok {
		t.Errorf("ParseInt(4.2) should fail")
	}
	if v, ok := ParseInt64("9000000000"); !ok || v != 9000000000 {
		t.Errorf("ParseInt64 = %v, %v", v, ok)
	}
	if v, ok := ParseDouble("1.5e3"); !ok || v != 1500 {
		t.Errorf("ParseDouble(1.5e3) = %v, %v", v, ok)
	}
}
