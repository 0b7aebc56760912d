package dict

import "testing"

func TestFromWords(t *testing.T) {
	d := FromWords([]string{" Base ", "based", ""})
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	if !d.IsValidWord("base") || !d.IsValidWord("BASED") {
		t.Fatalf("membership lookups failed")
	}
	if d.IsValidWord("bases") {
		t.Fatalf("unexpected member 'bases'")
	}
	if !d.IsPrefix("ba") || !d.IsPrefix("based") {
		t.Fatalf("prefix lookups failed")
	}
	if d.IsPrefix("x") {
		t.Fatalf("unexpected prefix 'x'")
	}
	letters := string(d.Letters())
	if letters != "abdes" {
		t.Fatalf("Letters = %q, want %q", letters, "abdes")
	}
}

func TestLoadEmbeddedDefault(t *testing.T) {
	d, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Len() == 0 {
		t.Fatalf("embedded dictionary is empty")
	}
	if !d.IsValidWord("base") || !d.IsValidWord("based") {
		t.Fatalf("embedded dictionary is missing expected words")
	}
}
