package id

import (
	"strings"
	"testing"
)

func TestGenerate_Prefix(t *testing.T) {
	got := Generate("video")
	if !strings.HasPrefix(got, "video-") {
		t.Errorf("Generate(\"video\") = %q, want video- prefix", got)
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := Generate("video")
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}
