package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t\n", "\r\n\r\n"} {
		if got := Chunk(in, DefaultOptions()); len(got) != 0 {
			t.Fatalf("Chunk(%q) = %v, want empty", in, got)
		}
	}
}

func TestChunkShortParagraphLongParagraph(t *testing.T) {
	b := "Para B that is very long " + strings.Repeat("x", 1600)
	text := "Para A.\n\n" + b

	got := Chunk(text, Options{TargetSize: 1500, Overlap: 150})
	if len(got) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(got))
	}
	if got[0] != "Para A." {
		t.Fatalf("chunk 0 = %q", got[0])
	}
	// Para A fits the overlap budget, so it seeds the chunk holding B.
	if got[1] != "Para A.\n\n"+b {
		t.Fatalf("chunk 1 should be the overlap tail plus paragraph B (len %d)", len(got[1]))
	}
}

func TestChunkOverlapCarriesTail(t *testing.T) {
	paras := make([]string, 20)
	for i := range paras {
		paras[i] = fmt.Sprintf("%02d", i) + strings.Repeat("a", 98)
	}
	got := Chunk(strings.Join(paras, "\n\n"), Options{TargetSize: 1500, Overlap: 150})
	if len(got) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(got))
	}
	first := strings.Split(got[0], "\n\n")
	if len(first) != 14 || first[13] != paras[13] {
		t.Fatalf("chunk 0 has %d paragraphs", len(first))
	}
	second := strings.Split(got[1], "\n\n")
	if second[0] != paras[13] {
		t.Fatalf("chunk 1 should start with the overlap paragraph, got %q", second[0][:2])
	}
	if second[len(second)-1] != paras[19] {
		t.Fatalf("last paragraph missing from chunk 1")
	}
}

func TestChunkProperties(t *testing.T) {
	opts := Options{TargetSize: 300, Overlap: 60}
	var b strings.Builder
	for i := 0; i < 60; i++ {
		n := (i*37)%250 + 5
		if i%17 == 0 {
			n = 420
		}
		b.WriteString(fmt.Sprintf("p%d-", i))
		b.WriteString(strings.Repeat("é", n))
		b.WriteString("\r\n\r\n")
	}
	text := b.String()
	paras := Paragraphs(text)

	chunks := Chunk(text, opts)
	again := Chunk(text, opts)
	if len(chunks) != len(again) {
		t.Fatalf("non-deterministic chunk count")
	}
	for i := range chunks {
		if chunks[i] != again[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}

	// Every paragraph appears, in order, once overlap repeats are removed.
	// The size bound covers the paragraphs a chunk adds, not the carried tail.
	next := 0
	for i, c := range chunks {
		var added []string
		for _, p := range strings.Split(c, "\n\n") {
			if next < len(paras) && p == paras[next] {
				added = append(added, p)
				next++
			}
		}
		if len(added) == 0 {
			t.Fatalf("chunk %d adds no new paragraph", i)
		}
		if n := utf8.RuneCountInString(strings.Join(added, "\n\n")); n > opts.TargetSize && len(added) > 1 {
			t.Fatalf("chunk %d adds %d runes over %d paragraphs", i, n, len(added))
		}
	}
	if next != len(paras) {
		t.Fatalf("covered %d of %d paragraphs", next, len(paras))
	}
}

func TestParagraphsNormalizesBreaks(t *testing.T) {
	got := Paragraphs("one\r\n\r\ntwo\n \n\nthree\n")
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("paragraph %d = %q, want %q", i, got[i], want[i])
		}
	}
}
