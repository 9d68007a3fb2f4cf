package chunker

import (
	"slices"
	"strings"
	"testing"
)

func TestSplit_ThousandCharacters(t *testing.T) {
	text := strings.Repeat("a", 1000)

	chunks := slices.Collect(Split(text, Options{Size: 500, Overlap: 100}))

	want := []struct{ offset, length, overlap int }{
		{0, 500, 0},
		{400, 500, 100},
		{800, 200, 100},
	}

	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}

	for i, w := range want {
		c := chunks[i]
		if c.Index != i || c.Offset != w.offset || c.Length != w.length || c.Overlap != w.overlap {
			t.Errorf("chunk %d: got index=%d offset=%d length=%d overlap=%d", i, c.Index, c.Offset, c.Length, c.Overlap)
		}
	}

	if got := Count(text, Options{Size: 500, Overlap: 100}); got != len(chunks) {
		t.Errorf("Count = %d, want %d", got, len(chunks))
	}
}

func TestSplit_ShortText(t *testing.T) {
	chunks := slices.Collect(Split("hello world", DefaultOptions()))

	if len(chunks) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(chunks))
	}

	if chunks[0].Text != "hello world" || chunks[0].Overlap != 0 {
		t.Errorf("unexpected chunk: %+v", chunks[0])
	}
}

func TestSplit_Empty(t *testing.T) {
	for _, text := range []string{"", "   \n\t "} {
		if n := len(slices.Collect(Split(text, DefaultOptions()))); n != 0 {
			t.Errorf("expected no chunks for %q, got %d", text, n)
		}

		if Count(text, DefaultOptions()) != 0 {
			t.Errorf("expected Count 0 for %q", text)
		}
	}
}

func TestSplit_CoversEveryCharacter(t *testing.T) {
	text := strings.Repeat("abcdefghij", 237)
	opts := Options{Size: 128, Overlap: 32}

	var rebuilt strings.Builder
	for c := range Split(text, opts) {
		rebuilt.WriteString(c.Text[c.Overlap:])
	}

	if rebuilt.String() != text {
		t.Fatalf("windows minus overlaps do not reassemble the document")
	}

	if got, want := Count(text, opts), len(slices.Collect(Split(text, opts))); got != want {
		t.Errorf("Count = %d, want %d", got, want)
	}
}

func TestSplit_Multibyte(t *testing.T) {
	text := strings.Repeat("é", 10)

	chunks := slices.Collect(Split(text, Options{Size: 4, Overlap: 1}))

	for _, c := range chunks {
		if got := len([]rune(c.Text)); got != c.Length {
			t.Errorf("chunk %d: length %d but %d runes", c.Index, c.Length, got)
		}
	}

	if last := chunks[len(chunks)-1]; last.Offset+last.Length != 10 {
		t.Errorf("last chunk ends at %d, want 10", last.Offset+last.Length)
	}
}

func TestSplit_Restartable(t *testing.T) {
	seq := Split(strings.Repeat("x", 50), Options{Size: 20, Overlap: 5})

	first := slices.Collect(seq)
	second := slices.Collect(seq)

	if !slices.Equal(first, second) {
		t.Fatal("second iteration produced different chunks")
	}
}

func TestSplit_OverlapNotSmallerThanSize(t *testing.T) {
	chunks := slices.Collect(Split(strings.Repeat("x", 100), Options{Size: 40, Overlap: 40}))

	// falls back to an overlap of 10
	if len(chunks) != 3 || chunks[1].Offset != 30 {
		t.Fatalf("unexpected windows: %+v", chunks)
	}
}

func TestSplit_EarlyBreak(t *testing.T) {
	n := 0
	for range Split(strings.Repeat("x", 1000), Options{Size: 10, Overlap: 0}) {
		n++
		if n == 3 {
			break
		}
	}

	if n != 3 {
		t.Fatalf("expected to stop after 3 chunks, got %d", n)
	}
}
