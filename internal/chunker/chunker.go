package chunker

import (
	"iter"
	"strings"
	"unicode/utf8"
)

type Options struct {
	Size    int // window length in characters
	Overlap int // characters repeated between consecutive windows
}

type Chunk struct {
	Index   int
	Offset  int // first character of the window within the document
	Overlap int // characters shared with the previous window
	Length  int
	Text    string
}

func DefaultOptions() Options {
	return Options{
		Size:    1000,
		Overlap: 200,
	}
}

// an overlap that would stall the window falls back to a quarter of the size
func (o Options) normalized() Options {
	if o.Size <= 0 {
		o.Size = DefaultOptions().Size
	}

	if o.Overlap < 0 {
		o.Overlap = 0
	}

	if o.Overlap >= o.Size {
		o.Overlap = o.Size / 4
	}

	return o
}

func (o Options) step() int {
	return o.Size - o.Overlap
}

// splits text into windows of opts.Size characters, each starting
// Size-Overlap characters after the previous one. the last window ends at
// the end of the text, so every character lands in at least one chunk.
// whitespace-only text yields nothing. the sequence is lazy and can be
// ranged over more than once.
func Split(text string, opts Options) iter.Seq[Chunk] {
	opts = opts.normalized()

	return func(yield func(Chunk) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		runes := []rune(text)
		n := len(runes)
		step := opts.step()
		prevEnd := 0

		for index, start := 0, 0; ; index, start = index+1, start+step {
			end := min(start+opts.Size, n)

			chunk := Chunk{
				Index:   index,
				Offset:  start,
				Overlap: max(prevEnd-start, 0),
				Length:  end - start,
				Text:    string(runes[start:end]),
			}

			if !yield(chunk) || end == n {
				return
			}

			prevEnd = end
		}
	}
}

// number of chunks Split produces for text, without building them
func Count(text string, opts Options) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	opts = opts.normalized()
	n := utf8.RuneCountInString(text)

	if n <= opts.Size {
		return 1
	}

	step := opts.step()

	return 1 + (n-opts.Size+step-1)/step
}
