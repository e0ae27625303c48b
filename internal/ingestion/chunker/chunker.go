// Package chunker splits document text into overlapping, size-bounded
// segments along blank-line paragraph breaks.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultTargetSize = 1500
	DefaultOverlap    = 150
)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

type Options struct {
	// TargetSize bounds a chunk's size in characters, not counting the
	// carried overlap, unless the chunk holds a single paragraph that is
	// larger on its own.
	TargetSize int
	// Overlap bounds the size of the trailing paragraphs repeated at the
	// start of the next chunk.
	Overlap int
}

func DefaultOptions() Options {
	return Options{TargetSize: DefaultTargetSize, Overlap: DefaultOverlap}
}

func (o Options) normalized() Options {
	if o.TargetSize <= 0 {
		o.TargetSize = DefaultTargetSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	return o
}

// Paragraphs normalizes line endings, splits on blank lines and drops
// empty paragraphs.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	raw := paragraphBreak.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Chunk is deterministic: equal input always yields equal boundaries.
// Size is measured in runes of the paragraphs joined by blank lines.
func Chunk(text string, opts Options) []string {
	opts = opts.normalized()
	paras := Paragraphs(text)
	if len(paras) == 0 {
		return []string{}
	}

	var (
		chunks []string
		cur    []string
		size   int
	)
	for _, p := range paras {
		plen := utf8.RuneCountInString(p)
		if len(cur) > 0 && joinedSize(size, len(cur), plen) > opts.TargetSize {
			chunks = append(chunks, strings.Join(cur, "\n\n"))
			cur, size = overlapTail(cur, opts.Overlap)
		}
		if len(cur) > 0 {
			size += 2
		}
		cur = append(cur, p)
		size += plen
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, "\n\n"))
	}
	return chunks
}

// joinedSize is the size after appending a paragraph of plen runes to n
// paragraphs currently measuring size.
func joinedSize(size, n, plen int) int {
	if n == 0 {
		return plen
	}
	return size + 2 + plen
}

// overlapTail returns the longest suffix of paras whose joined size fits
// in overlap, in original order.
func overlapTail(paras []string, overlap int) ([]string, int) {
	if overlap <= 0 {
		return nil, 0
	}
	size := 0
	start := len(paras)
	for i := len(paras) - 1; i >= 0; i-- {
		next := joinedSize(size, len(paras)-1-i, utf8.RuneCountInString(paras[i]))
		if next > overlap {
			break
		}
		size = next
		start = i
	}
	tail := make([]string, len(paras)-start)
	copy(tail, paras[start:])
	return tail, size
}
