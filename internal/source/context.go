package source

import (
	"sort"
	"strings"
)

type dilatation struct {
	pos   int
	delta int
}

// Context represents one nested source scope: the main file, an included
// file, or a macro-expansion site. It owns the information needed to turn a
// live-buffer offset back into a (line, column) pair in the unmodified
// source: a line-break index computed once from the original text, and the
// history of length changes (dilatations) applied to the buffer since.
type Context struct {
	// File is the source identifier, usually a file path.
	File string
	// Desc describes the scope for diagnostics, e.g. `in macro "title"`.
	Desc string

	lineBreaks  []int
	dilatations []dilatation
}

// NewContext builds a Context for text, computing its line-break index.
func NewContext(file, text, desc string) *Context {
	return &Context{File: file, Desc: desc, lineBreaks: LineBreaks(text)}
}

// LineBreaks returns every index i of text with text[i] == '\n', in
// increasing order.
func LineBreaks(text string) []int {
	var breaks []int
	off := 0
	for {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return breaks
		}
		breaks = append(breaks, off+i)
		off += i + 1
	}
}

// AddDilatation records that the buffer grew (delta > 0) or shrank
// (delta < 0) such that offsets at or after pos moved by delta. pos must be
// measured in the buffer state immediately after the edit; dilatations
// recorded out of that order make TruePosition unwind incorrectly.
func (c *Context) AddDilatation(pos, delta int) {
	c.dilatations = append(c.dilatations, dilatation{pos: pos, delta: delta})
}

// TruePosition maps a live-buffer offset to the offset in the unmodified
// source by unwinding the recorded dilatations most-recent-first.
func (c *Context) TruePosition(pos int) int {
	for i := len(c.dilatations) - 1; i >= 0; i-- {
		if d := c.dilatations[i]; d.pos <= pos {
			pos -= d.delta
		}
	}
	return pos
}

// LineNumber resolves a live-buffer offset to the 1-based line number and
// the column a human would see in the unmodified source. The column is the
// distance from the closest line break at or before the position (so it is
// the 1-based column on every line but the first, where it is 0-based).
func (c *Context) LineNumber(pos int) (line, col int) {
	truePos := c.TruePosition(pos)
	// number of breaks <= truePos
	n := sort.SearchInts(c.lineBreaks, truePos+1)
	if n == 0 {
		return 1, truePos
	}
	return n + 1, truePos - c.lineBreaks[n-1]
}

// Copy returns a Context sharing the (immutable) line-break index and a
// snapshot of the dilatation history, but with its own dilatation list from
// here on and its own Desc. Use it to retain a scope for later diagnostics,
// or to give a sub-scope of the same file a different description.
func (c *Context) Copy() *Context {
	return &Context{
		File:        c.File,
		Desc:        c.Desc,
		lineBreaks:  c.lineBreaks,
		dilatations: c.dilatations[:len(c.dilatations):len(c.dilatations)],
	}
}
