package source

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLineBreaks(t *testing.T) {
	tests := []struct {
		text string
		want []int
	}{
		{"", nil},
		{"no breaks", nil},
		{"\n", []int{0}},
		{"aaa\nbbb\nccc", []int{3, 7}},
		{"\n\n\n", []int{0, 1, 2}},
		{"trailing\n", []int{8}},
	}
	for _, test := range tests {
		if diff := cmp.Diff(test.want, LineBreaks(test.text)); diff != "" {
			t.Errorf("LineBreaks(%q) (-want +got):\n%s", test.text, diff)
		}
	}
}

func TestLineNumber(t *testing.T) {
	ctx := NewContext("test.txt", "aaa\nbbb\nccc", "")
	tests := []struct {
		pos  int
		line int
		col  int
	}{
		{0, 1, 0},
		{2, 1, 2},
		{3, 2, 0}, // the break itself starts the next line
		{4, 2, 1},
		{5, 2, 2},
		{7, 3, 0},
		{8, 3, 1},
		{10, 3, 3},
		{12, 3, 5}, // past the end of the text must not fault
	}
	for _, test := range tests {
		line, col := ctx.LineNumber(test.pos)
		if line != test.line || col != test.col {
			t.Errorf("LineNumber(%d): want (%d, %d), got (%d, %d)",
				test.pos, test.line, test.col, line, col)
		}
	}
}

func TestLineNumberAfterDilatation(t *testing.T) {
	// a 3-character insertion at offset 2 moves position 5 to 8; both must
	// resolve to the same original coordinates
	before := NewContext("test.txt", "aaa\nbbb\nccc", "")
	wantLine, wantCol := before.LineNumber(5)

	after := NewContext("test.txt", "aaa\nbbb\nccc", "")
	after.AddDilatation(2+3, 3)
	line, col := after.LineNumber(8)
	if line != wantLine || col != wantCol {
		t.Errorf("after dilatation: want (%d, %d), got (%d, %d)", wantLine, wantCol, line, col)
	}
	if line != 2 || col != 2 {
		t.Errorf("want (2, 2), got (%d, %d)", line, col)
	}
}

// TestTruePositionRoundTrip drives a buffer through a chain of edits,
// recording each dilatation in the buffer state immediately after the edit,
// and checks that surviving characters resolve to their original offsets.
func TestTruePositionRoundTrip(t *testing.T) {
	orig := "alpha beta gamma delta"
	ctx := NewContext("test.txt", orig, "")
	buf := orig

	edit := func(start, end int, repl string) {
		buf = buf[:start] + repl + buf[end:]
		ctx.AddDilatation(start+len(repl), len(repl)-(end-start))
	}

	edit(6, 10, "BB")         // "alpha BB gamma delta"
	edit(0, 5, "A")           // "A BB gamma delta"
	edit(5, 10, "GGGGGGGGGG") // "A BB GGGGGGGGGG delta"

	for _, word := range []string{"delta"} {
		got := ctx.TruePosition(strings.Index(buf, word))
		want := strings.Index(orig, word)
		if got != want {
			t.Errorf("TruePosition of %q: want %d, got %d", word, want, got)
		}
	}
	// a position untouched by any edit: the space before "delta"'s word in
	// the original is covered above; also check the buffer start
	if got := ctx.TruePosition(0); got != 0 {
		t.Errorf("TruePosition(0): want 0, got %d", got)
	}
}

// TestDilatationOrderQuirk pins the behavior for dilatations recorded out
// of buffer-after-edit order: the unwinding is defined to be
// most-recent-first and is deliberately not guarded against misordered
// records, so a change here must be a deliberate one.
func TestDilatationOrderQuirk(t *testing.T) {
	ctx := NewContext("test.txt", "aaaaaaaaaaaaaaaaaaaa", "")
	ctx.AddDilatation(10, 5)
	ctx.AddDilatation(3, 2)
	if got := ctx.TruePosition(12); got != 5 {
		t.Errorf("TruePosition(12): want pinned value 5, got %d", got)
	}
}

func TestLineNumberMonotonic(t *testing.T) {
	ctx := NewContext("test.txt", "one\ntwo\nthree\nfour\n", "")
	ctx.AddDilatation(5, 2)
	ctx.AddDilatation(9, -1)
	prev := 0
	for pos := 0; pos < 30; pos++ {
		line, _ := ctx.LineNumber(pos)
		if line < prev {
			t.Fatalf("line number decreased at pos %d: %d -> %d", pos, prev, line)
		}
		prev = line
	}
}

func TestContextCopy(t *testing.T) {
	orig := NewContext("test.txt", "aaa\nbbb\nccc", "outer")
	orig.AddDilatation(4, 2)

	cp := orig.Copy()
	cp.Desc = "in macro \"x\""
	cp.AddDilatation(8, 5)

	if orig.Desc != "outer" {
		t.Errorf("copy's description leaked into original: %q", orig.Desc)
	}
	// the copy sees the shared history plus its own record
	if got := cp.TruePosition(20); got != 13 {
		t.Errorf("copy TruePosition(20): want 13, got %d", got)
	}
	// the original must not see the copy's record
	if got := orig.TruePosition(20); got != 18 {
		t.Errorf("original TruePosition(20): want 18, got %d", got)
	}
	// and appending to the original must not disturb the copy
	orig.AddDilatation(2, 1)
	if got := cp.TruePosition(20); got != 13 {
		t.Errorf("copy TruePosition(20) after original append: want 13, got %d", got)
	}
}
