package source

import "fmt"

// Position records the boundary offsets of one directive occurrence in the
// buffer being scanned:
//
//	#1{% #2cmd#3 args#4 %}#5 ... #6{% endcmd %}#7
//
// Begin, CmdBegin, CmdArgBegin, CmdEnd, and End are #1 through #5.
// EndBlockBegin and EndBlockEnd are #6 and #7; their values are meaningless
// unless the directive is a paired block.
//
// All seven fields are absolute, i.e. relative to the start of the source.
// Offset is the difference between the start of the source and the start of
// the buffer currently being scanned, so the Relative accessors give offsets
// usable to index that buffer directly.
type Position struct {
	Offset int

	Begin         int
	CmdBegin      int
	CmdArgBegin   int
	CmdEnd        int
	End           int
	EndBlockBegin int
	EndBlockEnd   int
}

// InvalidPosition is the panic value raised when a Position's offsets are
// out of order. It signals a defect in the scanner or executor, not a
// malformed input document, so it is never reported through the warning
// policy.
type InvalidPosition struct {
	Pos Position
}

func (e InvalidPosition) Error() string {
	return fmt.Sprintf("internal error: position offsets out of order: %+v", e.Pos)
}

// Check panics with InvalidPosition unless
// Begin <= CmdBegin <= CmdArgBegin <= CmdEnd <= End and, when block is
// true, End <= EndBlockBegin <= EndBlockEnd.
func (p *Position) Check(block bool) {
	ok := p.Begin <= p.CmdBegin && p.CmdBegin <= p.CmdArgBegin &&
		p.CmdArgBegin <= p.CmdEnd && p.CmdEnd <= p.End
	if block {
		ok = ok && p.End <= p.EndBlockBegin && p.EndBlockBegin <= p.EndBlockEnd
	}
	if !ok {
		panic(InvalidPosition{Pos: *p})
	}
}

// Copy returns an independent copy.
func (p *Position) Copy() *Position {
	q := *p
	return &q
}

func (p *Position) RelativeBegin() int       { return p.Begin - p.Offset }
func (p *Position) RelativeCmdBegin() int    { return p.CmdBegin - p.Offset }
func (p *Position) RelativeCmdArgBegin() int { return p.CmdArgBegin - p.Offset }
func (p *Position) RelativeCmdEnd() int      { return p.CmdEnd - p.Offset }
func (p *Position) RelativeEnd() int         { return p.End - p.Offset }

func (p *Position) RelativeEndBlockBegin() int { return p.EndBlockBegin - p.Offset }
func (p *Position) RelativeEndBlockEnd() int   { return p.EndBlockEnd - p.Offset }

func (p *Position) SetRelativeBegin(v int)       { p.Begin = v + p.Offset }
func (p *Position) SetRelativeCmdBegin(v int)    { p.CmdBegin = v + p.Offset }
func (p *Position) SetRelativeCmdArgBegin(v int) { p.CmdArgBegin = v + p.Offset }
func (p *Position) SetRelativeCmdEnd(v int)      { p.CmdEnd = v + p.Offset }
func (p *Position) SetRelativeEnd(v int)         { p.End = v + p.Offset }

func (p *Position) SetRelativeEndBlockBegin(v int) { p.EndBlockBegin = v + p.Offset }
func (p *Position) SetRelativeEndBlockEnd(v int)   { p.EndBlockEnd = v + p.Offset }
