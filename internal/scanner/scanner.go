// Package scanner locates directive markers inside a live text buffer. It
// never mutates the buffer; rewriting is the executor's job.
package scanner

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"preproc/internal/source"
)

// The fixed marker syntax: {% cmd args %} ... {% endcmd %}.
const (
	TokenBegin = "{%"
	TokenEnd   = "%}"
	endPrefix  = "end"
)

// Kind classifies a directive name.
type Kind int

const (
	// Command is an unpaired, single-occurrence directive.
	Command Kind = iota
	// Block is a paired directive requiring a matching {% endname %}.
	Block
)

// Registry maps directive names to their classification.
type Registry map[string]Kind

// Directive is one located directive occurrence.
type Directive struct {
	Name string
	// Args is the raw argument text, surrounding whitespace trimmed.
	Args string
	Kind Kind
	// Known reports whether Name was found in the registry. Unknown names
	// are not a scan error; the executor decides how to report them.
	Known bool
	Pos   *source.Position
}

// Error is a structured scan error. Pos locates the directive the error is
// attributed to: for an unterminated block that is the opening directive,
// not the end of the buffer.
type Error struct {
	Pos *source.Position
	Msg string
}

func (e *Error) Error() string {
	return e.Msg
}

type Scanner struct {
	registry Registry

	// compiled whole-identifier occurrence patterns, keyed by name
	patterns map[string]*regexp2.Regexp
}

func New(registry Registry) *Scanner {
	return &Scanner{registry: registry, patterns: make(map[string]*regexp2.Regexp)}
}

// Next locates the first directive occurrence at or after from in buf.
// Offsets in the returned Position are absolute, i.e. buffer-local offsets
// plus offset (the buffer's distance from the true source start). It
// returns (nil, nil) when no marker remains.
func (s *Scanner) Next(buf string, from, offset int) (*Directive, error) {
	idx := strings.Index(buf[from:], TokenBegin)
	if idx < 0 {
		return nil, nil
	}
	begin := from + idx

	pos := &source.Position{Offset: offset}
	pos.SetRelativeBegin(begin)

	i := begin + len(TokenBegin)
	for i < len(buf) && isSpace(buf[i]) {
		i++
	}
	cmdBegin := i
	for i < len(buf) && isIdentChar(buf[i], i > cmdBegin) {
		i++
	}
	pos.SetRelativeCmdBegin(cmdBegin)

	close_ := strings.Index(buf[i:], TokenEnd)
	if close_ < 0 {
		return nil, &Error{Pos: pos, Msg: fmt.Sprintf("unterminated %s marker", TokenBegin)}
	}
	if i == cmdBegin {
		return nil, &Error{Pos: pos, Msg: "marker with no command name"}
	}
	name := buf[cmdBegin:i]
	cmdEnd := i + close_
	end := cmdEnd + len(TokenEnd)

	pos.SetRelativeCmdBegin(cmdBegin)
	pos.SetRelativeCmdArgBegin(i)
	pos.SetRelativeCmdEnd(cmdEnd)
	pos.SetRelativeEnd(end)

	kind, known := s.registry[name]
	d := &Directive{
		Name:  name,
		Args:  strings.TrimSpace(buf[i:cmdEnd]),
		Kind:  kind,
		Known: known,
		Pos:   pos,
	}

	if known && kind == Block {
		if err := s.matchEndBlock(buf, d); err != nil {
			return nil, err
		}
	} else {
		// meaningless for unpaired directives, but keep the ordering
		// invariant intact
		pos.EndBlockBegin = pos.End
		pos.EndBlockEnd = pos.End
	}

	pos.Check(known && kind == Block)
	return d, nil
}

// matchEndBlock finds the {% endname %} marker matching the opening
// directive d, skipping nested blocks of the same name: every inner
// {% name %} increments the depth, and only an end marker at depth zero is
// the true match. Names are matched as whole identifiers, so {% ifx %}
// neither opens nor closes an {% if %} block.
func (s *Scanner) matchEndBlock(buf string, d *Directive) error {
	pat := s.pattern(d.Name)
	depth := 1
	searchFrom := d.Pos.RelativeEnd()
	for {
		m, err := pat.FindStringMatchStartingAt(buf, searchFrom)
		if err != nil {
			panic("internal error: matching end-block pattern: " + err.Error())
		}
		if m == nil {
			return &Error{Pos: d.Pos, Msg: fmt.Sprintf("unterminated block {%% %s %%}", d.Name)}
		}
		searchFrom = m.Index + m.Length
		if g := m.GroupByName("end"); g == nil || len(g.Captures) == 0 {
			depth++
			continue
		}
		depth--
		if depth > 0 {
			continue
		}
		close_ := strings.Index(buf[searchFrom:], TokenEnd)
		if close_ < 0 {
			endPos := d.Pos.Copy()
			endPos.SetRelativeBegin(m.Index)
			return &Error{Pos: endPos, Msg: fmt.Sprintf("unterminated %s marker", TokenBegin)}
		}
		d.Pos.SetRelativeEndBlockBegin(m.Index)
		d.Pos.SetRelativeEndBlockEnd(searchFrom + close_ + len(TokenEnd))
		return nil
	}
}

// pattern compiles (and caches) the occurrence pattern for a directive
// name: the opening token, optional end prefix, then the name bounded on
// the right by a non-identifier character or the buffer edge. The
// trailing boundary is a lookahead, which the standard regexp package
// cannot express.
func (s *Scanner) pattern(name string) *regexp2.Regexp {
	if pat, ok := s.patterns[name]; ok {
		return pat
	}
	pat := regexp2.MustCompile(
		regexp2.Escape(TokenBegin)+`\s*(?<end>`+endPrefix+`)?`+regexp2.Escape(name)+`(?![_a-zA-Z0-9])`,
		regexp2.None)
	s.patterns[name] = pat
	return pat
}

// IsIdentifier reports whether s is a whole directive identifier:
// [_a-zA-Z][_a-zA-Z0-9]*.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i], i > 0) {
			return false
		}
	}
	return true
}

func isIdentChar(ch byte, continuation bool) bool {
	if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		return true
	}
	return continuation && ch >= '0' && ch <= '9'
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
