package engine

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"preproc/internal/scanner"
	"preproc/internal/source"
)

func (e *Engine) executeBlock(d *scanner.Directive, buf string) (string, bool, error) {
	switch d.Name {
	case "if":
		return e.ifBlock(d, buf)
	case "for":
		return e.forBlock(d, buf)
	case "repeat":
		return e.repeatBlock(d, buf)
	case "verbatim":
		// splice the body untouched; spliced text is never rescanned
		return buf[d.Pos.RelativeEnd():d.Pos.RelativeEndBlockBegin()], true, nil
	case "upper", "lower", "capitalize", "escape_html", "unescape_html":
		return e.transformBlock(d, buf)
	default:
		panic(fmt.Sprintf("internal error: unhandled block %q", d.Name))
	}
}

func (e *Engine) transformBlock(d *scanner.Directive, buf string) (string, bool, error) {
	out, err := e.blockBody(d, buf)
	if err != nil {
		return "", false, err
	}
	switch d.Name {
	case "upper":
		out = strings.ToUpper(out)
	case "lower":
		out = strings.ToLower(out)
	case "capitalize":
		out = cases.Title(language.Und).String(out)
	case "escape_html":
		out = html.EscapeString(out)
	case "unescape_html":
		out = html.UnescapeString(out)
	}
	return out, true, nil
}

// blockBody processes the whole body of a paired directive.
func (e *Engine) blockBody(d *scanner.Directive, buf string) (string, error) {
	return e.processRegion(buf,
		d.Pos.RelativeEnd(), d.Pos.RelativeEndBlockBegin(), d.Pos.Offset,
		fmt.Sprintf("in block %q", d.Name))
}

// branch is one arm of an if block: the opening if, an elif, or the else.
type branch struct {
	cond string
	pos  *source.Position
	// body bounds, local to the if block's body
	start, end int
	isElse     bool
}

func (e *Engine) ifBlock(d *scanner.Directive, buf string) (string, bool, error) {
	offset := d.Pos.Offset
	bodyStart := d.Pos.RelativeEnd()
	bodyEnd := d.Pos.RelativeEndBlockBegin()
	body := buf[bodyStart:bodyEnd]

	branches, err := e.carveBranches(d, body, offset+bodyStart)
	if err != nil {
		return "", false, err
	}
	for _, b := range branches {
		take := b.isElse
		if !take {
			take, err = e.evalCond(b.cond, b.pos)
			if err != nil {
				return "", false, err
			}
		}
		if take {
			out, err := e.processRegion(buf, bodyStart+b.start, bodyStart+b.end, offset, `in block "if"`)
			if err != nil {
				return "", false, err
			}
			return out, true, nil
		}
	}
	return "", true, nil
}

// carveBranches splits an if block's body at top-level {% elif %} and
// {% else %} markers. Nested known blocks are skipped whole, so markers
// belonging to an inner if (or hiding inside a verbatim block) do not split
// the outer one.
func (e *Engine) carveBranches(d *scanner.Directive, body string, offset int) ([]branch, error) {
	branches := []branch{{cond: d.Args, pos: d.Pos}}
	cursor := 0
	sawElse := false
	for {
		nd, err := e.scan.Next(body, cursor, offset)
		if err != nil {
			return nil, e.scanDiag(err)
		}
		if nd == nil {
			break
		}
		switch {
		case nd.Known && nd.Kind == scanner.Block:
			cursor = nd.Pos.RelativeEndBlockEnd()
		case nd.Name == "elif" || nd.Name == "else":
			if sawElse {
				return nil, e.errorAt(nd.Pos, "{%% %s %%} after {%% else %%}", nd.Name)
			}
			if nd.Name == "else" {
				sawElse = true
				if nd.Args != "" {
					if err := e.warnAt(nd.Pos, "else: ignoring arguments %q", nd.Args); err != nil {
						return nil, err
					}
				}
			}
			branches[len(branches)-1].end = nd.Pos.RelativeBegin()
			branches = append(branches, branch{
				cond:   nd.Args,
				pos:    nd.Pos,
				start:  nd.Pos.RelativeEnd(),
				isElse: nd.Name == "else",
			})
			cursor = nd.Pos.RelativeEnd()
		default:
			cursor = nd.Pos.RelativeEnd()
		}
	}
	branches[len(branches)-1].end = len(body)
	return branches, nil
}

// evalCond evaluates an if/elif condition: `def NAME`, `ndef NAME`,
// `LHS==RHS`, or `LHS!=RHS`. Comparison operands naming a defined macro are
// replaced by the macro's value first.
func (e *Engine) evalCond(cond string, pos *source.Position) (bool, error) {
	if cond == "" {
		return false, e.errorAt(pos, "if: missing condition")
	}
	if op, rest := splitArg(cond); op == "def" || op == "ndef" {
		name, extra := splitArg(rest)
		if name == "" || extra != "" {
			return false, e.errorAt(pos, "if: %s wants exactly one macro name, got %q", op, rest)
		}
		_, defined := e.macros[name]
		return defined == (op == "def"), nil
	}
	if lhs, rhs, ok := strings.Cut(cond, "=="); ok {
		return e.resolve(lhs) == e.resolve(rhs), nil
	}
	if lhs, rhs, ok := strings.Cut(cond, "!="); ok {
		return e.resolve(lhs) != e.resolve(rhs), nil
	}
	return false, e.errorAt(pos, "if: cannot parse condition %q", cond)
}

func (e *Engine) resolve(operand string) string {
	operand = strings.TrimSpace(operand)
	if val, ok := e.macros[operand]; ok {
		return val
	}
	return operand
}

func (e *Engine) forBlock(d *scanner.Directive, buf string) (string, bool, error) {
	fields := strings.Fields(d.Args)
	if len(fields) < 2 || fields[1] != "in" || !scanner.IsIdentifier(fields[0]) {
		return "", false, e.errorAt(d.Pos, "for: want `for NAME in ITEM...`, got %q", d.Args)
	}
	name := fields[0]
	if _, reserved := registry[name]; reserved {
		return "", false, e.errorAt(d.Pos, "for: %q is a built-in directive name", name)
	}
	items := fields[2:]

	saved, had := e.macros[name]
	defer func() {
		if had {
			e.macros[name] = saved
		} else {
			delete(e.macros, name)
		}
	}()

	var sb strings.Builder
	for _, item := range items {
		e.macros[name] = item
		out, err := e.blockBody(d, buf)
		if err != nil {
			return "", false, err
		}
		sb.WriteString(out)
	}
	return sb.String(), true, nil
}

func (e *Engine) repeatBlock(d *scanner.Directive, buf string) (string, bool, error) {
	n, err := strconv.Atoi(d.Args)
	if err != nil || n < 0 {
		return "", false, e.errorAt(d.Pos, "repeat: want a non-negative count, got %q", d.Args)
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		out, err := e.blockBody(d, buf)
		if err != nil {
			return "", false, err
		}
		sb.WriteString(out)
	}
	return sb.String(), true, nil
}
