package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"preproc/internal/scanner"
	"preproc/internal/source"
)

const defaultDateLayout = "2006-01-02"

func (e *Engine) executeCommand(d *scanner.Directive) (string, bool, error) {
	switch d.Name {
	case "def":
		return e.defCmd(d)
	case "undef":
		return e.undefCmd(d)
	case "include":
		return e.includeCmd(d)
	case "begin":
		return scanner.TokenBegin, true, nil
	case "end":
		return scanner.TokenEnd, true, nil
	case "date":
		layout := d.Args
		if layout == "" {
			layout = defaultDateLayout
		}
		return time.Now().Format(layout), true, nil
	case "line":
		line, _ := e.stack.Current().LineNumber(d.Pos.Begin)
		return strconv.Itoa(line), true, nil
	case "file":
		return e.stack.Current().File, true, nil
	case "error":
		msg := d.Args
		if msg == "" {
			msg = "error directive reached"
		}
		return "", false, e.errorAt(d.Pos, "%s", msg)
	case "warning":
		msg := d.Args
		if msg == "" {
			msg = "warning directive reached"
		}
		if err := e.warnAt(d.Pos, "%s", msg); err != nil {
			return "", false, err
		}
		return "", true, nil
	default:
		panic(fmt.Sprintf("internal error: unhandled command %q", d.Name))
	}
}

func (e *Engine) defCmd(d *scanner.Directive) (string, bool, error) {
	name, value := splitArg(d.Args)
	if name == "" {
		return "", false, e.errorAt(d.Pos, "def: missing macro name")
	}
	if !scanner.IsIdentifier(name) {
		return "", false, e.errorAt(d.Pos, "def: invalid macro name %q", name)
	}
	if _, reserved := registry[name]; reserved {
		return "", false, e.errorAt(d.Pos, "def: %q is a built-in directive name", name)
	}
	e.macros[name] = value
	return "", true, nil
}

func (e *Engine) undefCmd(d *scanner.Directive) (string, bool, error) {
	name, rest := splitArg(d.Args)
	if name == "" || rest != "" {
		return "", false, e.errorAt(d.Pos, "undef: want exactly one macro name, got %q", d.Args)
	}
	if _, ok := e.macros[name]; !ok {
		if err := e.warnAt(d.Pos, "undef: macro %q is not defined", name); err != nil {
			return "", false, err
		}
		return "", true, nil
	}
	delete(e.macros, name)
	return "", true, nil
}

// includeCmd reads the named file and processes it under a freshly pushed
// context, so diagnostics inside it carry its own file and line numbers.
// The context is popped on every exit path.
func (e *Engine) includeCmd(d *scanner.Directive) (string, bool, error) {
	path := d.Args
	if path == "" {
		return "", false, e.errorAt(d.Pos, "include: missing file path")
	}
	if !filepath.IsAbs(path) && e.dir != "" {
		path = filepath.Join(e.dir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false, e.errorAt(d.Pos, "include: %v", err)
	}
	if e.depth >= maxExpandDepth {
		return "", false, e.errorAt(d.Pos, "recursion depth exceeded including %q", path)
	}
	e.depth++
	defer func() { e.depth-- }()

	text := string(b)
	ctx := source.NewContext(path, text, fmt.Sprintf("included from %s", e.stack.Current().File))
	e.stack.Push(ctx)
	defer e.stack.Pop()

	savedDir := e.dir
	e.dir = filepath.Dir(path)
	defer func() { e.dir = savedDir }()

	out, err := e.process(text, 0)
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

// splitArg splits off the first whitespace-delimited word of args, returning
// it and the trimmed remainder.
func splitArg(args string) (first, rest string) {
	if i := strings.IndexAny(args, " \t\n\r"); i >= 0 {
		return args[:i], strings.TrimSpace(args[i:])
	}
	return args, ""
}
