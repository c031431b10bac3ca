// Package engine executes directives located by the scanner, rewriting the
// live buffer and keeping the context stack and dilatation records accurate
// so every diagnostic points at the original source.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"preproc/internal/diag"
	"preproc/internal/scanner"
	"preproc/internal/source"
)

// maxExpandDepth bounds macro/include recursion so self-referential
// definitions fail with a located error instead of exhausting the stack.
const maxExpandDepth = 100

var registry = scanner.Registry{
	"def":     scanner.Command,
	"undef":   scanner.Command,
	"include": scanner.Command,
	"begin":   scanner.Command,
	"end":     scanner.Command,
	"date":    scanner.Command,
	"line":    scanner.Command,
	"file":    scanner.Command,
	"error":   scanner.Command,
	"warning": scanner.Command,

	"if":            scanner.Block,
	"for":           scanner.Block,
	"repeat":        scanner.Block,
	"verbatim":      scanner.Block,
	"upper":         scanner.Block,
	"lower":         scanner.Block,
	"capitalize":    scanner.Block,
	"escape_html":   scanner.Block,
	"unescape_html": scanner.Block,
}

// Engine drives one processing run. A run owns its context stack and macro
// table; runs over separate documents must not share an Engine.
type Engine struct {
	mode  diag.Mode
	stack source.ContextStack
	scan  *scanner.Scanner

	macros map[string]string

	// directory include paths resolve against
	dir string

	depth int
}

func New(mode diag.Mode) *Engine {
	return &Engine{
		mode:   mode,
		scan:   scanner.New(registry),
		macros: make(map[string]string),
	}
}

// Define predefines a macro, as with the -D command line flag.
func (e *Engine) Define(name, value string) error {
	if !scanner.IsIdentifier(name) {
		return fmt.Errorf("invalid macro name %q", name)
	}
	if _, reserved := registry[name]; reserved {
		return fmt.Errorf("macro name %q shadows a built-in directive", name)
	}
	e.macros[name] = value
	return nil
}

// ProcessFile reads path and processes its contents. Includes resolve
// relative to the file's directory.
func (e *Engine) ProcessFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading source file: %w", err)
	}
	e.dir = filepath.Dir(path)
	return e.ProcessText(path, string(b))
}

// ProcessText processes text, using file as the source identifier in
// diagnostics.
func (e *Engine) ProcessText(file, text string) (string, error) {
	ctx := source.NewContext(file, text, "")
	e.stack.Push(ctx)
	defer e.stack.Pop()
	return e.process(text, 0)
}

// process is the executor loop over one buffer. offset is the buffer's
// distance from the true source start; positions the scanner reports are
// absolute, and their relative views index buf directly. Replacement text
// is spliced in and never rescanned, so the cursor always advances and
// processing terminates.
func (e *Engine) process(buf string, offset int) (string, error) {
	cursor := 0
	for {
		d, err := e.scan.Next(buf, cursor, offset)
		if err != nil {
			return "", e.scanDiag(err)
		}
		if d == nil {
			break
		}
		repl, rewrite, err := e.execute(d, buf)
		if err != nil {
			return "", err
		}
		if !rewrite {
			// leave the directive text in place (Hide/Print fallback)
			cursor = d.Pos.RelativeEnd()
			continue
		}
		relBegin := d.Pos.RelativeBegin()
		relEnd := d.Pos.RelativeEnd()
		if d.Known && d.Kind == scanner.Block {
			relEnd = d.Pos.RelativeEndBlockEnd()
		}
		buf = buf[:relBegin] + repl + buf[relEnd:]
		if delta := len(repl) - (relEnd - relBegin); delta != 0 {
			// position measured in the buffer state after the edit
			e.stack.Current().AddDilatation(offset+relBegin+len(repl), delta)
		}
		cursor = relBegin + len(repl)
	}
	return buf, nil
}

func (e *Engine) execute(d *scanner.Directive, buf string) (string, bool, error) {
	if !d.Known {
		return e.executeUnknown(d)
	}
	if d.Kind == scanner.Block {
		return e.executeBlock(d, buf)
	}
	return e.executeCommand(d)
}

func (e *Engine) executeUnknown(d *scanner.Directive) (string, bool, error) {
	if val, ok := e.macros[d.Name]; ok {
		out, err := e.expandMacro(d, val)
		if err != nil {
			return "", false, err
		}
		return out, true, nil
	}
	var msg string
	switch {
	case d.Name == "else" || d.Name == "elif":
		msg = fmt.Sprintf("{%% %s %%} outside an if block", d.Name)
	case isStrayEnd(d.Name):
		msg = fmt.Sprintf("unmatched {%% %s %%}", d.Name)
	default:
		msg = fmt.Sprintf("unknown command %q", d.Name)
	}
	if err := e.warnAt(d.Pos, "%s", msg); err != nil {
		return "", false, err
	}
	return "", false, nil
}

func isStrayEnd(name string) bool {
	rest := strings.TrimPrefix(name, "end")
	if rest == name {
		return false
	}
	kind, ok := registry[rest]
	return ok && kind == scanner.Block
}

// expandMacro processes the macro's value in a pushed expansion context, so
// diagnostics inside the value point into the macro body.
func (e *Engine) expandMacro(d *scanner.Directive, val string) (string, error) {
	if e.depth >= maxExpandDepth {
		return "", e.errorAt(d.Pos, "recursion depth exceeded expanding macro %q", d.Name)
	}
	e.depth++
	defer func() { e.depth-- }()
	cur := e.stack.Current()
	ctx := source.NewContext(cur.File, val, fmt.Sprintf("in macro %q", d.Name))
	e.stack.Push(ctx)
	defer e.stack.Pop()
	return e.process(val, 0)
}

// processRegion processes buf[relStart:relEnd] under a re-described copy of
// the current context. Dilatations the region records land on the copy and
// are discarded with it; the caller records the single net dilatation for
// the whole region when it splices the result.
func (e *Engine) processRegion(buf string, relStart, relEnd, offset int, desc string) (string, error) {
	if e.depth >= maxExpandDepth {
		return "", fmt.Errorf("recursion depth exceeded")
	}
	e.depth++
	defer func() { e.depth-- }()
	ctx := e.stack.Current().Copy()
	ctx.Desc = desc
	e.stack.Push(ctx)
	defer e.stack.Pop()
	return e.process(buf[relStart:relEnd], offset+relStart)
}

func (e *Engine) scanDiag(err error) error {
	se, ok := err.(*scanner.Error)
	if !ok {
		return err
	}
	return e.errorAt(se.Pos, "%s", se.Msg)
}

func (e *Engine) diagAt(sev diag.Severity, pos *source.Position, format string, args ...any) diag.Diag {
	ctx := e.stack.Current()
	line, col := ctx.LineNumber(pos.Begin)
	return diag.Diag{
		Severity: sev,
		File:     ctx.File,
		Line:     line,
		Column:   col,
		Desc:     ctx.Desc,
		Message:  fmt.Sprintf(format, args...),
	}
}

// warnAt reports a recoverable condition through the warning policy. A nil
// result means continue.
func (e *Engine) warnAt(pos *source.Position, format string, args ...any) error {
	return e.mode.Apply(e.diagAt(diag.Warning, pos, format, args...))
}

// errorAt builds a fatal, located error. It bypasses mode selection: errors
// stop the current file in every mode.
func (e *Engine) errorAt(pos *source.Position, format string, args ...any) error {
	return e.diagAt(diag.Error, pos, format, args...)
}
