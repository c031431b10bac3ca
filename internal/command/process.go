// Package command implements the operations behind the pproc command line:
// processing input files and watching them for changes.
package command

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"preproc/internal/diag"
	"preproc/internal/engine"
)

type Options struct {
	Mode diag.Mode

	// Defines predefines macros, as from -D flags.
	Defines map[string]string

	// OutPath overrides the output destination; valid with a single input
	// only. Empty means stdout for one input and <input>.out next to each
	// of several inputs.
	OutPath string
}

// ProcessFile runs one input file through a fresh engine. Every file gets
// its own engine so runs never share a context stack or macro table.
func ProcessFile(path string, opts Options) (string, error) {
	e := engine.New(opts.Mode)
	for name, val := range opts.Defines {
		if err := e.Define(name, val); err != nil {
			return "", err
		}
	}
	out, err := e.ProcessFile(path)
	if err != nil {
		return "", fmt.Errorf("processing %s: %w", path, err)
	}
	return out, nil
}

// Run processes the input files and writes their outputs. Multiple inputs
// are independent of each other and are processed concurrently.
func Run(paths []string, opts Options) error {
	if len(paths) == 0 {
		return fmt.Errorf("no input files")
	}
	if opts.OutPath != "" && len(paths) > 1 {
		return fmt.Errorf("-o cannot be combined with multiple input files")
	}

	if len(paths) == 1 {
		out, err := ProcessFile(paths[0], opts)
		if err != nil {
			return err
		}
		if opts.OutPath == "" {
			_, err := os.Stdout.WriteString(out)
			return err
		}
		return os.WriteFile(opts.OutPath, []byte(out), 0644)
	}

	g := new(errgroup.Group)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			out, err := ProcessFile(path, opts)
			if err != nil {
				return err
			}
			return os.WriteFile(path+".out", []byte(out), 0644)
		})
	}
	return g.Wait()
}
