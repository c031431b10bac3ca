// pproc preprocesses text files (code, markup, prose) containing embedded
// {% ... %} directives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"preproc/internal/command"
	"preproc/internal/diag"
	"preproc/internal/version"
)

type defineFlags map[string]string

func (d defineFlags) String() string {
	var pairs []string
	for name, val := range d {
		pairs = append(pairs, name+"="+val)
	}
	return strings.Join(pairs, ",")
}

func (d defineFlags) Set(s string) error {
	name, val, _ := strings.Cut(s, "=")
	if name == "" {
		return fmt.Errorf("want NAME or NAME=VALUE, got %q", s)
	}
	d[name] = val
	return nil
}

func main() {
	defines := make(defineFlags)
	outPath := flag.String("o", "", "write output to `path` (single input only)")
	warnings := flag.String("warnings", "print", "warning policy: hide, print, raise, or error")
	watch := flag.Bool("watch", false, "reprocess the input files whenever they change")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Var(defines, "D", "predefine a macro as `NAME=VALUE` (repeatable)")
	flag.Usage = printUsage
	flag.Parse()

	if *printVersion {
		fmt.Printf("pproc %s\n", version.Version())
		return
	}

	mode, err := diag.ParseMode(*warnings)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}

	opts := command.Options{Mode: mode, Defines: defines, OutPath: *outPath}

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := command.Watch(ctx, flag.Args(), opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := command.Run(flag.Args(), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "usage: pproc [flags] file...\n")
	flag.PrintDefaults()
}
