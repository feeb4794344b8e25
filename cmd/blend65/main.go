// Command blend65 reads source files from disk, compiles them, prints
// diagnostics, and writes the requested output. No compiler logic lives
// here — it all lives in internal/compiler and the packages behind it.
//
// The command/flag structure follows chriskillpack-bbcdisasm's
// cli.NewApp()/Commands/Flags shape, each command validating its own args
// before dispatching to a plain function that does the real work, using
// the urfave/cli/v2 API (a *cli.Command slice, a context-aware Action
// signature, cli.Exit for a non-zero exit with a message).
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/blendsdk/blend65/internal/compiler"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/target"
)

func main() {
	app := &cli.App{
		Name:  "blend65",
		Usage: "compile Blend65 source into 6502 machine code",
		Commands: []*cli.Command{
			compileCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "compile one or more Blend65 source files",
		ArgsUsage: "FILES...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "target", Value: "c64", Usage: fmt.Sprintf("target hardware profile (%s)", strings.Join(target.List(), "|"))},
			&cli.StringFlag{Name: "opt", Value: "basic", Usage: "optimization level (off|basic|full)"},
			&cli.StringFlag{Name: "emit", Value: "asm", Usage: "output shape (asm|binary)"},
			&cli.BoolFlag{Name: "warnings-as-errors", Usage: "treat every warning as an error"},
			&cli.IntFlag{Name: "max-diagnostics", Value: 0, Usage: "stop accumulating diagnostics after this many errors (0 = unlimited)"},
			&cli.IntFlag{Name: "zero-page-budget", Value: 0, Usage: "override the target's default zero-page budget (0 = target default)"},
			&cli.StringFlag{Name: "out", Usage: "output file path (stdout when omitted, required for --emit binary)"},
		},
		Action: runCompile,
	}
}

func runCompile(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("blend65 compile: no input files given", 1)
	}

	opts := compiler.Options{
		Target:              c.String("target"),
		Optimization:        compiler.Optimization(c.String("opt")),
		Emit:                compiler.Emit(c.String("emit")),
		AllowIllegalOpcodes: false, // reserved; not exposed on the CLI yet
		MaxDiagnostics:      c.Int("max-diagnostics"),
		WarningsAsErrors:    c.Bool("warnings-as-errors"),
		ZeroPageBudget:      c.Int("zero-page-budget"),
	}
	if opts.Emit == compiler.EmitBinary && c.String("out") == "" {
		return cli.Exit("blend65 compile: --emit binary requires --out", 1)
	}

	inputs := make([]compiler.Input, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("blend65 compile: %v", err), 1)
		}
		inputs = append(inputs, compiler.Input{Name: path, Text: string(data)})
	}

	result := compiler.Compile(inputs, opts)
	printDiagnostics(c.App.ErrWriter, result)

	hasErrors := false
	for _, d := range result.Diagnostics {
		if d.Severity == source.Error || d.Severity == source.Internal {
			hasErrors = true
			break
		}
	}
	if hasErrors {
		return cli.Exit("", 1)
	}

	if err := writeOutputs(result, c.String("out")); err != nil {
		return cli.Exit(fmt.Sprintf("blend65 compile: %v", err), 1)
	}
	return nil
}

func printDiagnostics(w io.Writer, result *compiler.Result) {
	for _, d := range source.SortStable(result.Diagnostics) {
		fmt.Fprint(w, source.Render(result.Map, d))
	}
}

// writeOutputs writes Compile's result to outPath, or to stdout when
// outPath is empty. A binary Emit always produces exactly one Output (the
// linked image); an asm Emit produces one per module, concatenated with a
// header comment naming which module follows.
func writeOutputs(result *compiler.Result, outPath string) error {
	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		return writeOutputsTo(f, result)
	}
	return writeOutputsTo(w, result)
}

func writeOutputsTo(f *os.File, result *compiler.Result) error {
	for _, o := range result.Outputs {
		if o.Binary != nil {
			_, err := f.Write(o.Binary)
			if err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(f, "; module %s\n%s\n", o.ModuleName, o.Assembly); err != nil {
			return err
		}
	}
	return nil
}
