// Command asm2wasm compiles a small AT&T-syntax assembly dialect into a
// stack-based, WebAssembly-style module: a textual `.wat` and a binary
// envelope stub `.wasm`.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/famasoon/asm2wasm/compiler"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

const usage = `usage: asm2wasm [--wasm file] [--wast file] <input>

  --wasm file   write the binary envelope stub here (default: <input base>.wasm)
  --wast file   write the textual module here (default: <input base>.wat)
  -h, --help    print this message and exit
`

func main() {
	app := &cli.Command{
		Name:        "asm2wasm",
		Description: "compile AT&T-syntax assembly into a stack-based wasm-style module",
		Action:      run,
		Args:        cli.Args{},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func run(c *cli.Command) error {
	var wasmOut, wastOut, input string

	args := []string(c.Args)
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "-h" || a == "--help":
			fmt.Print(usage)
			os.Exit(0)
		case a == "--wasm":
			i++
			if i >= len(args) {
				return exitError("--wasm requires a file argument")
			}
			wasmOut = args[i]
		case a == "--wast":
			i++
			if i >= len(args) {
				return exitError("--wast requires a file argument")
			}
			wastOut = args[i]
		case strings.HasPrefix(a, "-"):
			return exitError(fmt.Sprintf("unknown flag %q", a))
		case input != "":
			return exitError("exactly one input file is allowed")
		default:
			input = a
		}
	}

	if input == "" {
		return exitError("missing input file")
	}

	base := strings.TrimSuffix(input, filepath.Ext(input))
	if wasmOut == "" {
		wasmOut = base + ".wasm"
	}
	if wastOut == "" {
		wastOut = base + ".wat"
	}

	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	art, err := compiler.CompileFile(ctx, input)
	if err != nil {
		return exitError(err.Error())
	}

	if err := os.WriteFile(wastOut, []byte(art.Text), 0o644); err != nil {
		return exitError(errors.Wrap(err, "write %v", wastOut).Error())
	}
	if err := os.WriteFile(wasmOut, art.Binary, 0o644); err != nil {
		return exitError(errors.Wrap(err, "write %v", wasmOut).Error())
	}

	fmt.Println("----------------------------------------")
	fmt.Print(art.Text)
	fmt.Println("----------------------------------------")

	return nil
}

// exitError prints msg to standard error and exits 1 directly, since
// cli.RunAndExit's own non-zero path is reserved for argument-routing
// failures rather than component errors we want worded our own way.
func exitError(msg string) error {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
	return nil
}
