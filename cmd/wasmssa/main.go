// Command wasmssa drives the DataFlow builder and the binary writer
// over a handful of built-in demo functions, for inspecting their
// output without a real parser front-end wired up.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/renesugar/binaryen/dataflow"
	"github.com/renesugar/binaryen/stackir"
	"github.com/renesugar/binaryen/wasmir"
	"github.com/renesugar/binaryen/wasmwriter"
)

func main() {
	buildCmd := &cli.Command{
		Name:        "build",
		Description: "run the DataFlow builder over a demo function and dump the resulting arena",
		Action:      buildAct,
		Args:        cli.Args{},
	}
	stackCmd := &cli.Command{
		Name:        "stack",
		Description: "flatten a demo function's body into Stack IR and dump it",
		Action:      stackAct,
		Args:        cli.Args{},
	}
	emitCmd := &cli.Command{
		Name:        "emit",
		Description: "serialize a demo function to the WASM binary format",
		Action:      emitAct,
		Args:        cli.Args{},
	}
	listCmd := &cli.Command{
		Name:        "list",
		Description: "list the names of the built-in demo functions",
		Action:      listAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "wasmssa",
		Description: "wasmssa builds and emits DataFlow SSA IR from a built-in set of demo WebAssembly function bodies",
		Commands:    []*cli.Command{buildCmd, stackCmd, emitCmd, listCmd},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func demoFunc(name string) (*wasmir.Func, error) {
	mk, ok := demos[name]
	if !ok {
		names := make([]string, 0, len(demos))
		for n := range demos {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, errors.New("unknown demo %q, have: %s", name, strings.Join(names, ", "))
	}
	return mk(), nil
}

func listAct(c *cli.Command) error {
	names := make([]string, 0, len(demos))
	for n := range demos {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func buildAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		f, err := demoFunc(a)
		if err != nil {
			return errors.Wrap(err, "build %v", a)
		}

		res, err := dataflow.Build(ctx, f)
		if err != nil {
			return errors.Wrap(err, "build %v", a)
		}

		fmt.Printf("%s", dataflow.Dump(nil, res.Arena))
	}
	return nil
}

func stackAct(c *cli.Command) (err error) {
	for _, a := range c.Args {
		f, err := demoFunc(a)
		if err != nil {
			return errors.Wrap(err, "stack %v", a)
		}

		seq := stackir.Build(f.Body)
		fmt.Printf("%s", stackir.Dump(nil, seq))
	}
	return nil
}

func emitAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	w := wasmwriter.New()
	for _, a := range c.Args {
		f, err := demoFunc(a)
		if err != nil {
			return errors.Wrap(err, "emit %v", a)
		}

		out, err := w.Emit(ctx, nil, f)
		if err != nil {
			return errors.Wrap(err, "emit %v", a)
		}

		if _, err := os.Stdout.Write(out); err != nil {
			return errors.Wrap(err, "write output")
		}
	}
	return nil
}
