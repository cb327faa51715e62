// Command wasmcalc runs the adder and accumulator WebAssembly guests.
//
//	wasmcalc run adder.wasm
//	wasmcalc add adder.wasm 10 13
//	wasmcalc accumulate accumulator.wasm 1 2 3 4
//	wasmcalc string accumulator.wasm
//
// "run" needs a guest built as a WASI command. The others need one built as a
// WASI reactor (-buildmode=c-shared).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/experimental/logging"

	"github.com/wasmcalc/wasmcalc"
	"github.com/wasmcalc/wasmcalc/internal/version"
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	subCmd := flag.Arg(0)
	args := flag.Args()[1:]
	switch subCmd {
	case "run":
		doRun(args, stdOut, stdErr, exit)
	case "add":
		doAdd(args, stdOut, stdErr, exit)
	case "accumulate":
		doAccumulate(args, stdOut, stdErr, exit)
	case "string":
		doString(args, stdOut, stdErr, exit)
	case "version":
		fmt.Fprintf(stdOut, "%s (wazero %s)\n", version.GetVersion(), version.GetWazeroVersion())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

// command is what every subcommand parses before doing its work.
type command struct {
	name, usage string
	flags       *flag.FlagSet

	help        bool
	interp      bool
	trace       bool
	cacheDir    string
	hostlogging logScopesFlag
}

func newCommand(name, usage string, stdErr io.Writer) *command {
	c := &command{name: name, usage: usage, flags: flag.NewFlagSet(name, flag.ExitOnError)}
	c.flags.SetOutput(stdErr)

	c.flags.BoolVar(&c.help, "h", false, "print usage")
	c.flags.BoolVar(&c.interp, "interp", false, "force interpreter")
	c.flags.BoolVar(&c.trace, "trace", false, "log every function call to stderr. This is very verbose.")
	c.flags.StringVar(&c.cacheDir, "cachedir", "", "Writeable directory for native code compiled from wasm. "+
		"Contents are re-used for the same version of wazero.")
	c.flags.Var(&c.hostlogging, "hostlogging",
		"A comma-separated list of host function scopes to log to stderr. "+
			"This may be specified multiple times. Supported values: all,clock,filesystem,memory,poll,proc,random,sock")
	return c
}

// parse parses args and reads the wasm file named by the first positional
// argument. It returns the remaining positional arguments.
func (c *command) parse(args []string, stdErr io.Writer, exit func(code int)) (wasm []byte, wasmPath string, rest []string) {
	_ = c.flags.Parse(args)

	if c.help {
		c.printUsage(stdErr)
		exit(0)
	}

	if c.flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		c.printUsage(stdErr)
		exit(1)
	}
	wasmPath = c.flags.Arg(0)
	rest = c.flags.Args()[1:]

	wasm, err := os.ReadFile(wasmPath)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading wasm binary: %v\n", err)
		exit(1)
	}
	return
}

// config returns the runtime configuration the flags select.
func (c *command) config(stdOut io.Writer, stdErr logging.Writer) wasmcalc.Config {
	cfg := wasmcalc.NewConfig().
		WithInterpreter(c.interp).
		WithCompilationCacheDir(c.cacheDir).
		WithStdout(stdOut).
		WithStderr(stdErr)
	if c.hostlogging != 0 {
		cfg = cfg.WithHostLogging(stdErr, logging.LogScopes(c.hostlogging))
	}
	if c.trace {
		cfg = cfg.WithCallTracing(stdErr)
	}
	return cfg
}

func (c *command) newRuntime(ctx context.Context, cfg wasmcalc.Config, stdErr io.Writer, exit func(code int)) *wasmcalc.Runtime {
	rt, err := wasmcalc.NewRuntime(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "error creating runtime: %v\n", err)
		exit(1)
	}
	return rt
}

func (c *command) printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "wasmcalc CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintf(stdErr, "Usage:\n  wasmcalc %s %s\n", c.name, c.usage)
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	c.flags.PrintDefaults()
}

func doRun(args []string, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	c := newCommand("run", "<options> <path to wasm file> [--] <wasm args>", stdErr)
	wasm, wasmPath, wasmArgs := c.parse(args, stdErr, exit)

	// Skip "--" if provided
	if len(wasmArgs) > 0 && wasmArgs[0] == "--" {
		wasmArgs = wasmArgs[1:]
	}

	ctx := context.Background()
	cfg := c.config(stdOut, stdErr).WithArgs(append([]string{filepath.Base(wasmPath)}, wasmArgs...)...)
	rt := c.newRuntime(ctx, cfg, stdErr, exit)
	defer rt.Close(ctx)

	code, err := rt.Run(ctx, wasm)
	if err != nil {
		fmt.Fprintf(stdErr, "error running wasm binary: %v\n", err)
		exit(1)
	}
	exit(int(code))
}

func doAdd(args []string, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	c := newCommand("add", "<options> <path to wasm file> <a> <b>", stdErr)
	wasm, _, operands := c.parse(args, stdErr, exit)

	if len(operands) != 2 {
		fmt.Fprintf(stdErr, "expected 2 operands, but have %d\n", len(operands))
		c.printUsage(stdErr)
		exit(1)
	}
	values := parseInt32s(operands, stdErr, exit)

	ctx := context.Background()
	rt := c.newRuntime(ctx, c.config(stdOut, stdErr), stdErr, exit)
	defer rt.Close(ctx)

	a, err := rt.InstantiateAdder(ctx, wasm)
	if err != nil {
		fmt.Fprintf(stdErr, "error instantiating wasm binary: %v\n", err)
		exit(1)
	}
	sum, err := a.AddNums(ctx, values[0], values[1])
	if err != nil {
		fmt.Fprintf(stdErr, "error calling addNums: %v\n", err)
		exit(1)
	}
	fmt.Fprintln(stdOut, sum)
	exit(0)
}

func doAccumulate(args []string, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	c := newCommand("accumulate", "<options> <path to wasm file> [values...]", stdErr)
	wasm, _, operands := c.parse(args, stdErr, exit)
	values := parseInt32s(operands, stdErr, exit)

	ctx := context.Background()
	rt := c.newRuntime(ctx, c.config(stdOut, stdErr), stdErr, exit)
	defer rt.Close(ctx)

	a, err := rt.InstantiateAccumulator(ctx, wasm)
	if err != nil {
		fmt.Fprintf(stdErr, "error instantiating wasm binary: %v\n", err)
		exit(1)
	}
	sum, err := a.Accumulate(ctx, values)
	if err != nil {
		fmt.Fprintf(stdErr, "error calling accumulate: %v\n", err)
		exit(1)
	}
	fmt.Fprintln(stdOut, sum)
	exit(0)
}

func doString(args []string, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	c := newCommand("string", "<options> <path to wasm file>", stdErr)
	wasm, _, _ := c.parse(args, stdErr, exit)

	ctx := context.Background()
	rt := c.newRuntime(ctx, c.config(stdOut, stdErr), stdErr, exit)
	defer rt.Close(ctx)

	a, err := rt.InstantiateAccumulator(ctx, wasm)
	if err != nil {
		fmt.Fprintf(stdErr, "error instantiating wasm binary: %v\n", err)
		exit(1)
	}
	s, err := a.GetString(ctx)
	if err != nil {
		fmt.Fprintf(stdErr, "error calling getString: %v\n", err)
		exit(1)
	}
	fmt.Fprintln(stdOut, s)
	exit(0)
}

func parseInt32s(args []string, stdErr io.Writer, exit func(code int)) []int32 {
	values := make([]int32, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			fmt.Fprintf(stdErr, "invalid int32 %q: %v\n", arg, err)
			exit(1)
		}
		values = append(values, int32(v))
	}
	return values
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "wasmcalc CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  wasmcalc <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  run\t\tRuns the entry routine of a guest built as a command")
	fmt.Fprintln(stdErr, "  add\t\tCalls addNums on an adder guest")
	fmt.Fprintln(stdErr, "  accumulate\tCalls accumulate on an accumulator guest")
	fmt.Fprintln(stdErr, "  string\tCalls getString on an accumulator guest")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of wasmcalc CLI")
}

type logScopesFlag logging.LogScopes

func (f *logScopesFlag) String() string {
	return logging.LogScopes(*f).String()
}

func (f *logScopesFlag) Set(input string) error {
	for _, s := range strings.Split(input, ",") {
		switch s {
		case "":
			continue
		case "all":
			*f |= logScopesFlag(logging.LogScopeAll)
		case "clock":
			*f |= logScopesFlag(logging.LogScopeClock)
		case "filesystem":
			*f |= logScopesFlag(logging.LogScopeFilesystem)
		case "memory":
			*f |= logScopesFlag(logging.LogScopeMemory)
		case "poll":
			*f |= logScopesFlag(logging.LogScopePoll)
		case "proc":
			*f |= logScopesFlag(logging.LogScopeProc)
		case "random":
			*f |= logScopesFlag(logging.LogScopeRandom)
		case "sock":
			*f |= logScopesFlag(logging.LogScopeSock)
		default:
			return errors.New("not a log scope")
		}
	}
	return nil
}
