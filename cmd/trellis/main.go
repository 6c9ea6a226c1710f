// trellis sends one message to a value in a fresh interpreter and prints the
// result.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/trellis/bridge"
	"github.com/chazu/trellis/config"
	"github.com/chazu/trellis/vm"
)

var log = commonlog.GetLogger("trellis.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// splitArgv separates the program's own arguments from the ones after "--",
// which are handed to the guest as ARGV.
func splitArgv(args []string) (own, argv []string) {
	for n, a := range args {
		if a == "--" {
			return args[:n], args[n+1:]
		}
	}
	return args, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	own, argv := splitArgv(args)

	fs := flag.NewFlagSet("trellis", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", "", "Directory containing trellis.toml (default: search upward from the working directory)")
	fixture := fs.String("fixture", "", "File whose contents are bound to $fixture")
	copyright := fs.Bool("copyright", false, "Print the copyright notice and exit")
	verbose := fs.Bool("v", false, "Verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: trellis [options] RECV SELECTOR [ARGS...] [-- argv...]\n\n")
		fmt.Fprintf(stderr, "Sends SELECTOR to RECV with ARGS and prints the result's inspect.\n")
		fmt.Fprintf(stderr, "Literals: integers, floats, nil, true, false, :symbol, constant names;\n")
		fmt.Fprintf(stderr, "anything else is a string.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  trellis 7 div 2             # 3\n")
		fmt.Fprintf(stderr, "  trellis ARGV length -- a b  # 2\n")
		fmt.Fprintf(stderr, "  trellis -copyright\n")
	}
	if err := fs.Parse(own); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(stderr, "trellis: %v\n", err)
		return 1
	}
	verbosity := cfg.Interpreter.Verbosity
	if *verbose && verbosity < 2 {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	positional := fs.Args()
	if !*copyright && len(positional) < 2 {
		fs.Usage()
		return 2
	}

	interp, err := bridge.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "trellis: %v\n", err)
		return 1
	}
	defer interp.Close()

	worker := bridge.NewWorker(interp)
	defer worker.Stop()
	if d := cfg.GC.CollectInterval.Duration; d > 0 {
		collector := bridge.NewCollector(worker, d)
		collector.Start()
		defer collector.Stop()
	}

	out, err := worker.Do(func(i *bridge.Interp) (any, error) {
		if err := setup(i, cfg, argv, *fixture); err != nil {
			return nil, err
		}
		if *copyright {
			v, err := i.GlobalConstant("TRELLIS_COPYRIGHT")
			if err != nil {
				return nil, err
			}
			return string(i.ToS(v)), nil
		}
		return send(i, positional[0], positional[1], positional[2:])
	})
	if err != nil {
		var exc bridge.Exception
		if errors.As(err, &exc) {
			fmt.Fprintf(stderr, "%s (%s)\n", exc.Message(), exc.Name())
		} else {
			fmt.Fprintf(stderr, "trellis: %v\n", err)
		}
		return 1
	}
	fmt.Fprintln(stdout, out)
	return 0
}

func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// setup installs the release constants, ARGV and $fixture. Everything it
// allocates is reachable from a constant or global, so it outlives the
// call checkpoint.
func setup(i *bridge.Interp, cfg *config.Config, argv []string, fixture string) error {
	if err := bridge.InitRelease(i, cfg.Release); err != nil {
		return err
	}

	elems := make([]vm.Value, 0, len(argv))
	for _, a := range argv {
		elems = append(elems, i.Freeze(i.ConvertMutString(a)))
	}
	if err := i.DefineGlobalConstant("ARGV", i.Freeze(i.ConvertMutValues(elems))); err != nil {
		return err
	}

	if fixture == "" {
		return nil
	}
	data, err := os.ReadFile(fixture)
	if err != nil {
		log.Debugf("reading fixture: %v", err)
		return &bridge.GuestError{Class: "LoadError", Msg: []byte("cannot load such file -- " + fixture)}
	}
	return i.SetGlobalVariable("$fixture", i.ConvertMutBytes(data))
}

// send evaluates the receiver and arguments, sends the selector inside a
// checkpoint and returns the inspected result.
func send(i *bridge.Interp, recv, selector string, args []string) (any, error) {
	var out string
	err := i.WithArena(func(*bridge.Arena) error {
		r, err := parseLiteral(i, recv)
		if err != nil {
			return err
		}
		vals := make([]vm.Value, 0, len(args))
		for _, a := range args {
			v, err := parseLiteral(i, a)
			if err != nil {
				return err
			}
			vals = append(vals, v)
		}
		log.Infof("sending %s to %s with %d arguments", selector, recv, len(vals))
		result, err := i.Funcall(r, selector, vals...)
		if err != nil {
			return err
		}
		out = string(i.Inspect(result))
		return nil
	})
	return out, err
}

var constPath = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*(::[A-Z][A-Za-z0-9_]*)*$`)

func parseLiteral(i *bridge.Interp, s string) (vm.Value, error) {
	switch s {
	case "nil":
		return vm.Nil, nil
	case "true":
		return i.ConvertBool(true), nil
	case "false":
		return i.ConvertBool(false), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i.ConvertInt(n), nil
	}
	if strings.ContainsAny(s, "0123456789") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return i.ConvertFloat(f), nil
		}
	}
	if len(s) > 1 && s[0] == ':' {
		sym, err := i.Intern([]byte(s[1:]))
		if err != nil {
			return vm.Nil, err
		}
		return vm.FromSymbol(sym), nil
	}
	if constPath.MatchString(s) {
		if c := i.VM().ClassPath(s); c != nil {
			return c.Value(), nil
		}
		if v, err := i.GlobalConstant(s); err == nil {
			return v, nil
		}
	}
	return i.ConvertMutString(s), nil
}
