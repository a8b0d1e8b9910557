// BackTalker CLI - runs scripts, the REPL, the eval server and the
// language server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/backtalker/compiler"
	"github.com/chazu/backtalker/config"
	"github.com/chazu/backtalker/server"
	"github.com/chazu/backtalker/vm"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output (debug logging)")
	interactive := flag.Bool("i", false, "Start interactive REPL after running any scripts")
	expr := flag.String("e", "", "Evaluate source and print the result")
	configDir := flag.String("config", "", "Directory holding "+config.FileName+" (default: search upward from the working directory)")
	dump := flag.Bool("dump", false, "Print the compiled instructions instead of running")
	serveMode := flag.Bool("serve", false, "Start the eval server (Connect, CBOR/JSON)")
	addr := flag.String("addr", "", "Eval server address (overrides server.addr in the config)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	noPreload := flag.Bool("no-preload", false, "Skip the preload scripts named in the config")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: backtalker [options] [scripts...]\n\n")
		fmt.Fprintf(os.Stderr, "Runs BackTalker scripts. With no scripts and no -e, starts the REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  backtalker                        # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  backtalker hello.bt               # Run a script\n")
		fmt.Fprintf(os.Stderr, "  backtalker -e \"print (1 + 2)\"     # Evaluate a line\n")
		fmt.Fprintf(os.Stderr, "  backtalker -dump hello.bt         # Show compiled instructions\n")
		fmt.Fprintf(os.Stderr, "  backtalker lib.bt -i              # Load a script, then start REPL\n")
		fmt.Fprintf(os.Stderr, "\nServers:\n")
		fmt.Fprintf(os.Stderr, "  backtalker -serve                 # Eval server on server.addr (localhost:7411)\n")
		fmt.Fprintf(os.Stderr, "  backtalker -serve -addr :8080     # Eval server on :8080\n")
		fmt.Fprintf(os.Stderr, "  backtalker -lsp                   # Language server for editors\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	verbosity := cfg.Log.Verbosity
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, cfg.LogFile())

	scripts := flag.Args()

	if *dump {
		if err := dumpScripts(scripts, *expr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var preload []string
	if !*noPreload {
		preload = cfg.PreloadPaths()
	}

	if *lspMode {
		lsp, err := server.NewLSP()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := lsp.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Language server error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *serveMode {
		listen := cfg.Server.Addr
		if *addr != "" {
			listen = *addr
		}
		opts := []server.Option{
			server.WithResultTTL(cfg.Server.ResultTTL.Duration, cfg.Server.SweepInterval.Duration),
		}
		for _, path := range preload {
			src, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			opts = append(opts, server.WithPreload(server.Script{Name: path, Source: string(src)}))
		}
		srv := server.New(opts...)
		defer srv.Stop()
		if err := srv.ListenAndServe(listen); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	rt, err := newRuntime(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.stop()

	for _, path := range append(preload, scripts...) {
		cliLog().Debugf("running %s", path)
		if err := rt.runFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			rt.stop()
			os.Exit(1)
		}
	}

	if *expr != "" {
		v, err := rt.run(*expr, "<-e>")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			rt.stop()
			os.Exit(1)
		}
		if v != nil {
			fmt.Println(vm.Format(v))
		}
	}

	if *interactive || (len(scripts) == 0 && *expr == "") {
		if err := runREPL(rt, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			rt.stop()
			os.Exit(1)
		}
	}
}

// loadConfig reads the config from dir, or searches upward from the
// working directory when dir is empty. No config file means defaults.
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
		return config.Default(), nil
	}
	return cfg, nil
}

// dumpScripts prints the disassembly of each script, or of expr when no
// scripts are given.
func dumpScripts(paths []string, expr string) error {
	if len(paths) == 0 {
		if expr == "" {
			return fmt.Errorf("-dump needs scripts or -e")
		}
		return dumpSource(expr, "<-e>")
	}
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := dumpSource(string(src), path); err != nil {
			return err
		}
	}
	return nil
}

func dumpSource(source, chunk string) error {
	ast, err := compiler.Parse(source, chunk)
	if err != nil {
		return err
	}
	listing, err := compiler.Disassemble(ast)
	if err != nil {
		return err
	}
	fmt.Print(listing)
	return nil
}

func cliLog() commonlog.Logger {
	return commonlog.GetLogger("backtalker.cli")
}
