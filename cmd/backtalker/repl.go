package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmorg/readline"

	"github.com/chazu/backtalker/compiler"
	"github.com/chazu/backtalker/config"
	"github.com/chazu/backtalker/history"
	"github.com/chazu/backtalker/vm"
)

const replChunk = "<repl>"

// repl holds the state of an interactive session between lines.
type repl struct {
	rt   *runtime
	out  io.Writer
	hist *history.Store
	buf  strings.Builder
}

func runREPL(rt *runtime, cfg *config.Config) error {
	hist, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer hist.Close()

	r := &repl{rt: rt, out: os.Stdout, hist: hist}
	rt.unclaimed = func(err error) {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	rline := readline.NewInstance()
	rline.History = hist
	rline.TabCompleter = r.complete

	fmt.Println("BackTalker REPL (type 'exit' to quit, ':help' for commands)")
	fmt.Println("End an indented block with an empty line.")
	fmt.Println()

	for {
		if r.continuing() {
			rline.SetPrompt(cfg.REPL.Continuation)
		} else {
			rline.SetPrompt(cfg.REPL.Prompt)
		}
		line, err := rline.Readline()
		if errors.Is(err, readline.CtrlC) {
			if r.continuing() {
				r.buf.Reset()
				continue
			}
			break
		}
		if err != nil {
			break
		}
		if !r.feed(line) {
			break
		}
	}

	fmt.Println()
	return nil
}

// openHistory opens the configured history database, falling back to
// ~/.backtalker/history.db and then to an in-memory store.
func openHistory(cfg *config.Config) (*history.Store, error) {
	path := cfg.HistoryPath()
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".backtalker", "history.db")
		}
	}
	if path != "" {
		store, err := history.Open(path, cfg.REPL.HistorySize)
		if err == nil {
			return store, nil
		}
		cliLog().Warningf("history disabled: %s", err)
	}
	return history.Open(history.Memory, cfg.REPL.HistorySize)
}

func (r *repl) continuing() bool {
	return r.buf.Len() > 0
}

// feed consumes one line of input. A line ending in a colon opens a
// block that collects lines until an empty one. feed returns false when
// the user asks to leave.
func (r *repl) feed(line string) bool {
	if r.continuing() {
		if strings.TrimSpace(line) == "" {
			input := r.buf.String()
			r.buf.Reset()
			r.evalAndPrint(input)
			return true
		}
		r.buf.WriteString("\n")
		r.buf.WriteString(line)
		return true
	}

	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return true
	case trimmed == "exit" || trimmed == "quit":
		return false
	case strings.HasPrefix(trimmed, ":"):
		r.command(trimmed)
		return true
	case compiler.OpensBlock(line):
		r.buf.WriteString(trimmed)
		return true
	}
	r.evalAndPrint(trimmed)
	return true
}

func (r *repl) evalAndPrint(input string) {
	res, err := r.rt.eval(input, replChunk)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	if !res.Done() {
		return
	}
	if v, _ := res.Get(); v != nil {
		fmt.Fprintf(r.out, "=> %s\n", vm.Format(v))
	}
}

func (r *repl) command(input string) {
	fields := strings.Fields(input)
	cmd, args := fields[0], strings.Join(fields[1:], " ")

	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?       Show this help")
		fmt.Fprintln(r.out, "  :functions [prefix] List function signatures")
		fmt.Fprintln(r.out, "  :vars               List top-level variables")
		fmt.Fprintln(r.out, "  :parked             Show scripts suspended on a wait")
		fmt.Fprintln(r.out, "  :dump <source>      Show compiled instructions for source")
		fmt.Fprintln(r.out, "  :history [text]     Show recent input, optionally matching text")
		fmt.Fprintln(r.out, "  exit, quit          Exit REPL")
	case ":functions", ":f":
		for _, h := range r.rt.signatures(args) {
			fmt.Fprintf(r.out, "  %-32s %s\n", h.Signature, h.Meta.Library)
		}
	case ":vars":
		for _, kv := range r.rt.variables() {
			fmt.Fprintf(r.out, "  $%s = %s\n", kv[0], kv[1])
		}
	case ":parked":
		states := r.rt.parked()
		if len(states) == 0 {
			fmt.Fprintln(r.out, "Nothing parked")
		}
		for _, s := range states {
			fmt.Fprintf(r.out, "  #%d %s line %d awaiting %q\n", s.ID, s.Chunk, s.Line, s.Awaiting)
		}
	case ":dump":
		if args == "" {
			fmt.Fprintln(r.out, "Usage: :dump <source>")
			return
		}
		ast, err := compiler.Parse(args, replChunk)
		if err == nil {
			var listing string
			if listing, err = compiler.Disassemble(ast); err == nil {
				fmt.Fprint(r.out, listing)
			}
		}
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
	case ":history":
		lines, err := r.hist.Search(args, 20)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return
		}
		for i := len(lines) - 1; i >= 0; i-- {
			fmt.Fprintf(r.out, "  %s\n", lines[i])
		}
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// complete offers the remaining words of every signature matching what
// has been typed on the line so far.
func (r *repl) complete(line []rune, pos int, _ readline.DelayedTabContext) (string, []string, map[string]string, readline.TabDisplayType) {
	typed := string(line[:pos])
	prefix, ok := compiler.SignaturePrefix(typed)
	if !ok {
		return "", nil, nil, readline.TabDisplayGrid
	}

	// Characters of the current word already on the line.
	partial := ""
	if !strings.HasSuffix(prefix, " ") {
		words := strings.Fields(prefix)
		if n := len(words); n > 0 {
			partial = words[n-1]
		}
	}
	done := len(strings.Fields(prefix))
	if partial != "" {
		done--
	}

	var suggestions []string
	descriptions := make(map[string]string)
	seen := make(map[string]bool)
	for _, h := range r.rt.signatures(prefix) {
		s := strings.TrimPrefix(compiler.InsertWords(strings.Fields(h.Signature)[done:]), partial)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		suggestions = append(suggestions, s)
		descriptions[s] = h.Signature
	}
	return partial, suggestions, descriptions, readline.TabDisplayList
}
