package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// builtins are handled by the REPL itself.
var builtins = []string{"exit", "help", "history", "quit"}

// Executor runs one parsed line.
type Executor func(ctx context.Context, args []string) error

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithPrompt sets a function that renders the prompt before each line.
func WithPrompt(prompt func() string) Option {
	return func(r *REPL) { r.prompt = prompt }
}

// WithCompleter sets the completer.
func WithCompleter(c *Completer) Option {
	return func(r *REPL) { r.completer = c }
}

// WithHistory sets the history.
func WithHistory(h *History) Option {
	return func(r *REPL) { r.history = h }
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    func() string
	exec      Executor
	completer *Completer
	history   *History

	startOnce sync.Once
	lines     chan string
	readErr   error
	pending   []byte
}

// New creates a REPL that hands every non-builtin line to exec.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		prompt:    func() string { return "> " },
		exec:      exec,
		completer: NewCompleter(nil),
		history:   NewHistory("", DefaultHistorySize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// startReader pumps input lines into a channel so Run can stop on context
// cancellation while a read is blocked.
func (r *REPL) startReader() {
	r.startOnce.Do(func() {
		r.lines = make(chan string)
		go func() {
			defer close(r.lines)
			reader := bufio.NewReader(r.input)
			for {
				line, err := reader.ReadString('\n')
				if line != "" {
					r.lines <- strings.TrimRight(line, "\r\n")
				}
				if err != nil {
					if !errors.Is(err, io.EOF) {
						r.readErr = err
					}
					return
				}
			}
		}()
	})
}

// Input returns a reader over the same line stream the REPL consumes, for
// commands that prompt while the REPL is running.
func (r *REPL) Input() io.Reader {
	return lineReader{r}
}

type lineReader struct{ r *REPL }

func (l lineReader) Read(p []byte) (int, error) {
	r := l.r
	if len(r.pending) == 0 {
		r.startReader()
		line, ok := <-r.lines
		if !ok {
			return 0, io.EOF
		}
		r.pending = []byte(line + "\n")
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Run starts the loop. It returns nil on EOF, "exit" or "quit", and when
// ctx is canceled.
func (r *REPL) Run(ctx context.Context) error {
	r.startReader()

	for {
		fmt.Fprint(r.output, r.prompt())

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.output)
			return nil
		case l, ok := <-r.lines:
			if !ok {
				fmt.Fprintln(r.output)
				return r.readErr
			}
			line = l
		}

		if i := strings.IndexByte(line, '\t'); i >= 0 {
			r.complete(line[:i])
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line, err := r.expand(line)
		if err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
			continue
		}
		r.history.Add(line)

		switch line {
		case "exit", "quit":
			return nil
		case "history":
			for i, entry := range r.history.Entries() {
				fmt.Fprintf(r.output, "%5d  %s\n", i+1, entry)
			}
			continue
		}

		args, err := SplitArgs(line)
		if err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
			continue
		}
		if err := r.exec(ctx, args); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
	}
}

// expand resolves "!!" and "!N" history references.
func (r *REPL) expand(line string) (string, error) {
	if !strings.HasPrefix(line, "!") || len(line) < 2 {
		return line, nil
	}
	if line == "!!" {
		if prev := r.history.Get(0); prev != "" {
			fmt.Fprintln(r.output, prev)
			return prev, nil
		}
		return "", errors.New("history is empty")
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return line, nil
	}
	entry, ok := r.history.Entry(n)
	if !ok {
		return "", fmt.Errorf("no history entry %d", n)
	}
	fmt.Fprintln(r.output, entry)
	return entry, nil
}

func (r *REPL) complete(prefix string) {
	suggestions := r.completer.Complete(prefix)
	if len(suggestions) == 0 {
		fmt.Fprintln(r.output, "(no completions)")
		return
	}
	for _, s := range suggestions {
		fmt.Fprintln(r.output, "  "+s)
	}
}

// SplitArgs splits a line into arguments. Single and double quotes group
// words and a backslash escapes the next character outside single quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, ch := range line {
		switch {
		case escaped:
			cur.WriteRune(ch)
			escaped = false
		case ch == '\\' && quote != '\'':
			escaped = true
			inArg = true
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteRune(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inArg = true
		case ch == ' ' || ch == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(ch)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
