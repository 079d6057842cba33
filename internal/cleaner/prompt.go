package cleaner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator a yes/no question. Confirm returns ctx.Err()
// if ctx ends while waiting for an answer.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// StdinIsTerminal reports whether standard input is an interactive terminal.
func StdinIsTerminal() bool {
	return isTerminal(int(os.Stdin.Fd()))
}

// LinePrompter reads answers line by line from a reader.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer

	// pending is the read still in flight after a cancelled Confirm
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewLinePrompter creates a prompter reading from in and writing prompts to out
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// ParseAnswer maps a response to a decision. ok is false when the response
// is neither a yes nor a no.
func ParseAnswer(response string) (yes bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	default:
		return false, false
	}
}

// Confirm asks question until a valid answer is given. Input ending before
// a valid answer returns io.EOF and counts as a no.
func (p *LinePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		if _, err := fmt.Fprintf(p.out, "%s (y/n): ", question); err != nil {
			return false, err
		}

		line, err := p.readLine(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			fmt.Fprintln(p.out)
			return false, ctxErr
		}
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			fmt.Fprintln(p.out)
			return false, err
		}

		yes, ok := ParseAnswer(line)
		if ok {
			return yes, nil
		}
		fmt.Fprintln(p.out, "Invalid response.")
		if err != nil {
			// partial last line that was not a valid answer
			return false, err
		}
	}
}

// readLine waits for the next line or for ctx to end. A read that outlives
// ctx is kept and its line handed to the next call.
func (p *LinePrompter) readLine(ctx context.Context) (string, error) {
	if p.pending == nil {
		ch := make(chan lineResult, 1)
		go func() {
			line, err := p.in.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
		p.pending = ch
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-p.pending:
		p.pending = nil
		return r.line, r.err
	}
}
