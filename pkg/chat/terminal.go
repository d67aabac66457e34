package chat

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Terminal is the line-oriented console the loop talks to.
type Terminal interface {
	// Prompt writes prompt and reads one line of input without its line
	// ending. It returns io.EOF once input is exhausted.
	Prompt(prompt string) (string, error)
	Println(a ...interface{})
}

type terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) Terminal {
	return &terminal{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (t *terminal) Prompt(prompt string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := io.WriteString(t.out, prompt); err != nil {
		return "", errors.Wrap(err, "could not write prompt")
	}

	line, err := t.in.ReadString('\n')
	if err != nil {
		// a last line without a newline still counts
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if err == io.EOF {
			return "", io.EOF
		}
		return "", errors.Wrap(err, "could not read input")
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func (t *terminal) Println(a ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = fmt.Fprintln(t.out, a...)
}
