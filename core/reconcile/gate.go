package reconcile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Gate is the continuation check consulted after every Nth outbound update
// call. It is advisory backpressure: the remote service enforces a request-rate
// ceiling, and a human (or policy) decides whether to keep going.
type Gate interface {
	// Continue reports whether processing should proceed. A false return is
	// equivalent to an abort decision.
	Continue(requests int) bool
}

// PromptGate asks the operator whether to continue.
type PromptGate struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptGate creates a gate reading answers from in and writing prompts to out.
func NewPromptGate(in io.Reader, out io.Writer) *PromptGate {
	return &PromptGate{in: bufio.NewReader(in), out: out}
}

// Continue prompts for confirmation. Anything other than an explicit yes,
// including a read failure, declines.
func (g *PromptGate) Continue(requests int) bool {
	fmt.Fprintf(g.out, "\n%d update requests issued so far. Continue? [y/N]: ", requests)

	line, err := g.in.ReadString('\n')
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// AutoGate always continues. It backs the --yes flag.
type AutoGate struct{}

func (AutoGate) Continue(requests int) bool {
	return true
}
