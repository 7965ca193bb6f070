package reconcile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Resolver decides the direction for one conflicting field. Implementations
// may prompt a human, apply a fixed policy, or replay scripted decisions; the
// engine depends only on this contract.
type Resolver interface {
	Resolve(serial, field, local, remote string) (Direction, error)
}

// PromptResolver asks the operator to choose a direction on the terminal.
type PromptResolver struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptResolver creates a resolver reading decisions from in and writing
// prompts to out.
func NewPromptResolver(in io.Reader, out io.Writer) *PromptResolver {
	return &PromptResolver{in: bufio.NewReader(in), out: out}
}

// Resolve prompts until a recognizable answer arrives. A read failure (e.g.
// closed stdin) is treated as an abort so a detached run cannot spin forever.
func (r *PromptResolver) Resolve(serial, field, local, remote string) (Direction, error) {
	fmt.Fprintf(r.out, "\nConflict on %s for serial %s:\n", field, serial)
	fmt.Fprintf(r.out, "  local  = %q\n", local)
	fmt.Fprintf(r.out, "  remote = %q\n", remote)

	for {
		fmt.Fprint(r.out, "Keep [l]ocal, keep [r]emote, [s]kip, or [a]bort: ")

		line, err := r.in.ReadString('\n')
		if err != nil {
			return DirectionAbort, nil
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "l", "local":
			return DirectionAdoptLocal, nil
		case "r", "remote":
			return DirectionAdoptRemote, nil
		case "s", "skip":
			return DirectionSkip, nil
		case "a", "abort":
			return DirectionAbort, nil
		}
	}
}

// PolicyResolver answers every conflict with a fixed direction. It backs the
// non-interactive --resolve flag.
type PolicyResolver struct {
	Direction Direction
}

func (r PolicyResolver) Resolve(serial, field, local, remote string) (Direction, error) {
	return r.Direction, nil
}
