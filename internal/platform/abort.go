package platform

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// Abort terminates the process. §7: "Fatal invariants ... All call
// abort()." Anything reaching here is a defect, not a recoverable
// condition — an illegal coordinator transition, a corrupt opcode, an
// allocation request larger than a nursery can ever satisfy.
//
// The message is colored when stderr is a terminal (detected with
// mattn/go-isatty, listed but never directly used in the host's go.mod) so
// a fatal abort stands out in an interactive session without adding escape
// codes to piped/redirected output.
func Abort(reason string) {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(os.Stderr, "\x1b[31mfatal: %s\x1b[0m\n", reason)
	} else {
		fmt.Fprintf(os.Stderr, "fatal: %s\n", reason)
	}
	os.Exit(2)
}

// Assert calls Abort(reason) when v is false. §4.A: "assertion failure
// calls it."
func Assert(v bool, reason string) {
	if !v {
		Abort(reason)
	}
}
