package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/arloliu/go-scopegrab/capture"
	"github.com/arloliu/go-scopegrab/scope"
)

// isTerminal reports whether the stream is attached to a terminal.
var isTerminal = func(stream any) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec
}

// confirmFunc returns how an unrecognized instrument is handled: accepted with
// --yes, asked about on a terminal, refused otherwise.
func (a *app) confirmFunc(assumeYes bool) capture.ConfirmFunc {
	return func(id scope.Identity) bool {
		fmt.Fprintf(a.stderr, "Found instrument model %q from %q\n", id.Model, id.Manufacturer)
		fmt.Fprintln(a.stderr, "WARNING: this is not a Rigol DS1000Z series oscilloscope")

		if assumeYes {
			return true
		}

		if !isTerminal(a.stdin) {
			fmt.Fprintln(a.stderr, "Not asking on a non-interactive input; use --yes to continue anyway")
			return false
		}

		return ask(a.stdin, a.stderr, "ARE YOU SURE YOU WANT TO CONTINUE? (No/Yes): ")
	}
}

// ask prints question and reports whether the answer is exactly "Yes".
func ask(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	return strings.TrimRight(line, "\r\n") == "Yes"
}
