// Command required checks records against requirement rules from the
// command line and can run the validation service.
//
//	required check --requires 'x -> x > y' record.json
//	required check --rules ./rules --ruleset orders - < order.json
//	required explain --rules ./rules --ruleset orders
//	required serve --config /etc/required
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	exitOK        = 0
	exitViolation = 1
	exitError     = 2
)

// violationError marks a record that failed its requirements, as opposed
// to a usage or input error.
type violationError struct {
	msg string
}

func (e *violationError) Error() string { return e.msg }

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	if err == nil {
		return exitOK
	}

	var violation *violationError
	if errors.As(err, &violation) {
		fmt.Fprintln(stdout, violation.msg)
		return exitViolation
	}
	fmt.Fprintln(stderr, "error:", err)
	return exitError
}
