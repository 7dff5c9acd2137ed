// Package testhelper provides small helpers shared by tests.
package testhelper

import (
	"io"
	"os"
	"strings"
)

// TestIsVerbose returns true if tests are run with the verbose flag.
func TestIsVerbose() bool {
	value := os.Getenv("TEST_VERBOSE")
	if value == "" {
		for _, arg := range os.Args {
			if strings.HasPrefix(arg, "-test.v") {
				value = "true"
			}
		}
	}
	return value == "true"
}

// VerboseStdout returns stdout in the verbose mode, otherwise a discarding writer.
func VerboseStdout() io.Writer {
	if TestIsVerbose() {
		return os.Stdout
	}
	return io.Discard
}
