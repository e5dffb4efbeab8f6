// Package rewriteerrors provides the invariant-violation and
// configuration error types shared across SPARQLVeil.
package rewriteerrors

import (
	"fmt"
	"os"
	"strings"
)

func isInTests() bool {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

// MustBugf returns an error representing a condition the Rewrite
// Driver's invariants should have made unreachable (e.g. a filter
// merge step invoked with an empty candidate list). It panics under
// `go test` so the violation surfaces immediately instead of being
// silently wrapped.
func MustBugf(format string, args ...any) error {
	if isInTests() {
		panic(fmt.Sprintf(format, args...))
	}
	return fmt.Errorf("BUG: "+format, args...)
}
