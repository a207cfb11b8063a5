package main

import (
	"context"
	"errors"
)

// exitCodeFor maps an error returned from a subcommand's RunE to a process
// exit code per spec.md §6: 0 success (handled by the caller never
// reaching here), 1 generic error, 130 cancellation.
func exitCodeFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
