package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dorzhavian/hardwareexpress-logai/internal/classify"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0
	ExitError       = 1 // configuration or runtime error
	ExitUnavailable = 2 // the configured classifier could not be loaded
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, classify.ErrClassifierUnavailable):
		return ExitUnavailable
	default:
		return ExitError
	}
}
