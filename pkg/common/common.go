// 14 Feb 2026

// Package common holds the few constants and helpers that every part
// of the pipeline wants. Exit codes live here so cmd and pkg agree on
// their meaning.
package common

import (
	"fmt"
	"io"
	"os"
)

const (
	ExitSuccess = iota
	ExitFailure
	ExitUsageError
)

// WrtTemp writes a string to a temporary file and returns
// the filename. It is used all over the place in testing, whenever a
// fixture is one standalone file rather than a directory of them.
func WrtTemp(s string) (string, error) {
	f_tmp, err := os.CreateTemp("", "_del_me_testing")
	if err != nil {
		return "", fmt.Errorf("tempfile fail")
	}

	if _, err := io.WriteString(f_tmp, s); err != nil {
		return "", fmt.Errorf("writing string to temp file %v", f_tmp.Name())
	}
	name := f_tmp.Name()
	f_tmp.Close()
	return name, nil
}
