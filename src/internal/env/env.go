// Package env parses configuration values from environment variables.
package env

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Duration parses a non-zero duration in milliseconds from the environment
// variable named v. ok is false if v is undefined or empty.
func Duration(v string) (d time.Duration, ok bool, err error) {
	s := os.Getenv(v)
	if s == "" {
		return 0, false, nil
	}

	n, err := strconv.ParseUint(s, 10, 63)
	if err != nil || n == 0 {
		return 0, false, fmt.Errorf("%s must be a non-zero duration (in milliseconds)", v)
	}

	return time.Duration(n) * time.Millisecond, true, nil
}

// UInt parses a non-zero unsigned integer from the environment variable
// named v. ok is false if v is undefined or empty.
func UInt(v string) (n uint, ok bool, err error) {
	s := os.Getenv(v)
	if s == "" {
		return 0, false, nil
	}

	u, err := strconv.ParseUint(s, 10, 31)
	if err != nil || u == 0 {
		return 0, false, fmt.Errorf("%s must be a non-zero integer", v)
	}

	return uint(u), true, nil
}

// Bool parses a boolean from the environment variable named v. ok is false
// if v is undefined or empty.
func Bool(v string) (b bool, ok bool, err error) {
	switch os.Getenv(v) {
	case "true":
		return true, true, nil
	case "false":
		return false, true, nil
	case "":
		return false, false, nil
	default:
		return false, false, fmt.Errorf("%s must be 'true' or 'false'", v)
	}
}
