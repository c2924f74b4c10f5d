package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done
	r.Close()

	return string(out), fnErr
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, exp := range expected {
		if !strings.Contains(output, exp) {
			t.Errorf("output missing expected string %q\nGot: %s", exp, output)
		}
	}
}

// withGlobals restores the global output flags after a test.
func withGlobals(t *testing.T) {
	t.Helper()
	j, q, cs, snake := jsonOut, quiet, controlSet, snakeCase
	rec, depth := keyRecursive, keyDepth
	t.Cleanup(func() {
		jsonOut, quiet, controlSet, snakeCase = j, q, cs, snake
		keyRecursive, keyDepth = rec, depth
	})
}
