// Package testutil holds the small, hand-rolled assertion helpers the
// teacher module keeps in testing/testutils, trimmed to int/string slice
// comparisons and plain Assert*. No test in this module imports it; the
// existing tests use the testing package directly or testify.
package testutil

import "testing"

// IntSliceEqual reports whether a and b contain the same ints in order.
func IntSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// AssertIntSliceEqual fails the test if expected and actual differ.
func AssertIntSliceEqual(t *testing.T, expected, actual []int, msg string) {
	t.Helper()

	if !IntSliceEqual(expected, actual) {
		t.Errorf("expected %v, got %v: %s", expected, actual, msg)
	}
}

// AssertNoError fails the test if err is non-nil.
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()

	if err != nil {
		t.Errorf("expected no error, got %v: %s", err, msg)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()

	if err == nil {
		t.Errorf("expected an error, got nil: %s", msg)
	}
}

// AssertEqual fails the test if expected != actual.
func AssertEqual[T comparable](t *testing.T, expected, actual T, msg string) {
	t.Helper()

	if expected != actual {
		t.Errorf("expected %v, got %v: %s", expected, actual, msg)
	}
}
