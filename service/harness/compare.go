package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// MismatchError reports values outside the tolerance, with a unified diff of
// the expected and actual values.
type MismatchError struct {
	Name       string
	Mismatches int
	First      int
	Diff       string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: %d value(s) out of tolerance, first at index %d\n%v", e.Name, e.Mismatches, e.First, e.Diff)
}

// CompareFloats checks that actual matches expected element wise within an
// absolute tolerance.
func CompareFloats(name string, expected, actual []float32, tolerance float64) error {
	if len(expected) != len(actual) {
		return &MismatchError{Name: name, Mismatches: abs(len(expected) - len(actual)), First: min(len(expected), len(actual)),
			Diff: unifiedDiff(name, expected, actual)}
	}
	mismatches, first := 0, -1
	for i := range expected {
		if math.Abs(float64(expected[i])-float64(actual[i])) > tolerance || math.IsNaN(float64(actual[i])) != math.IsNaN(float64(expected[i])) {
			mismatches++
			if first == -1 {
				first = i
			}
		}
	}
	if mismatches == 0 {
		return nil
	}
	return &MismatchError{Name: name, Mismatches: mismatches, First: first, Diff: unifiedDiff(name, expected, actual)}
}

func unifiedDiff(name string, expected, actual []float32) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(expected),
		B:        lines(actual),
		FromFile: name + " (expected)",
		ToFile:   name + " (actual)",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

func lines(values []float32) []string {
	var b strings.Builder
	for i, v := range values {
		fmt.Fprintf(&b, "[%d] %g\n", i, v)
	}
	return difflib.SplitLines(b.String())
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
