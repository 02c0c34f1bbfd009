package testutils

import (
	"reflect"
	"testing"
)

// AssertSame reports a test error if expected and actual are not deeply
// equal, tagging the message with prefix so failures from table-driven
// puff/patch round-trip tests stay distinguishable.
func AssertSame(t *testing.T, expected interface{}, actual interface{}, prefix string) {
	if !reflect.DeepEqual(expected, actual) {
		t.Error(prefix, "do not match, expected:", expected, ", actual:", actual)
	}
}

// AssertLen reports a fatal test error if actual's length does not match
// expected.
func AssertLen(t *testing.T, expected int, actual interface{}, prefix string) {
	s := reflect.ValueOf(actual)
	if s.Len() != expected {
		t.Fatal(prefix, "incorrect length, expected:", expected, ", actual:", s.Len())
	}
}
