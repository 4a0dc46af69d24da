package testutil

import "testing"

// Given, When, and Then wrap subtests with a scenario prefix so `go test -v`
// output reads as sentences. They carry no other machinery.

func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	scenario(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	scenario(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	scenario(t, "Then", desc, fn)
}

func scenario(t *testing.T, prefix, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(prefix+" "+desc, fn)
}
