// Package testutil holds shared test helpers. The Given/When/Then wrappers
// keep the end-to-end flow tests (register voter, authenticate, cast) readable
// as scenarios without pulling in a heavy BDD framework.
package testutil

import "testing"

// Given names the scenario precondition; When and Then name the action and
// the expected outcome.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
