//go:build aeoverflow

package ae

// overflowChecks enables checked interval arithmetic.
const overflowChecks = true
