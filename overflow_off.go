//go:build !aeoverflow

package ae

const overflowChecks = false
