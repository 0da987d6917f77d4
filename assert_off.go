//go:build !aeassert

package ae

const assertions = false
