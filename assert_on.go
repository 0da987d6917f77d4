//go:build aeassert

package ae

// assertions enables register invariant checks. Development build profiles
// set the aeassert tag.
const assertions = true
