package ae

import (
	"fmt"
	"math/bits"
)

// narrow rescales [low, high] to the sub-interval [lo, hi) out of total.
// high is exclusive of its implicit tail of ones, hence the -1.
func narrow(low, high uint32, lo, hi, total uint64) (uint32, uint32) {
	if assertions && high <= low {
		panic(fmt.Sprintf("ae: register invariant broken before narrowing: high=%#x low=%#x", high, low))
	}

	width := uint64(high-low) + 1
	if overflowChecks {
		if over, _ := bits.Mul64(hi, width); over != 0 {
			panic(fmt.Sprintf("ae: interval product overflows: %d * %d", hi, width))
		}
	}

	newHigh := uint64(low) + hi*width/total - 1
	newLow := uint64(low) + lo*width/total

	if overflowChecks && newHigh > uint64(topValue) {
		panic(fmt.Sprintf("ae: high register overflow: %#x", newHigh))
	}
	if assertions && newHigh <= newLow {
		panic(fmt.Sprintf("ae: empty interval after narrowing: high=%#x low=%#x", newHigh, newLow))
	}

	return uint32(newHigh), uint32(newLow)
}

// converged reports whether the top bits of high and low agree.
func converged(low, high uint32) bool {
	return high&msbMask == low&msbMask
}

// straddling reports the underflow case: high is 10… and low is 01…, so the
// interval is about to shrink around the midpoint without converging.
func straddling(low, high uint32) bool {
	return high&topTwoMask == msbMask && low&secondMask != 0
}
