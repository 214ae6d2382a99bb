// Package codec turns the raw 64-bit head counter into the six packed
// sub-fields and the textual and rate forms the monitor reports.
//
// Field layout, least-significant bit first:
//
//	[F5:12][F4:10][F3:10][F2:10][F1:10][F0:12]
package codec

import (
	"fmt"
	"time"
)

// NumFields is the number of sub-fields packed into a counter.
const NumFields = 6

// Widths holds the bit width of each field, F0 first.
var Widths = [NumFields]uint{12, 10, 10, 10, 10, 12}

// Shifts holds the start bit of each field, F0 first.
var Shifts = [NumFields]uint{0, 12, 22, 32, 42, 52}

// Fields are the decoded sub-fields of a counter, F0 first.
type Fields [NumFields]uint32

// Mask returns the bit mask of field i, aligned at bit zero.
func Mask(i int) uint64 {
	return (uint64(1) << Widths[i]) - 1
}

// Decode splits counter into its fields.
func Decode(counter uint64) Fields {
	var f Fields
	for i := range f {
		f[i] = uint32((counter >> Shifts[i]) & Mask(i))
	}

	return f
}

// Encode packs the fields into a counter. Bits beyond a field's width are
// discarded.
func Encode(f Fields) uint64 {
	var counter uint64
	for i, v := range f {
		counter |= (uint64(v) & Mask(i)) << Shifts[i]
	}

	return counter
}

// Valid reports whether every field fits its width.
func (f Fields) Valid() bool {
	for i, v := range f {
		if uint64(v) > Mask(i) {
			return false
		}
	}

	return true
}

func (f Fields) String() string {
	return fmt.Sprintf("[%d %d %d %d %d %d]", f[0], f[1], f[2], f[3], f[4], f[5])
}

// Format renders counter as 0x followed by 16 lowercase hex digits.
func Format(counter uint64) string {
	return fmt.Sprintf("0x%016x", counter)
}

// Rate returns the ticks per second between two samples taken elapsed apart.
//
// The counter never decreases, so curr < prev means a torn or stale read. The
// delta is then clamped to zero and anomaly is true. A non-positive elapsed
// time also yields zero with anomaly set.
func Rate(curr, prev uint64, elapsed time.Duration) (tps float64, anomaly bool) {
	if elapsed <= 0 {
		return 0, true
	}

	if curr < prev {
		return 0, true
	}

	return float64(curr-prev) / elapsed.Seconds(), false
}

// Carries reports, per field, whether the field wrapped between two samples.
// A field that wraps more than once between samples is reported once.
func Carries(prev, curr Fields) [NumFields]bool {
	var c [NumFields]bool
	for i := range c {
		c[i] = curr[i] < prev[i]
	}

	return c
}
