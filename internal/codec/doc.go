// Package codec maps text onto punch-card columns using the IBM 029
// keypunch character code.
//
// Each supported character occupies exactly one card column. A column is
// described by a [Pattern]: the set of the twelve card rows that carry a
// hole for that character. Rows are indexed top to bottom as they appear on
// the card face:
//
//	index  0  1  2  3  4  5  6  7  8  9 10 11
//	row   12 11  0  1  2  3  4  5  6  7  8  9
//
// The table is a process-wide constant. [Encode] is total on the declared
// alphabet and rejects everything else; [Decode] is best effort and never
// fails.
package codec
