package codec

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Rows is the number of punch positions in one card column.
const Rows = 12

// Placeholder is returned by Decode for patterns outside the code table.
const Placeholder = '\uFFFD'

// Pattern is the set of punched rows of one column, bit i = row index i.
type Pattern uint16

// Space is the all-unpunched column.
const Space Pattern = 0

// Has reports whether row index r is punched.
func (p Pattern) Has(r int) bool {
	if r < 0 || r >= Rows {
		return false
	}
	return p&(1<<uint(r)) != 0
}

// Rows returns the punched row indices in ascending order.
func (p Pattern) Rows() []int {
	out := make([]int, 0, bits.OnesCount16(uint16(p)))
	for r := 0; r < Rows; r++ {
		if p.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of holes in the column.
func (p Pattern) Count() int { return bits.OnesCount16(uint16(p)) }

// Label returns the card-face row labels, e.g. "12-3-8".
func (p Pattern) Label() string {
	if p == Space {
		return "blank"
	}
	s := ""
	for _, r := range p.Rows() {
		if s != "" {
			s += "-"
		}
		s += rowLabels[r]
	}
	return s
}

var rowLabels = [Rows]string{"12", "11", "0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// punch builds a pattern from card-face row labels (12, 11, 0..9).
func punch(labels ...int) Pattern {
	var p Pattern
	for _, l := range labels {
		switch {
		case l == 12:
			p |= 1 << 0
		case l == 11:
			p |= 1 << 1
		case l >= 0 && l <= 9:
			p |= 1 << uint(l+2)
		default:
			panic("codec: invalid row label")
		}
	}
	return p
}

var (
	encodeTable = buildTable()
	decodeTable = invert(encodeTable)
	alphabet    = sortedAlphabet(encodeTable)
)

func buildTable() map[rune]Pattern {
	t := map[rune]Pattern{' ': Space}

	for d := 0; d <= 9; d++ {
		t[rune('0'+d)] = punch(d)
	}
	for i := 0; i < 9; i++ {
		t[rune('A'+i)] = punch(12, i+1)
		t[rune('J'+i)] = punch(11, i+1)
	}
	for i := 0; i < 8; i++ {
		t[rune('S'+i)] = punch(0, i+2)
	}

	specials := map[rune]Pattern{
		'&':  punch(12),
		'-':  punch(11),
		'/':  punch(0, 1),
		'¢':  punch(12, 2, 8),
		'.':  punch(12, 3, 8),
		'<':  punch(12, 4, 8),
		'(':  punch(12, 5, 8),
		'+':  punch(12, 6, 8),
		'|':  punch(12, 7, 8),
		'!':  punch(11, 2, 8),
		'$':  punch(11, 3, 8),
		'*':  punch(11, 4, 8),
		')':  punch(11, 5, 8),
		';':  punch(11, 6, 8),
		'¬':  punch(11, 7, 8),
		',':  punch(0, 3, 8),
		'%':  punch(0, 4, 8),
		'_':  punch(0, 5, 8),
		'>':  punch(0, 6, 8),
		'?':  punch(0, 7, 8),
		':':  punch(2, 8),
		'#':  punch(3, 8),
		'@':  punch(4, 8),
		'\'': punch(5, 8),
		'=':  punch(6, 8),
		'"':  punch(7, 8),
	}
	for r, p := range specials {
		t[r] = p
	}
	return t
}

func invert(t map[rune]Pattern) map[Pattern]rune {
	out := make(map[Pattern]rune, len(t))
	for r, p := range t {
		if prev, dup := out[p]; dup {
			panic("codec: duplicate pattern for " + string(prev) + " and " + string(r))
		}
		out[p] = r
	}
	return out
}

func sortedAlphabet(t map[rune]Pattern) []rune {
	out := make([]rune, 0, len(t))
	for r := range t {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Lookup returns the pattern for r.
func Lookup(r rune) (Pattern, bool) {
	p, ok := encodeTable[r]
	return p, ok
}

// Supported reports whether r belongs to the alphabet.
func Supported(r rune) bool {
	_, ok := encodeTable[r]
	return ok
}

// Alphabet returns a copy of the supported characters in code point order.
func Alphabet() []rune {
	out := make([]rune, len(alphabet))
	copy(out, alphabet)
	return out
}

// ParseLabel is the inverse of Label: "12-3-8" or "blank".
func ParseLabel(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "blank" {
		return Space, nil
	}
	var p Pattern
	for _, part := range strings.Split(s, "-") {
		idx := -1
		for i, l := range rowLabels {
			if l == part {
				idx = i
				break
			}
		}
		if idx < 0 {
			return 0, fmt.Errorf("codec: unknown row %q in %q", part, s)
		}
		p |= 1 << uint(idx)
	}
	return p, nil
}
