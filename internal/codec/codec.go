package codec

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Encode converts text into one pattern per rune. Text wider than maxCols
// fails with ErrMessageTooLong before any character is looked at; a
// maxCols of zero or less disables the width check.
func Encode(text string, maxCols int) ([]Pattern, error) {
	if err := Validate(text, maxCols); err != nil {
		return nil, err
	}
	out := make([]Pattern, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, encodeTable[r])
	}
	return out, nil
}

// Validate runs the checks of Encode without building patterns.
func Validate(text string, maxCols int) error {
	if n := utf8.RuneCountInString(text); maxCols > 0 && n > maxCols {
		return &MessageTooLongError{Length: n, Max: maxCols}
	}
	col := 0
	for _, r := range text {
		if !Supported(r) {
			return &UnsupportedCharacterError{Char: r, Position: col}
		}
		col++
	}
	return nil
}

// DecodeColumn returns the character for p, or Placeholder.
func DecodeColumn(p Pattern) rune {
	if r, ok := decodeTable[p]; ok {
		return r
	}
	return Placeholder
}

// Decode reverses Encode column by column.
func Decode(patterns []Pattern) string {
	var sb strings.Builder
	sb.Grow(len(patterns))
	for _, p := range patterns {
		sb.WriteRune(DecodeColumn(p))
	}
	return sb.String()
}

// Fold upper-cases letters; the keypunch has no lower case.
func Fold(text string) string {
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf {
			return unicode.ToUpper(r)
		}
		return r
	}, text)
}
