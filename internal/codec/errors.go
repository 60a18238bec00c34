package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedCharacter indicates a character outside the code table.
	ErrUnsupportedCharacter = errors.New("codec: unsupported character")

	// ErrMessageTooLong indicates text wider than the card.
	ErrMessageTooLong = errors.New("codec: message too long")
)

// UnsupportedCharacterError reports the first offending character.
type UnsupportedCharacterError struct {
	Char     rune
	Position int
}

func (e *UnsupportedCharacterError) Error() string {
	return fmt.Sprintf("codec: unsupported character %q at column %d", e.Char, e.Position)
}

func (e *UnsupportedCharacterError) Unwrap() error { return ErrUnsupportedCharacter }

// MessageTooLongError reports the text width against the card width.
type MessageTooLongError struct {
	Length int
	Max    int
}

func (e *MessageTooLongError) Error() string {
	return fmt.Sprintf("codec: message too long (%d columns, card holds %d)", e.Length, e.Max)
}

func (e *MessageTooLongError) Unwrap() error { return ErrMessageTooLong }
