package ids

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// ErrMalformedSeed is returned by TryReseed when the previous id is neither
// a UUID nor a base-10 integer.
var ErrMalformedSeed = errors.New("malformed id seed")

// Style identifies an id generation strategy.
type Style int

const (
	// StyleUUID generates random UUIDs. It is the default style.
	StyleUUID Style = iota
	// StyleIncrementing generates increasing integers.
	StyleIncrementing
)

var styleNames = [...]string{
	StyleUUID:         "UUID",
	StyleIncrementing: "INCREMENTING",
}

// String returns the configuration name of the style.
func (s Style) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return fmt.Sprintf("Style(%d)", int(s))
	}
	return styleNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(styleNames) {
		return nil, fmt.Errorf("unknown id style %d", int(s))
	}
	return []byte(styleNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Style) UnmarshalText(text []byte) error {
	parsed, err := ParseStyle(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStyle parses a configuration value ("UUID" or "INCREMENTING").
func ParseStyle(name string) (Style, error) {
	for i, n := range styleNames {
		if n == name {
			return Style(i), nil
		}
	}
	return StyleUUID, fmt.Errorf("unknown id style %q: must be UUID or INCREMENTING", name)
}

// StyleOf reports the style an existing id was generated with.
// Anything that does not parse as a UUID is treated as incrementing.
func StyleOf(id string) Style {
	if _, err := uuid.Parse(id); err == nil {
		return StyleUUID
	}
	return StyleIncrementing
}

// TryReseed returns a generator that continues after previousID.
//
// The UUID parse is attempted first: a UUID seed yields a UUID generator.
// Otherwise previousID must be a base-10 integer, and the returned generator
// hands out previousID+1, previousID+2, ...
func TryReseed(previousID string) (Generator, error) {
	if _, err := uuid.Parse(previousID); err == nil {
		return NewUUID(), nil
	}
	n, err := strconv.ParseInt(previousID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedSeed, previousID)
	}
	return NewIncrementingAt(n), nil
}

// Reseed is TryReseed for callers that hold a previously generated id.
//
// Panics on a malformed seed: the seed always comes from a generator in this
// package, so a parse failure is a programming error.
func Reseed(previousID string) Generator {
	g, err := TryReseed(previousID)
	if err != nil {
		panic(err)
	}
	return g
}
