package executor

import (
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyKeybind = errors.New("empty keybind")

// ParseKeybind splits a '+' delimited combination such as "CTRL + ALT + Del" into ordered,
// lower-cased key names. The '+' key itself is written as a doubled separator ("ctrl++") and
// parses to "plus". A separator with no key after it is rejected.
func ParseKeybind(combo string) ([]string, error) {
	if strings.TrimSpace(combo) == "" {
		return nil, ErrEmptyKeybind
	}
	parts := strings.Split(combo, "+")
	keys := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		k := strings.ToLower(strings.TrimSpace(parts[i]))
		if k != "" {
			keys = append(keys, k)
			continue
		}
		if i+1 < len(parts) && strings.TrimSpace(parts[i+1]) == "" {
			keys = append(keys, "plus")
			i++
			continue
		}
		return nil, fmt.Errorf("%w: missing key in %q", ErrEmptyKeybind, combo)
	}
	return keys, nil
}
