// Package colorx parses colors from their textual forms.
package colorx

import (
	"fmt"
	"image/color"
	"strings"
)

// Parse accepts "#rrggbb", "rrggbb", "#rrggbbaa" and "rrggbbaa".
func Parse(s string) (color.RGBA, error) {
	if len(s) == 0 {
		return color.RGBA{}, fmt.Errorf("empty string")
	}
	return ParseHex(strings.TrimPrefix(s, "#"))
}

func hexToByte(in byte) (uint8, error) {
	switch {
	case '0' <= in && in <= '9':
		return in - '0', nil
	case 'A' <= in && in <= 'F':
		return 10 + (in - 'A'), nil
	case 'a' <= in && in <= 'f':
		return 10 + (in - 'a'), nil
	}
	return 0, fmt.Errorf("unexpected character '%c'", in)
}

func hexPair(s string, idx int) (uint8, error) {
	hi, err := hexToByte(s[idx])
	if err != nil {
		return 0, err
	}
	lo, err := hexToByte(s[idx+1])
	if err != nil {
		return 0, err
	}
	return hi<<4 | lo, nil
}

func ParseHex(s string) (color.RGBA, error) {
	switch len(s) {
	case 6, 8:
	default:
		return color.RGBA{}, fmt.Errorf("unexpected length: %d", len(s))
	}

	r, err := hexPair(s, 0)
	if err != nil {
		return color.RGBA{}, err
	}
	g, err := hexPair(s, 2)
	if err != nil {
		return color.RGBA{}, err
	}
	b, err := hexPair(s, 4)
	if err != nil {
		return color.RGBA{}, err
	}
	a := uint8(0xff)
	if len(s) == 8 {
		if a, err = hexPair(s, 6); err != nil {
			return color.RGBA{}, err
		}
	}
	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// Format renders the color back as "#rrggbb" (or "#rrggbbaa" when the
// alpha is not 0xff).
func Format(c color.RGBA) string {
	if c.A != 0xff {
		return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
