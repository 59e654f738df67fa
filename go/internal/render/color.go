package render

import (
	"image/color"
	"strconv"
	"strings"
)

// FallbackColor is drawn for actors whose colour cannot be parsed
var FallbackColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

var namedColors = map[string]color.RGBA{
	"black":  {0x00, 0x00, 0x00, 0xff},
	"white":  {0xff, 0xff, 0xff, 0xff},
	"red":    {0xff, 0x00, 0x00, 0xff},
	"green":  {0x00, 0x80, 0x00, 0xff},
	"blue":   {0x00, 0x00, 0xff, 0xff},
	"yellow": {0xff, 0xff, 0x00, 0xff},
	"orange": {0xff, 0xa5, 0x00, 0xff},
	"purple": {0x80, 0x00, 0x80, 0xff},
	"pink":   {0xff, 0xc0, 0xcb, 0xff},
	"cyan":   {0x00, 0xff, 0xff, 0xff},
	"teal":   {0x00, 0x80, 0x80, 0xff},
	"grey":   {0x80, 0x80, 0x80, 0xff},
	"gray":   {0x80, 0x80, 0x80, 0xff},
}

// ParseColor accepts #rgb, #rrggbb or a basic colour name. Anything else
// yields FallbackColor.
func ParseColor(s string) color.RGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c
	}
	if !strings.HasPrefix(s, "#") {
		return FallbackColor
	}
	hex := s[1:]
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return FallbackColor
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return FallbackColor
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// HexColor formats c as #rrggbb
func HexColor(c color.RGBA) string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B} {
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0x0f]
	}
	return string(b)
}
