package visualization

import (
	"fmt"
	"image/color"

	"gopkg.in/go-playground/colors.v1"
)

// Palette holds the series colors shared by the dashboard and report charts
type Palette struct {
	Primary     string
	PrimaryLine string
	Accent      string
	AccentFill  string
}

// DefaultPalette returns the teal and magenta scheme of the dashboard
func DefaultPalette() Palette {
	return Palette{
		Primary:     "rgba(73,160,181,0.7)",
		PrimaryLine: "rgba(73,160,181,1)",
		Accent:      "rgba(231,107,243,1)",
		AccentFill:  "rgba(231,107,243,0.7)",
	}
}

// Validate checks that every color parses
func (p Palette) Validate() error {
	for name, c := range map[string]string{
		"primary":      p.Primary,
		"primary line": p.PrimaryLine,
		"accent":       p.Accent,
		"accent fill":  p.AccentFill,
	} {
		if _, err := colors.Parse(c); err != nil {
			return fmt.Errorf("invalid %s color %q: %w", name, c, err)
		}
	}
	return nil
}

// RGBA converts a CSS color string into an image color for static rendering
func RGBA(css string) (color.RGBA, error) {
	parsed, err := colors.Parse(css)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", css, err)
	}
	c := parsed.ToRGBA()
	alpha := uint8(c.A*255 + 0.5)
	// image/color expects premultiplied alpha
	return color.RGBA{
		R: uint8(uint16(c.R) * uint16(alpha) / 255),
		G: uint8(uint16(c.G) * uint16(alpha) / 255),
		B: uint8(uint16(c.B) * uint16(alpha) / 255),
		A: alpha,
	}, nil
}

// Hex returns the #rrggbb form of a CSS color, dropping alpha
func Hex(css string) (string, error) {
	parsed, err := colors.Parse(css)
	if err != nil {
		return "", fmt.Errorf("invalid color %q: %w", css, err)
	}
	return parsed.ToHEX().String(), nil
}

func mustRGBA(css string, fallback color.RGBA) color.RGBA {
	c, err := RGBA(css)
	if err != nil {
		return fallback
	}
	return c
}
