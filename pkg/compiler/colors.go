package compiler

import (
	"fmt"
	"strings"
)

// DefaultPlotColor is used when a plot's color cannot be resolved statically.
const DefaultPlotColor = "#2962FF"

// namedColors maps the color.* constants to their hex values.
var namedColors = map[string]string{
	"aqua":    "#00BCD4",
	"black":   "#363A45",
	"blue":    "#2196F3",
	"fuchsia": "#E040FB",
	"gray":    "#787B86",
	"green":   "#4CAF50",
	"lime":    "#00E676",
	"maroon":  "#880E4F",
	"navy":    "#311B92",
	"olive":   "#808000",
	"orange":  "#FF9800",
	"purple":  "#9C27B0",
	"red":     "#FF5252",
	"silver":  "#B2B5BE",
	"teal":    "#00897B",
	"white":   "#FFFFFF",
	"yellow":  "#FFEB3B",
}

// NamedColor returns the hex value of a color constant given as "red" or
// "color.red".
func NamedColor(name string) (string, bool) {
	hex, ok := namedColors[strings.TrimPrefix(name, "color.")]
	return hex, ok
}

// resolveColor evaluates a color expression that is known at compile time:
// a #hex literal, a color.* constant, color.new(base, transp) (the base
// color), or color.rgb with literal components.
func resolveColor(e Expr) (string, bool) {
	switch v := e.(type) {
	case *ColorLit:
		return normalizeHex(v.Value), true
	case *MemberExpr:
		if obj, ok := v.Object.(*Ident); ok && obj.Name == "color" {
			return NamedColor(v.Property)
		}
	case *CallExpr:
		switch calleeName(v.Callee) {
		case "color.new":
			if base := v.Arg("color", 0); base != nil {
				return resolveColor(base)
			}
		case "color.rgb":
			var rgb [3]int
			for i, name := range []string{"red", "green", "blue"} {
				f, ok := literalValue(v.Arg(name, i))
				if !ok || f < 0 || f > 255 {
					return "", false
				}
				rgb[i] = int(f)
			}
			return fmt.Sprintf("#%02X%02X%02X", rgb[0], rgb[1], rgb[2]), true
		}
	}
	return "", false
}

// normalizeHex upper-cases a hex color and expands the #RGB short form.
func normalizeHex(s string) string {
	s = strings.ToUpper(s)
	if len(s) == 4 {
		return string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	return s
}
