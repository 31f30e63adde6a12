package visual

import (
	"strings"
)

const maxVarDepth = 16

var inheritedProps = map[string]bool{
	"color":           true,
	"caret-color":     true,
	"fill":            true,
	"stroke":          true,
	"font-size":       true,
	"font-weight":     true,
	"font-family":     true,
	"font-style":      true,
	"letter-spacing":  true,
	"line-height":     true,
	"text-align":      true,
	"text-transform":  true,
	"white-space":     true,
	"visibility":      true,
	"text-shadow":     true,
	"list-style-type": true,
}

var initialValues = map[string]string{
	"color":                 "rgb(0, 0, 0)",
	"background-color":      "transparent",
	"background-image":      "none",
	"border-top-color":      "currentcolor",
	"border-right-color":    "currentcolor",
	"border-bottom-color":   "currentcolor",
	"border-left-color":     "currentcolor",
	"border-color":          "currentcolor",
	"outline-color":         "currentcolor",
	"text-decoration-color": "currentcolor",
	"column-rule-color":     "currentcolor",
	"caret-color":           "auto",
	"fill":                  "rgb(0, 0, 0)",
	"stroke":                "none",
	"box-shadow":            "none",
	"text-shadow":           "none",
	"filter":                "none",
	"backdrop-filter":       "none",
	"font-size":             "16px",
	"font-weight":           "400",
	"text-align":            "left",
	"white-space":           "normal",
	"opacity":               "1",
}

var blockTags = map[string]bool{
	"html": true, "body": true, "div": true, "p": true, "section": true, "header": true,
	"footer": true, "main": true, "article": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "ul": true, "ol": true, "li": true, "hr": true,
}

// IsInherited reports whether prop inherits from the parent when undeclared
func IsInherited(prop string) bool {
	return inheritedProps[prop] || strings.HasPrefix(prop, "--")
}

// InitialValue is the value prop takes when neither declared nor inherited
func InitialValue(tag, prop string) string {
	if prop == "display" {
		return defaultDisplay(tag)
	}
	return initialValues[prop]
}

func defaultDisplay(tag string) string {
	switch {
	case blockTags[tag]:
		return "block"
	case tag == "table":
		return "table"
	case tag == "thead", tag == "tbody", tag == "tfoot":
		return "table-row-group"
	case tag == "tr":
		return "table-row"
	case tag == "td", tag == "th":
		return "table-cell"
	case tag == "head", tag == "style", tag == "script", tag == "title", tag == "meta":
		return "none"
	}
	return "inline"
}

// Computed resolves the used value of prop for el: the inline declaration,
// else the inherited value for inherited properties, else the initial value.
// var() references and the currentcolor / inherit / initial keywords are
// substituted, so the result never contains var( unless a cycle was found.
func Computed(el Element, prop string) string {
	if el == nil {
		return InitialValue("", prop)
	}
	if el.IsText() {
		return Computed(el.Parent(), prop)
	}

	raw, ok := declared(el, prop)
	if !ok {
		if IsInherited(prop) && el.Parent() != nil {
			return Computed(el.Parent(), prop)
		}
		raw = InitialValue(el.Tag(), prop)
	}

	value := strings.TrimSpace(substituteVars(el, raw, 0))
	switch strings.ToLower(value) {
	case "":
		// a var() that resolved to nothing makes the declaration invalid at computed-value time
		if IsInherited(prop) && el.Parent() != nil {
			return Computed(el.Parent(), prop)
		}
		return InitialValue(el.Tag(), prop)
	case "inherit":
		if el.Parent() != nil {
			return Computed(el.Parent(), prop)
		}
		return InitialValue(el.Tag(), prop)
	case "initial", "unset":
		if strings.EqualFold(value, "unset") && IsInherited(prop) && el.Parent() != nil {
			return Computed(el.Parent(), prop)
		}
		value = InitialValue(el.Tag(), prop)
	}

	if isColorProp(prop) && prop != "color" {
		lower := strings.ToLower(value)
		if lower == "currentcolor" || (prop == "caret-color" && lower == "auto") {
			return Computed(el, "color")
		}
	}
	if prop == "color" && strings.EqualFold(value, "currentcolor") {
		return Computed(el.Parent(), "color")
	}
	return value
}

// declared looks up prop on el's inline style, expanding the border shorthands
func declared(el Element, prop string) (string, bool) {
	st := el.Style()
	if v, ok := st.Get(prop); ok {
		return v, true
	}
	if side, ok := borderSideColor(prop); ok {
		if v, ok := st.Get("border-color"); ok {
			return sideValue(v, side), true
		}
		if v, ok := st.Get("border-" + side); ok {
			if c := shorthandColor(v); c != "" {
				return c, true
			}
		}
		if v, ok := st.Get("border"); ok {
			if c := shorthandColor(v); c != "" {
				return c, true
			}
		}
	}
	if prop == "background-color" {
		if v, ok := st.Get("background"); ok {
			if c := shorthandColor(v); c != "" {
				return c, true
			}
		}
	}
	if prop == "background-image" {
		if v, ok := st.Get("background"); ok && strings.Contains(strings.ToLower(v), "gradient") {
			return v, true
		}
	}
	return "", false
}

var borderSides = []string{"top", "right", "bottom", "left"}

func borderSideColor(prop string) (string, bool) {
	for _, side := range borderSides {
		if prop == "border-"+side+"-color" {
			return side, true
		}
	}
	return "", false
}

// sideValue picks one side out of a 1-4 value box shorthand
func sideValue(v, side string) string {
	parts := SplitValues(v)
	if len(parts) == 0 {
		return v
	}
	idx := map[string]int{"top": 0, "right": 1, "bottom": 2, "left": 3}[side]
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[idx%2]
	case 3:
		if idx == 3 {
			return parts[1]
		}
		return parts[idx]
	default:
		return parts[idx]
	}
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true, "solid": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

// shorthandColor extracts the color component of a border/background shorthand
func shorthandColor(v string) string {
	for _, part := range SplitValues(v) {
		lower := strings.ToLower(part)
		if borderStyles[lower] || IsLength(lower) || strings.HasPrefix(lower, "url(") || strings.Contains(lower, "gradient(") {
			continue
		}
		switch lower {
		case "thin", "medium", "thick", "no-repeat", "repeat", "center", "cover", "contain":
			continue
		}
		return part
	}
	return ""
}

// IsLength reports whether v looks like a CSS length or number
func IsLength(v string) bool {
	if v == "" {
		return false
	}
	c := v[0]
	return (c >= '0' && c <= '9') || c == '.' || c == '-' && len(v) > 1 && (v[1] >= '0' && v[1] <= '9' || v[1] == '.')
}

func isColorProp(prop string) bool {
	return prop == "color" || strings.HasSuffix(prop, "-color") || prop == "fill" || prop == "stroke"
}

// substituteVars replaces every var(--name[, fallback]) in v
func substituteVars(el Element, v string, depth int) string {
	if depth > maxVarDepth {
		return v
	}
	lower := strings.ToLower(v)
	idx := strings.Index(lower, "var(")
	if idx < 0 {
		return v
	}
	end := matchingParen(v, idx+3)
	if end < 0 {
		return v
	}
	inner := v[idx+4 : end]
	name, fallback, hasFallback := strings.Cut(inner, ",")
	name = strings.TrimSpace(name)

	replacement, ok := lookupVar(el, name)
	if !ok || strings.TrimSpace(replacement) == "" {
		if hasFallback {
			replacement = strings.TrimSpace(fallback)
		} else {
			replacement = ""
		}
	}
	replacement = substituteVars(el, replacement, depth+1)
	return substituteVars(el, v[:idx]+replacement+v[end+1:], depth+1)
}

// lookupVar finds the nearest declaration of a custom property on el or its ancestors
func lookupVar(el Element, name string) (string, bool) {
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur.IsText() {
			continue
		}
		if v, ok := cur.Style().Get(name); ok {
			lower := strings.ToLower(strings.TrimSpace(v))
			if lower == "initial" {
				return "", false
			}
			return v, true
		}
	}
	return "", false
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
