package visual

import (
	"strings"
)

// Declaration is one inline style property
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Style is an ordered set of inline declarations, the equivalent of an
// element's style attribute. A nil *Style behaves as empty for reads.
type Style struct {
	decls []Declaration
}

// ParseStyle reads a style attribute value. Semicolons inside parentheses
// (for example in url(data:...) values) do not split declarations.
func ParseStyle(attr string) *Style {
	s := &Style{}
	for _, part := range splitTopLevel(attr, ';') {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		// custom property names are case sensitive
		if !strings.HasPrefix(prop, "--") {
			prop = strings.ToLower(prop)
		}
		value = strings.TrimSpace(value)
		important := false
		if idx := strings.LastIndex(strings.ToLower(value), "!important"); idx >= 0 && strings.TrimSpace(value[idx+len("!important"):]) == "" {
			important = true
			value = strings.TrimSpace(value[:idx])
		}
		if prop == "" {
			continue
		}
		s.Set(prop, value, important)
	}
	return s
}

// Get returns the declared value of prop
func (s *Style) Get(prop string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, d := range s.decls {
		if d.Property == prop {
			return d.Value, true
		}
	}
	return "", false
}

// Important reports whether prop was declared with !important
func (s *Style) Important(prop string) bool {
	if s == nil {
		return false
	}
	for _, d := range s.decls {
		if d.Property == prop {
			return d.Important
		}
	}
	return false
}

// Set declares prop. A non-important write never overrides an important one,
// mirroring CSSStyleDeclaration.setProperty precedence for inline styles.
func (s *Style) Set(prop, value string, important bool) {
	for i, d := range s.decls {
		if d.Property == prop {
			if d.Important && !important {
				return
			}
			s.decls[i] = Declaration{Property: prop, Value: value, Important: important}
			return
		}
	}
	s.decls = append(s.decls, Declaration{Property: prop, Value: value, Important: important})
}

// Remove deletes prop if present
func (s *Style) Remove(prop string) {
	for i, d := range s.decls {
		if d.Property == prop {
			s.decls = append(s.decls[:i], s.decls[i+1:]...)
			return
		}
	}
}

// Props lists declared property names in declaration order
func (s *Style) Props() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.decls))
	for _, d := range s.decls {
		out = append(out, d.Property)
	}
	return out
}

func (s *Style) Len() int {
	if s == nil {
		return 0
	}
	return len(s.decls)
}

// Clone returns an independent copy
func (s *Style) Clone() *Style {
	if s == nil {
		return &Style{}
	}
	out := &Style{decls: make([]Declaration, len(s.decls))}
	copy(out.decls, s.decls)
	return out
}

// String serializes the declarations back into attribute form
func (s *Style) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for i, d := range s.decls {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d.Property)
		b.WriteString(": ")
		b.WriteString(d.Value)
		if d.Important {
			b.WriteString(" !important")
		}
		b.WriteByte(';')
	}
	return b.String()
}

// splitTopLevel splits s on sep, ignoring separators nested in parentheses or quotes
func splitTopLevel(s string, sep rune) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + len(string(sep))
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// SplitValues splits a property value on top-level whitespace, keeping function arguments together
func SplitValues(v string) []string {
	var out []string
	for _, f := range splitTopLevel(strings.Join(strings.Fields(v), " "), ' ') {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
