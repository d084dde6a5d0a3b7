package etree

import "strings"

// textValue distinguishes builder-owned, possibly fragmented character
// data from strings assigned by a caller. The builder hands over the
// fragment list as-is to avoid quadratic concatenation when a text run
// arrives in many small pieces; the first read joins the fragments and
// memoizes the result. A caller-assigned string is always stored joined
// and is never touched.
type textValue struct {
	raw   string
	frags []string // non-nil while join-pending
}

func rawText(s string) textValue {
	return textValue{raw: s}
}

func pendingText(frags []string) textValue {
	return textValue{frags: frags}
}

func (v *textValue) value() string {
	if v.frags != nil {
		var b strings.Builder
		n := 0
		for _, f := range v.frags {
			n += len(f)
		}
		b.Grow(n)
		for _, f := range v.frags {
			b.WriteString(f)
		}
		v.raw = b.String()
		v.frags = nil
	}
	return v.raw
}

func (v *textValue) pending() bool {
	return v.frags != nil
}
