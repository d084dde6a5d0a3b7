package etree

// targetHooks holds the capabilities a custom parser target actually
// implements. Probing happens once at parser construction; a nil hook
// means the target does not care about that event class.
type targetHooks struct {
	start   func(tag string, attrib *Attrib) error
	data    func(data string) error
	end     func(tag string) error
	comment func(text string) error
	pi      func(target, data string) error
	doctype func(name, publicID, systemID string) error
	close   func() (any, error)
}

func probeTarget(v any) *targetHooks {
	h := &targetHooks{}
	if t, ok := v.(StartTarget); ok {
		h.start = t.Start
	}
	if t, ok := v.(DataTarget); ok {
		h.data = t.Data
	}
	if t, ok := v.(EndTarget); ok {
		h.end = t.End
	}
	if t, ok := v.(CommentTarget); ok {
		h.comment = t.Comment
	}
	if t, ok := v.(PITarget); ok {
		h.pi = t.ProcessingInstruction
	}
	if t, ok := v.(DoctypeTarget); ok {
		h.doctype = t.Doctype
	}
	if t, ok := v.(CloseTarget); ok {
		h.close = t.Close
	}
	return h
}
