// Package sax defines the callback contract between the low-level XML
// tokenizer and whatever consumes its events. Handlers are plain function
// fields so a consumer only pays for the events it cares about; unset
// handlers are silently skipped.
package sax

// Position identifies a point in the raw input. Line is 1-based, Column
// counts characters from the start of the line (0-based), Offset counts
// raw bytes from the start of the input.
type Position struct {
	Line   int
	Column int
	Offset int
}

// QName is a namespace-resolved name. Space is the namespace URI, or the
// empty string for names outside any namespace. Prefixes are resolved by
// the tokenizer and never reach the consumer.
type QName struct {
	Space string
	Local string
}

// Attribute is a single attribute with its value fully normalized and all
// references expanded.
type Attribute struct {
	Name  QName
	Value string
}

// Standalone values reported with the XML declaration.
const (
	StandaloneUnspecified = -1
	StandaloneNo          = 0
	StandaloneYes         = 1
)

type Handler struct {
	XMLDeclHandler               func(version, encoding string, standalone int) error
	StartElementHandler          func(name QName, attrs []Attribute, pos Position) error
	EndElementHandler            func(name QName, pos Position) error
	CharactersHandler            func(data string, pos Position) error
	CommentHandler               func(data string, pos Position) error
	ProcessingInstructionHandler func(target, data string, pos Position) error
	StartDoctypeHandler          func(name, publicID, systemID string, hasInternalSubset bool) error
	EndDoctypeHandler            func() error
	StartNamespaceHandler        func(prefix, uri string) error
	EndNamespaceHandler          func(prefix string) error

	// DefaultHandler receives markup the tokenizer does not resolve
	// itself, currently unresolved general entity references as the raw
	// "&name;" text.
	DefaultHandler func(data string, pos Position) error

	// UnknownEncodingHandler is asked to supply a 256-entry byte-to-rune
	// table when the declared encoding is not natively recognized.
	// Single-byte encodings only.
	UnknownEncodingHandler func(name string) (*[256]rune, error)
}

func (h *Handler) XMLDecl(version, encoding string, standalone int) error {
	if f := h.XMLDeclHandler; f != nil {
		return f(version, encoding, standalone)
	}
	return nil
}

func (h *Handler) StartElement(name QName, attrs []Attribute, pos Position) error {
	if f := h.StartElementHandler; f != nil {
		return f(name, attrs, pos)
	}
	return nil
}

func (h *Handler) EndElement(name QName, pos Position) error {
	if f := h.EndElementHandler; f != nil {
		return f(name, pos)
	}
	return nil
}

func (h *Handler) Characters(data string, pos Position) error {
	if f := h.CharactersHandler; f != nil {
		return f(data, pos)
	}
	return nil
}

func (h *Handler) Comment(data string, pos Position) error {
	if f := h.CommentHandler; f != nil {
		return f(data, pos)
	}
	return nil
}

func (h *Handler) ProcessingInstruction(target, data string, pos Position) error {
	if f := h.ProcessingInstructionHandler; f != nil {
		return f(target, data, pos)
	}
	return nil
}

func (h *Handler) StartDoctype(name, publicID, systemID string, hasInternalSubset bool) error {
	if f := h.StartDoctypeHandler; f != nil {
		return f(name, publicID, systemID, hasInternalSubset)
	}
	return nil
}

func (h *Handler) EndDoctype() error {
	if f := h.EndDoctypeHandler; f != nil {
		return f()
	}
	return nil
}

func (h *Handler) StartNamespace(prefix, uri string) error {
	if f := h.StartNamespaceHandler; f != nil {
		return f(prefix, uri)
	}
	return nil
}

func (h *Handler) EndNamespace(prefix string) error {
	if f := h.EndNamespaceHandler; f != nil {
		return f(prefix)
	}
	return nil
}

func (h *Handler) Default(data string, pos Position) error {
	if f := h.DefaultHandler; f != nil {
		return f(data, pos)
	}
	return nil
}

// UnknownEncoding reports ok=false when no handler is installed, leaving
// the policy decision to the tokenizer.
func (h *Handler) UnknownEncoding(name string) (*[256]rune, bool, error) {
	if f := h.UnknownEncodingHandler; f != nil {
		table, err := f(name)
		return table, true, err
	}
	return nil, false, nil
}
