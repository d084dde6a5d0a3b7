package etree

import (
	"fmt"

	"github.com/etree-go/etree/encoding"
	"github.com/etree-go/etree/sax"
	pdebug "github.com/lestrrat-go/pdebug/v3"
)

// XMLParser is a push parser: callers hand it raw document bytes in
// arbitrary chunks with Feed and finish with Close. Tokenizer events are
// routed to the configured target, a TreeBuilder unless WithTarget says
// otherwise.
//
// The first fatal error sticks: every later Feed and Close returns the
// same error without consuming input.
type XMLParser struct {
	sc      *scanner
	builder *TreeBuilder
	hooks   *targetHooks
	target  any

	names  map[sax.QName]string
	entity map[string]string

	err error
}

// NewXMLParser builds a parser. With no options the target is a fresh
// TreeBuilder and the encoding is taken from the document.
func NewXMLParser(options ...ParserOption) (*XMLParser, error) {
	var target any
	var forced string
	for _, o := range options {
		switch o.Ident() {
		case identTarget{}:
			target = o.Value()
		case identEncoding{}:
			forced = o.Value().(string)
		}
	}

	p := &XMLParser{
		names:  make(map[sax.QName]string),
		entity: make(map[string]string),
	}
	switch t := target.(type) {
	case nil:
		p.builder = NewTreeBuilder()
		p.target = p.builder
	case *TreeBuilder:
		p.builder = t
		p.target = t
	default:
		p.hooks = probeTarget(t)
		p.target = t
	}

	sc, err := newScanner(p.handler(), forced)
	if err != nil {
		return nil, err
	}
	p.sc = sc
	return p, nil
}

// universal translates a resolved name to its universal form, "{uri}local"
// or the bare local name. Tag strings repeat constantly in real documents,
// so the translation is cached per parser.
func (p *XMLParser) universal(name sax.QName) string {
	if s, ok := p.names[name]; ok {
		return s
	}
	s := JoinName(name.Space, name.Local)
	p.names[name] = s
	return s
}

func (p *XMLParser) handler() *sax.Handler {
	h := &sax.Handler{
		CharactersHandler: func(data string, _ sax.Position) error {
			if p.builder != nil {
				return p.builder.Data(data)
			}
			if p.hooks.data != nil {
				return p.hooks.data(data)
			}
			return nil
		},
		CommentHandler: func(data string, _ sax.Position) error {
			if p.builder != nil {
				return p.builder.Comment(data)
			}
			if p.hooks.comment != nil {
				return p.hooks.comment(data)
			}
			return nil
		},
		ProcessingInstructionHandler: func(target, data string, _ sax.Position) error {
			if p.builder != nil {
				return p.builder.ProcessingInstruction(target, data)
			}
			if p.hooks.pi != nil {
				return p.hooks.pi(target, data)
			}
			return nil
		},
		StartDoctypeHandler: func(name, publicID, systemID string, _ bool) error {
			if p.hooks != nil && p.hooks.doctype != nil {
				return p.hooks.doctype(name, publicID, systemID)
			}
			return nil
		},
		StartNamespaceHandler: func(prefix, uri string) error {
			if p.builder != nil {
				p.builder.namespaceEvent(true, prefix, uri)
			}
			return nil
		},
		EndNamespaceHandler: func(prefix string) error {
			if p.builder != nil {
				p.builder.namespaceEvent(false, prefix, "")
			}
			return nil
		},
		DefaultHandler:         p.handleDefault,
		UnknownEncodingHandler: encoding.CharTable,
	}

	h.StartElementHandler = func(name sax.QName, attrs []sax.Attribute, pos sax.Position) error {
		tag := p.universal(name)
		var attrib *Attrib
		if len(attrs) > 0 {
			attrib = NewAttrib()
			for _, a := range attrs {
				attrib.Set(p.universal(a.Name), a.Value)
			}
		}
		if p.builder != nil {
			elem, err := p.builder.Start(tag, attrib)
			if err != nil {
				return err
			}
			elem.setStart(Position(pos))
			return nil
		}
		if p.hooks.start != nil {
			return p.hooks.start(tag, attrib)
		}
		return nil
	}
	h.EndElementHandler = func(name sax.QName, pos sax.Position) error {
		if p.builder != nil {
			elem, err := p.builder.End(p.universal(name))
			if err != nil {
				return err
			}
			elem.setEnd(Position(pos))
			return nil
		}
		if p.hooks.end != nil {
			return p.hooks.end(p.universal(name))
		}
		return nil
	}
	return h
}

// handleDefault resolves general entity references against the parser's
// entity map. An unknown reference is a fatal, position-stamped error.
func (p *XMLParser) handleDefault(data string, pos sax.Position) error {
	if len(data) < 3 || data[0] != '&' || data[len(data)-1] != ';' {
		return nil
	}
	name := data[1 : len(data)-1]
	if v, ok := p.entity[name]; ok {
		if p.builder != nil {
			return p.builder.Data(v)
		}
		if p.hooks.data != nil {
			return p.hooks.data(v)
		}
		return nil
	}
	if p.err == nil {
		p.err = &ParseError{
			Err:    fmt.Errorf("%w &%s;", ErrUndefinedEntity, name),
			Code:   CodeUndefinedEntity,
			Line:   pos.Line,
			Column: pos.Column,
			Offset: pos.Offset,
		}
	}
	return p.err
}

// Feed hands the parser the next chunk of the document.
func (p *XMLParser) Feed(data []byte) error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}
	if p.err != nil {
		return p.err
	}
	if err := p.sc.feed(data, false); err != nil {
		p.err = err
		return err
	}
	return nil
}

// Close signals end of input and returns the target's result: the root
// element for a TreeBuilder target, whatever the custom target's Close
// returns otherwise, or nil for a target without one.
func (p *XMLParser) Close() (any, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := p.sc.feed(nil, true); err != nil {
		p.err = err
		return nil, err
	}
	if p.builder != nil {
		root, err := p.builder.Close()
		if err != nil {
			p.err = err
			return nil, err
		}
		if root == nil {
			return nil, nil
		}
		return root, nil
	}
	if p.hooks.close != nil {
		return p.hooks.close()
	}
	return nil, nil
}

// SetEvents directs the builder to record the named event kinds into q.
// Valid kinds are "start", "end", "start-ns" and "end-ns"; no kinds means
// {"end"}. Event recording requires a TreeBuilder target.
func (p *XMLParser) SetEvents(q *EventQueue, kinds ...string) error {
	if q == nil {
		return ErrNilQueue
	}
	if p.builder == nil {
		return ErrEventsUnsupported
	}
	if len(kinds) == 0 {
		kinds = []string{"end"}
	}
	var start, end, startNS, endNS bool
	for _, k := range kinds {
		switch k {
		case "start":
			start = true
		case "end":
			end = true
		case "start-ns":
			startNS = true
		case "end-ns":
			endNS = true
		default:
			return fmt.Errorf("%w %q", ErrUnknownEvent, k)
		}
	}
	p.builder.setEvents(q, start, end, startNS, endNS)
	return nil
}

// Entity exposes the general entity substitution map. Populate it before
// feeding input that references non-predefined entities.
func (p *XMLParser) Entity() map[string]string {
	return p.entity
}

// Target returns the configured target object.
func (p *XMLParser) Target() any {
	return p.target
}

// LineNumber reports the 1-based line of the current parse position.
func (p *XMLParser) LineNumber() int {
	return p.sc.position().Line
}

// ColumnNumber reports the 0-based column of the current parse position.
func (p *XMLParser) ColumnNumber() int {
	return p.sc.position().Column
}

// ByteIndex reports the byte offset of the current parse position.
func (p *XMLParser) ByteIndex() int {
	return p.sc.position().Offset
}

// ParserVersion identifies the underlying tokenizer implementation.
func (p *XMLParser) ParserVersion() string {
	return "etree " + Version
}
