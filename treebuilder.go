package etree

import (
	"fmt"

	"github.com/etree-go/etree/internal/stack"
	pdebug "github.com/lestrrat-go/pdebug/v3"
)

// TreeBuilder assembles an Element tree from an incremental stream of
// start, data, and end calls. It may be driven directly or installed as
// an XMLParser target.
//
// Character data is accumulated as fragments and only attached to the
// tree when the next structural call arrives, so feeding text in many
// small pieces stays linear.
type TreeBuilder struct {
	root    *Element
	current *Element
	last    *Element
	open    stack.Stack[*Element]

	factory ElementFactory

	pendingOne  string
	pendingList []string
	hasPending  bool

	events        *EventQueue
	startEvents   bool
	endEvents     bool
	startNSEvents bool
	endNSEvents   bool

	comments bool
	pis      bool
}

func NewTreeBuilder(options ...BuilderOption) *TreeBuilder {
	b := &TreeBuilder{}
	for _, o := range options {
		switch o.Ident() {
		case identElementFactory{}:
			b.factory = o.Value().(ElementFactory)
		case identComments{}:
			b.comments = o.Value().(bool)
		case identPIs{}:
			b.pis = o.Value().(bool)
		}
	}
	if b.factory == nil {
		b.factory = NewElement
	}
	return b
}

// Root returns the root element, or nil before the first Start.
func (b *TreeBuilder) Root() *Element {
	return b.root
}

// flush attaches accumulated character data to the node it belongs to:
// the current element's text when no sibling has been closed since it
// opened, otherwise the last closed element's tail.
func (b *TreeBuilder) flush() {
	if !b.hasPending {
		return
	}
	var v textValue
	if b.pendingList != nil {
		v = pendingText(b.pendingList)
	} else {
		v = rawText(b.pendingOne)
	}
	b.pendingOne = ""
	b.pendingList = nil
	b.hasPending = false

	if b.last == nil {
		return
	}
	if b.last == b.current {
		b.last.text = v
	} else {
		b.last.tail = v
	}
}

// Start opens a new element and returns it. attrib may be nil; the
// builder takes ownership of it.
func (b *TreeBuilder) Start(tag string, attrib *Attrib) (*Element, error) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}
	b.flush()

	node := b.factory(tag, attrib)
	if b.current != nil {
		b.current.appendChild(node)
	} else if b.root == nil {
		b.root = node
	} else {
		return nil, ErrMultipleRoots
	}
	b.open.Push(b.current)
	b.current = node
	b.last = node

	if b.startEvents {
		b.events.push(Event{Kind: StartEvent, Elem: node})
	}
	return node, nil
}

// Data appends character data to the pending text run. Data arriving
// before any element exists has nowhere to go and is dropped.
func (b *TreeBuilder) Data(s string) error {
	if !b.hasPending {
		if b.last == nil {
			return nil
		}
		b.pendingOne = s
		b.hasPending = true
		return nil
	}
	if b.pendingList == nil {
		b.pendingList = append(make([]string, 0, 4), b.pendingOne, s)
		b.pendingOne = ""
		return nil
	}
	b.pendingList = append(b.pendingList, s)
	return nil
}

// End closes the innermost open element and returns it.
func (b *TreeBuilder) End(tag string) (*Element, error) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}
	b.flush()

	prev, ok := b.open.Pop()
	if !ok {
		return nil, ErrEmptyStack
	}
	b.last = b.current
	b.current = prev

	if b.endEvents {
		b.events.push(Event{Kind: EndEvent, Elem: b.last})
	}
	return b.last, nil
}

// Close finishes the build and returns the root element. A builder that
// never saw a Start returns nil.
func (b *TreeBuilder) Close() (*Element, error) {
	b.flush()
	return b.root, nil
}

// Comment inserts a CommentTag element when comment collection is
// enabled. Comments outside the root element are dropped either way.
func (b *TreeBuilder) Comment(text string) error {
	if !b.comments || b.current == nil {
		return nil
	}
	b.insertSpecial(CommentTag, text)
	return nil
}

// ProcessingInstruction inserts a PITag element holding "target data"
// when PI collection is enabled.
func (b *TreeBuilder) ProcessingInstruction(target, data string) error {
	if !b.pis || b.current == nil {
		return nil
	}
	text := target
	if data != "" {
		text = fmt.Sprintf("%s %s", target, data)
	}
	b.insertSpecial(PITag, text)
	return nil
}

func (b *TreeBuilder) insertSpecial(tag, text string) {
	b.flush()
	node := b.factory(tag, nil)
	node.SetText(text)
	b.current.appendChild(node)
	b.last = node
}

// namespaceEvent records a namespace scope boundary if the corresponding
// event kind was requested.
func (b *TreeBuilder) namespaceEvent(start bool, prefix, uri string) {
	if start {
		if b.startNSEvents {
			b.events.push(Event{Kind: StartNSEvent, Prefix: prefix, URI: uri})
		}
		return
	}
	if b.endNSEvents {
		b.events.push(Event{Kind: EndNSEvent, Prefix: prefix})
	}
}

func (b *TreeBuilder) setEvents(q *EventQueue, start, end, startNS, endNS bool) {
	b.events = q
	b.startEvents = start
	b.endEvents = end
	b.startNSEvents = startNS
	b.endNSEvents = endNS
}
